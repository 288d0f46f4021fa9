// Package output provides consistent CLI output formatting.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/ram/internal/scope"
	"github.com/Aman-CERP/ram/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	noColor := !ui.IsTTY(out) || ui.DetectNoColor()
	return &Writer{
		out:    out,
		styles: ui.GetStyles(noColor),
	}
}

// Out returns the underlying writer.
func (w *Writer) Out() io.Writer {
	return w.out
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Info prints a neutral message.
func (w *Writer) Info(msg string) {
	w.Status(w.styles.Label.Render("•"), msg)
}

// Infof prints a formatted neutral message.
func (w *Writer) Infof(format string, args ...any) {
	w.Info(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Scope prints the scope badge for loc, followed by the store directory.
func (w *Writer) Scope(loc scope.Location) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.ScopeBadge(loc), w.styles.Dim.Render(loc.Dir))
}

// ScopeBadge renders "[global]" or "[local: <project>]".
func (w *Writer) ScopeBadge(loc scope.Location) string {
	badge := "[" + loc.Label() + "]"
	if loc.Scope == scope.Local {
		return w.styles.LocalScope.Render(badge)
	}
	return w.styles.GlobalScope.Render(badge)
}

// Next prints a follow-up hint.
func (w *Writer) Next(hint string) {
	_, _ = fmt.Fprintf(w.out, "\n%s %s\n", w.styles.Label.Render("Next:"), hint)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
