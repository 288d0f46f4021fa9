package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes one store for `ram status`.
type StatusInfo struct {
	Scope       string    `json:"scope"`
	Dir         string    `json:"dir"`
	Initialized bool      `json:"initialized"`
	Records     int       `json:"records"`
	Sources     int       `json:"sources"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	SizeBytes   int64     `json:"size_bytes"`

	EmbedderModel  string `json:"embedder_model"`
	EmbedderDims   int    `json:"embedder_dimensions"`
	EmbedderStatus string `json:"embedder_status"` // "ready", "offline"
}

// StatusRenderer displays store status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Memory Store: "+info.Scope))

	_, _ = fmt.Fprintf(r.out, "  Location:  %s\n", info.Dir)
	if !info.Initialized {
		_, _ = fmt.Fprintf(r.out, "  State:     %s\n\n", r.styles.Warning.Render("not initialized"))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Records:   %d\n", info.Records)
		_, _ = fmt.Fprintf(r.out, "  Sources:   %d\n", info.Sources)
		if !info.CreatedAt.IsZero() {
			_, _ = fmt.Fprintf(r.out, "  Created:   %s\n", formatTime(info.CreatedAt))
		}
		_, _ = fmt.Fprintf(r.out, "  Size:      %s\n\n", FormatBytes(info.SizeBytes))
	}

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Model:  %s (%d dims)\n", info.EmbedderModel, info.EmbedderDims)
	if info.EmbedderStatus != "" {
		_, _ = fmt.Fprintf(r.out, "    Status: %s\n", r.renderStatus(info.EmbedderStatus))
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	default:
		return status
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
