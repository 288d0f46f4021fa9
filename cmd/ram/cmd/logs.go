package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/config"
	"github.com/Aman-CERP/ram/internal/logging"
	"github.com/Aman-CERP/ram/internal/ui"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var lo logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the ram log",
		Long: `Show recent entries from ~/.ragged_memory/logs/ram.log.

Examples:
  ram logs                  # last 50 entries
  ram logs -f               # follow new entries
  ram logs --level warn     # warnings and errors only
  ram logs --filter index_  # entries matching a pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, lo)
		},
	}

	cmd.Flags().BoolVarP(&lo.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&lo.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&lo.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&lo.filter, "filter", "", "Only entries matching this regular expression")
	cmd.Flags().BoolVar(&lo.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&lo.file, "file", "", "Read this log file instead")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, lo logsOptions) error {
	path := lo.file
	if path == "" {
		path = logging.LogPathIn(config.DefaultGlobalDir())
	}

	var pattern *regexp.Regexp
	if lo.filter != "" {
		var err error
		if pattern, err = regexp.Compile(lo.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   lo.level,
		Pattern: pattern,
		NoColor: lo.noColor || ui.DetectNoColor() || !ui.IsTTY(out),
	}, out)

	errOut := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(errOut, "Log file: %s\n---\n", path)

	if !lo.follow {
		entries, err := viewer.Tail(path, lo.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	entries := make(chan logging.Entry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	_, _ = fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	for {
		select {
		case e := <-entries:
			_, _ = fmt.Fprintln(out, viewer.Format(e))
		case err := <-errCh:
			return err
		}
	}
}
