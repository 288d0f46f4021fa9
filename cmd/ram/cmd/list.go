package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/store"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored chunks",
		Long: `List stored chunks in the order they were added.

Examples:
  ram list
  ram list --source ./notes.md
  ram list --global -n 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), cmd, opts, source, limit)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Only list chunks of this source file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of chunks (0 for all)")

	return cmd
}

func runList(ctx context.Context, cmd *cobra.Command, opts *rootOptions, source string, limit int) error {
	s, err := opts.newSession(cmd)
	if err != nil {
		return err
	}
	s.announce()

	st, err := s.openStore("")
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	filter := &store.Filter{Limit: limit}
	if source != "" {
		abs, err := filepath.Abs(source)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", source, err)
		}
		filter.SourcePath = abs
	}

	records, err := st.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		s.out.Info("No memories stored")
		return nil
	}

	w := s.out.Out()
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s #%d  %d chars  %s\n",
			r.SourcePath, r.ChunkIndex, r.ChunkLength, r.IndexedAt.Local().Format("2006-01-02 15:04"))
		_, _ = fmt.Fprintf(w, "   %s\n", preview(r.Text, 80))
	}
	if limit > 0 && len(records) == limit {
		s.out.Infof("Showing the first %d chunks; use -n 0 for all", limit)
	}
	return nil
}
