package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ram/internal/store"
	"github.com/Aman-CERP/ram/internal/ui"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the store used from the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, opts, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts *rootOptions, jsonOutput bool) error {
	s, err := opts.newSession(cmd)
	if err != nil {
		return err
	}

	embedder, err := s.embedder()
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	st, err := s.openStore(embedder.ModelName())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	embedderStatus := "offline"
	if embedder.Available(checkCtx) {
		embedderStatus = "ready"
	}

	info := ui.StatusInfo{
		Scope:          s.loc.Label(),
		Dir:            s.loc.Dir,
		Initialized:    st.Exists(),
		Records:        stats.Records,
		Sources:        stats.Sources,
		CreatedAt:      stats.CreatedAt,
		SizeBytes:      storeSize(s.loc.Dir),
		EmbedderModel:  stats.Model,
		EmbedderDims:   stats.Dimensions,
		EmbedderStatus: embedderStatus,
	}

	r := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
	if jsonOutput {
		return r.RenderJSON(info)
	}
	if s.note != "" {
		s.out.Warning(s.note)
	}
	return r.Render(info)
}

// storeSize sums the database and its WAL files.
func storeSize(dir string) int64 {
	var total int64
	base := filepath.Join(dir, store.DBFileName)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	return total
}
