package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/index"
	"github.com/Aman-CERP/ram/internal/ui"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Index a text file into memory",
		Long: `Index a text file: split it into chunks, embed each chunk and store
the vectors in the resolved scope.

Without flags the project-local store is used when the current directory is
inside an initialized project, otherwise the global store.

Files whose exact content is already stored are skipped unless --force is given.

Examples:
  ram add notes.md
  ram add --global ~/docs/reading-list.txt
  ram add -l design.md --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), cmd, opts, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Index even if identical content is already stored")

	return cmd
}

func runAdd(ctx context.Context, cmd *cobra.Command, opts *rootOptions, path string, force bool) error {
	s, err := opts.newSession(cmd)
	if err != nil {
		return err
	}
	s.announce()

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

	if err := s.ensureStore(ctx, st); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	renderer := ui.NewRenderer(ui.NewConfig(errOut,
		ui.WithForcePlain(opts.plain),
		ui.WithQuiet(!opts.plain && !ui.IsTTY(errOut)),
	))

	pipeline, err := index.NewPipeline(index.ConfigFrom(s.cfg), index.Dependencies{
		Store:    st,
		Embedder: embedder,
		Renderer: renderer,
		Logger:   s.logger,
	})
	if err != nil {
		return err
	}

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	// A busy store is retried as a whole run; the embedding cache makes the
	// repeat cheap and nothing was written by the failed attempt.
	res, err := ramerrors.RetryWithResult(ctx, ramerrors.DefaultRetryConfig(), func() (*index.Result, error) {
		res, err := pipeline.Run(ctx, index.Request{Path: path, Force: force})
		if ramerrors.IsRetryable(err) {
			s.logger.Warn("store_busy_retrying", ramerrors.FormatForLog(err)...)
		}
		return res, err
	})
	if err == nil && res.Outcome == index.OutcomeIndexed {
		renderer.Complete(ui.CompletionStats{
			Source:   filepath.Base(res.SourcePath),
			Chunks:   res.Chunks,
			Duration: res.Duration,
			Embedder: ui.EmbedderInfo{Model: embedder.ModelName(), Dimensions: embedder.Dimensions()},
		})
	}
	_ = renderer.Stop()
	if err != nil {
		return err
	}

	reportAdd(s, res)
	return nil
}

func reportAdd(s *session, res *index.Result) {
	name := filepath.Base(res.SourcePath)

	switch res.Outcome {
	case index.OutcomeDuplicate:
		first := res.Existing[0]
		s.out.Infof("%s is already indexed (same content as %s, indexed %s)",
			name, first.SourcePath, first.IndexedAt.Local().Format("2006-01-02 15:04"))
		s.out.Next(fmt.Sprintf("ram add --force %s  # index it again", name))
	case index.OutcomeEmpty:
		s.out.Warningf("Nothing to index: %s has no text content", name)
	default:
		s.out.Successf("Indexed %d chunks from %s", res.Chunks, name)
		s.out.Next(`ram search "query text"`)
	}
}
