package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	stage Stage
	seen  bool
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:   cfg.Output,
		quiet: cfg.Quiet,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Embedding progress is printed once per
// event; other stages print only when the stage changes.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := !r.seen || event.Stage != r.stage
	r.stage = event.Stage
	r.seen = true

	if r.quiet {
		return
	}
	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage.Icon(), event.Current, event.Total, event.Message)
		return
	}
	if changed && event.Message != "" {
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.out, "[%s] %d chunks from %s in %s",
		StageComplete.Icon(), stats.Chunks, stats.Source, stats.Duration.Round(time.Millisecond))
	if stats.Embedder.Model != "" {
		_, _ = fmt.Fprintf(r.out, " (%s, %d dims)", stats.Embedder.Model, stats.Embedder.Dimensions)
	}
	_, _ = fmt.Fprintln(r.out)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
