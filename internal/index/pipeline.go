// Package index runs the single-file indexing pipeline: validate, fingerprint,
// check for duplicates, chunk, embed and persist.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/ram/internal/chunk"
	"github.com/Aman-CERP/ram/internal/config"
	"github.com/Aman-CERP/ram/internal/embed"
	"github.com/Aman-CERP/ram/internal/fingerprint"
	"github.com/Aman-CERP/ram/internal/store"
	"github.com/Aman-CERP/ram/internal/ui"
)

// Store is the part of a memory store the pipeline writes through.
type Store interface {
	FindByFingerprint(ctx context.Context, fp string) ([]store.SourceRef, error)
	Append(ctx context.Context, records []store.Record) error
	// AppendUnique writes nothing and returns store.ErrDuplicateContent when
	// fp is already stored at commit time.
	AppendUnique(ctx context.Context, records []store.Record, fp string) error
}

// Config holds the tunables of a run. It is an immutable value built by the
// caller.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MaxFileSize  int64
	BatchSize    int
}

// ConfigFrom extracts pipeline settings from the loaded configuration.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
		MaxFileSize:  cfg.Indexing.MaxFileSize,
		BatchSize:    cfg.Embeddings.BatchSize,
	}
}

// Dependencies contains the injected collaborators of a Pipeline.
type Dependencies struct {
	// Store receives the records (required).
	Store Store

	// Embedder computes chunk vectors (required).
	Embedder embed.Embedder

	// Chunker splits file text. Defaults to the boundary chunker.
	Chunker chunk.TextChunker

	// Renderer shows progress. Optional.
	Renderer ui.Renderer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Request names the file to index.
type Request struct {
	Path string
	// Force indexes the file even when identical content is already stored.
	Force bool
}

// Result reports a successful run. Duplicate and Empty outcomes wrote nothing.
type Result struct {
	RunID       string
	Outcome     Outcome
	SourcePath  string
	Fingerprint string
	Chunks      int
	// Existing lists earlier indexings of the same content.
	Existing []store.SourceRef
	Duration time.Duration
}

// Pipeline indexes one file at a time into one store.
type Pipeline struct {
	cfg      Config
	store    Store
	embedder embed.Embedder
	chunker  chunk.TextChunker
	renderer ui.Renderer
	logger   *slog.Logger

	now func() time.Time
}

// NewPipeline creates a Pipeline with injected dependencies.
func NewPipeline(cfg Config, deps Dependencies) (*Pipeline, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	chunker := deps.Chunker
	if chunker == nil {
		chunker = chunk.NewBoundaryChunker()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		cfg:      cfg,
		store:    deps.Store,
		embedder: deps.Embedder,
		chunker:  chunker,
		renderer: deps.Renderer,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// run tracks the state of one Run call.
type run struct {
	id     string
	state  State
	logger *slog.Logger
}

func (r *run) advance(to State) {
	r.logger.Debug("index_transition",
		slog.String("from", r.state.String()),
		slog.String("to", to.String()))
	r.state = to
}

// Run indexes req.Path. On error nothing has been written to the store.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := p.now()
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", req.Path, err)
	}

	r := &run{id: uuid.NewString(), state: StateDiscovered}
	r.logger = p.logger.With(slog.String("run_id", r.id), slog.String("path", path))
	r.logger.Info("index_started", slog.Bool("force", req.Force))

	res, err := p.run(ctx, r, path, req.Force)
	if err != nil {
		failedIn := r.state
		r.advance(StateFailed)
		r.logger.Error("index_failed",
			slog.String("state", failedIn.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	res.RunID = r.id
	res.Duration = p.now().Sub(start)
	r.logger.Info("index_complete",
		slog.String("outcome", res.Outcome.String()),
		slog.Int("chunks", res.Chunks),
		slog.Int64("duration_ms", res.Duration.Milliseconds()))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, r *run, path string, force bool) (*Result, error) {
	p.progress(ui.StageValidating, 0, 0, filepath.Base(path))
	data, err := readSource(path, p.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	r.advance(StateValidated)

	p.progress(ui.StageFingerprinting, 0, 0, "hashing content")
	fp := fingerprint.Of(data)
	r.advance(StateFingerprinted)
	res := &Result{SourcePath: path, Fingerprint: fp}

	existing, err := p.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	res.Existing = existing
	if len(existing) > 0 && !force {
		r.advance(StateDuplicate)
		res.Outcome = OutcomeDuplicate
		return res, nil
	}
	r.advance(StateUnique)

	p.progress(ui.StageChunking, 0, 0, "splitting text")
	chunks := p.chunker.Chunk(string(data), p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	r.advance(StateChunked)
	if len(chunks) == 0 {
		res.Outcome = OutcomeEmpty
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embed.EmbedTexts(ctx, p.embedder, texts, p.cfg.BatchSize, func(done, total int) {
		p.progress(ui.StageEmbedding, done, total, filepath.Base(path))
	})
	if err != nil {
		return nil, err
	}
	r.advance(StateEmbedded)

	// Last point where cancellation leaves no trace.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	indexedAt := p.now().UTC()
	records := make([]store.Record, len(chunks))
	for i, c := range chunks {
		records[i] = store.Record{
			ID:                uuid.NewString(),
			Text:              c.Text,
			Vector:            vectors[i],
			SourcePath:        path,
			ChunkIndex:        c.Index,
			ChunkLength:       c.Len(),
			IndexedAt:         indexedAt,
			SourceFingerprint: fp,
		}
	}

	p.progress(ui.StageStoring, 0, 0, fmt.Sprintf("writing %d records", len(records)))
	if force {
		err = p.store.Append(ctx, records)
	} else {
		err = p.store.AppendUnique(ctx, records, fp)
	}
	if errors.Is(err, store.ErrDuplicateContent) {
		// Another run stored the same content while this one was embedding.
		existing, ferr := p.store.FindByFingerprint(ctx, fp)
		if ferr != nil {
			return nil, ferr
		}
		r.advance(StateDuplicate)
		res.Existing = existing
		res.Outcome = OutcomeDuplicate
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	r.advance(StatePersisted)

	res.Outcome = OutcomeIndexed
	res.Chunks = len(records)
	return res, nil
}

func (p *Pipeline) progress(stage ui.Stage, current, total int, msg string) {
	if p.renderer == nil {
		return
	}
	p.renderer.UpdateProgress(ui.ProgressEvent{Stage: stage, Current: current, Total: total, Message: msg})
}
