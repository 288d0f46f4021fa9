package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ram/internal/chunk"
	"github.com/Aman-CERP/ram/internal/config"
	"github.com/Aman-CERP/ram/internal/embed"
	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/fingerprint"
	"github.com/Aman-CERP/ram/internal/logging"
	"github.com/Aman-CERP/ram/internal/scope"
	"github.com/Aman-CERP/ram/internal/store"
	"github.com/Aman-CERP/ram/internal/ui"
)

const testDims = 32

// stubEmbedder wraps the static embedder and can fail or cancel on demand.
type stubEmbedder struct {
	*embed.StaticEmbedder
	fail   error
	onCall func()
	calls  int
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return s.StaticEmbedder.EmbedBatch(ctx, texts)
}

// recordingRenderer captures progress events.
type recordingRenderer struct {
	mu     sync.Mutex
	events []ui.ProgressEvent
}

func (r *recordingRenderer) Start(context.Context) error { return nil }
func (r *recordingRenderer) Complete(ui.CompletionStats) {}
func (r *recordingRenderer) Stop() error                 { return nil }
func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type fixture struct {
	dir      string
	store    *store.MemoryStore
	embedder *stubEmbedder
	pipeline *Pipeline
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(scope.Location{Scope: scope.Global, Dir: filepath.Join(dir, "store")}, store.Options{
		Dimensions:  testDims,
		LockTimeout: time.Second,
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)
	_, err = s.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e := &stubEmbedder{StaticEmbedder: embed.NewStaticEmbedder(testDims)}
	p, err := NewPipeline(cfg, Dependencies{Store: s, Embedder: e, Logger: logging.Discard()})
	require.NoError(t, err)
	return &fixture{dir: dir, store: s, embedder: e, pipeline: p}
}

func defaultConfig() Config {
	return Config{ChunkSize: 512, ChunkOverlap: 50, MaxFileSize: 1 << 20, BatchSize: 4}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	recs, err := f.store.List(context.Background(), nil)
	require.NoError(t, err)
	return len(recs)
}

func prose(n int) string {
	sentence := "The quick brown fox jumps over the lazy dog. "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return b.String()[:n]
}

func TestNewPipeline_RequiresStoreAndEmbedder(t *testing.T) {
	_, err := NewPipeline(defaultConfig(), Dependencies{Embedder: embed.NewStaticEmbedder(8)})
	assert.Error(t, err)

	s, err := store.Open(scope.Location{Dir: t.TempDir()}, store.Options{Dimensions: 8})
	require.NoError(t, err)
	_, err = NewPipeline(defaultConfig(), Dependencies{Store: s})
	assert.Error(t, err)
}

func TestRun_IndexesFile(t *testing.T) {
	// Given: a 2000-character file
	f := newFixture(t, defaultConfig())
	content := prose(2000)
	path := f.write(t, "notes.txt", content)

	// When: indexing it
	res, err := f.pipeline.Run(context.Background(), Request{Path: path})

	// Then: 4-5 records are written that share fingerprint and timestamp
	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, res.Outcome)
	assert.GreaterOrEqual(t, res.Chunks, 4)
	assert.LessOrEqual(t, res.Chunks, 5)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, fingerprint.Of([]byte(content)), res.Fingerprint)

	recs, err := f.store.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, recs, res.Chunks)
	for i, r := range recs {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, path, r.SourcePath)
		assert.True(t, filepath.IsAbs(r.SourcePath))
		assert.Equal(t, res.Fingerprint, r.SourceFingerprint)
		assert.True(t, recs[0].IndexedAt.Equal(r.IndexedAt))
		assert.Equal(t, len([]rune(r.Text)), r.ChunkLength)
		assert.Contains(t, content, r.Text)
		assert.Len(t, r.Vector, testDims)
	}
}

func TestRun_RecordsMatchChunkerOutput(t *testing.T) {
	f := newFixture(t, defaultConfig())
	content := "First paragraph about Go.\n\nSecond paragraph about storage.\n\n" + prose(900)
	path := f.write(t, "doc.md", content)

	_, err := f.pipeline.Run(context.Background(), Request{Path: path})
	require.NoError(t, err)

	want := chunk.NewBoundaryChunker().Chunk(content, 512, 50)
	recs, err := f.store.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, recs, len(want))

	runes := []rune(content)
	for i, c := range want {
		assert.Equal(t, c.Text, recs[i].Text)
		assert.Equal(t, string(runes[c.StartOffset:c.EndOffset]), recs[i].Text)
	}
}

func TestRun_SecondRunIsDuplicateAndWritesNothing(t *testing.T) {
	// Given: a file indexed once
	f := newFixture(t, defaultConfig())
	path := f.write(t, "a.txt", prose(1200))
	_, err := f.pipeline.Run(context.Background(), Request{Path: path})
	require.NoError(t, err)
	before := f.count(t)

	// When: indexing it again without force
	res, err := f.pipeline.Run(context.Background(), Request{Path: path})

	// Then: it is reported as a duplicate and the record count is unchanged
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	require.Len(t, res.Existing, 1)
	assert.Equal(t, path, res.Existing[0].SourcePath)
	assert.Equal(t, before, f.count(t))
}

func TestRun_ConcurrentRunsOnSharedStoreIndexOnce(t *testing.T) {
	// Given: two pipelines with their own store handles on one directory,
	// both held at their first embedding call until the other arrives
	f := newFixture(t, defaultConfig())
	path := f.write(t, "a.txt", "hello world")

	other, err := store.Open(scope.Location{Scope: scope.Global, Dir: filepath.Join(f.dir, "store")}, store.Options{
		Dimensions:  testDims,
		LockTimeout: 5 * time.Second,
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	otherEmbedder := &stubEmbedder{StaticEmbedder: embed.NewStaticEmbedder(testDims)}
	otherPipeline, err := NewPipeline(defaultConfig(), Dependencies{Store: other, Embedder: otherEmbedder, Logger: logging.Discard()})
	require.NoError(t, err)

	var barrier sync.WaitGroup
	barrier.Add(2)
	arrive := func() {
		barrier.Done()
		barrier.Wait()
	}
	f.embedder.onCall = arrive
	otherEmbedder.onCall = arrive

	// When: both index the same file at once
	pipelines := []*Pipeline{f.pipeline, otherPipeline}
	results := make([]*Result, len(pipelines))
	errs := make([]error, len(pipelines))
	var wg sync.WaitGroup
	for i, p := range pipelines {
		wg.Add(1)
		go func(i int, p *Pipeline) {
			defer wg.Done()
			results[i], errs[i] = p.Run(context.Background(), Request{Path: path})
		}(i, p)
	}
	wg.Wait()

	// Then: exactly one run indexes, the other reports the duplicate
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	outcomes := []Outcome{results[0].Outcome, results[1].Outcome}
	assert.ElementsMatch(t, []Outcome{OutcomeIndexed, OutcomeDuplicate}, outcomes)
	for _, res := range results {
		if res.Outcome == OutcomeDuplicate {
			require.Len(t, res.Existing, 1)
			assert.Equal(t, path, res.Existing[0].SourcePath)
		}
	}

	// And: the content is stored once
	refs, err := f.store.FindByFingerprint(context.Background(), results[0].Fingerprint)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.Equal(t, 1, f.count(t))
}

func TestRun_CopyWithSameContentIsDuplicate(t *testing.T) {
	f := newFixture(t, defaultConfig())
	a := f.write(t, "a.txt", "hello world")
	b := f.write(t, "copy.txt", "hello world")

	_, err := f.pipeline.Run(context.Background(), Request{Path: a})
	require.NoError(t, err)
	res, err := f.pipeline.Run(context.Background(), Request{Path: b})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, a, res.Existing[0].SourcePath)
	assert.Equal(t, 1, f.count(t))
}

func TestRun_ForceReindexesDuplicate(t *testing.T) {
	f := newFixture(t, defaultConfig())
	path := f.write(t, "a.txt", prose(700))

	first, err := f.pipeline.Run(context.Background(), Request{Path: path})
	require.NoError(t, err)
	second, err := f.pipeline.Run(context.Background(), Request{Path: path, Force: true})

	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, second.Outcome)
	assert.Equal(t, first.Chunks*2, f.count(t))

	refs, err := f.store.FindByFingerprint(context.Background(), first.Fingerprint)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestRun_EmptyFileIsNothingToIndex(t *testing.T) {
	// Given: an empty file and a whitespace-only file
	f := newFixture(t, defaultConfig())
	for _, content := range []string{"", "   \n\n\t  "} {
		path := f.write(t, "empty.txt", content)

		// When: indexing
		res, err := f.pipeline.Run(context.Background(), Request{Path: path})

		// Then: the outcome is Empty and nothing is embedded or written
		require.NoError(t, err)
		assert.Equal(t, OutcomeEmpty, res.Outcome)
		assert.Zero(t, res.Chunks)
	}
	assert.Zero(t, f.embedder.calls)
	assert.Zero(t, f.count(t))
}

func TestRun_FingerprintFindsOnlyMatchingFile(t *testing.T) {
	// Given: a.txt and an unrelated b.txt indexed into the same store
	f := newFixture(t, defaultConfig())
	a := f.write(t, "a.txt", "hello world")
	b := f.write(t, "b.txt", "an unrelated note about sqlite locking")
	_, err := f.pipeline.Run(context.Background(), Request{Path: a})
	require.NoError(t, err)
	_, err = f.pipeline.Run(context.Background(), Request{Path: b})
	require.NoError(t, err)

	// When: looking up a.txt's fingerprint
	refs, err := f.store.FindByFingerprint(context.Background(), fingerprint.Of([]byte("hello world")))

	// Then: only a.txt is returned
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, a, refs[0].SourcePath)
}

func TestRun_EmbeddingFailureWritesNothing(t *testing.T) {
	// Given: an embedder that fails
	f := newFixture(t, defaultConfig())
	f.embedder.fail = errors.New("model crashed")
	path := f.write(t, "a.txt", prose(2000))

	// When: indexing
	res, err := f.pipeline.Run(context.Background(), Request{Path: path})

	// Then: the run fails with EmbeddingFailure and the store is unchanged
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ramerrors.ErrEmbeddingFailure))
	assert.Zero(t, f.count(t))
}

func TestRun_CancelledDuringEmbeddingWritesNothing(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.embedder.onCall = cancel
	path := f.write(t, "a.txt", prose(2000))

	_, err := f.pipeline.Run(ctx, Request{Path: path})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.count(t))
}

func TestRun_ValidationErrors(t *testing.T) {
	f := newFixture(t, Config{ChunkSize: 512, ChunkOverlap: 50, MaxFileSize: 64})

	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  error
	}{
		{
			name:  "missing file",
			setup: func(t *testing.T) string { return filepath.Join(f.dir, "nope.txt") },
			want:  ramerrors.ErrNotFound,
		},
		{
			name: "directory",
			setup: func(t *testing.T) string {
				d := filepath.Join(f.dir, "subdir")
				require.NoError(t, os.MkdirAll(d, 0o755))
				return d
			},
			want: ramerrors.ErrNotFound,
		},
		{
			name:  "invalid utf-8",
			setup: func(t *testing.T) string { return f.write(t, "bin.dat", "ok\xff\xfe") },
			want:  ramerrors.ErrEncoding,
		},
		{
			name:  "too large",
			setup: func(t *testing.T) string { return f.write(t, "big.txt", prose(65)) },
			want:  ramerrors.ErrSizeLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.pipeline.Run(context.Background(), Request{Path: tt.setup(t)})
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Zero(t, f.embedder.calls)
	assert.Zero(t, f.count(t))
}

func TestRun_UnreadableFileIsPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	f := newFixture(t, defaultConfig())
	path := f.write(t, "secret.txt", "classified")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { _ = os.Chmod(path, 0o644) })

	_, err := f.pipeline.Run(context.Background(), Request{Path: path})
	assert.True(t, errors.Is(err, ramerrors.ErrPermissionDenied), "got %v", err)
}

func TestRun_ReportsEmbeddingProgress(t *testing.T) {
	f := newFixture(t, defaultConfig())
	rec := &recordingRenderer{}
	p, err := NewPipeline(defaultConfig(), Dependencies{Store: f.store, Embedder: f.embedder, Renderer: rec, Logger: logging.Discard()})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), Request{Path: f.write(t, "a.txt", prose(2000))})
	require.NoError(t, err)

	var last ui.ProgressEvent
	stages := map[ui.Stage]bool{}
	for _, e := range rec.events {
		stages[e.Stage] = true
		if e.Stage == ui.StageEmbedding {
			last = e
		}
	}
	assert.True(t, stages[ui.StageValidating])
	assert.True(t, stages[ui.StageChunking])
	assert.True(t, stages[ui.StageStoring])
	assert.Equal(t, res.Chunks, last.Current)
	assert.Equal(t, res.Chunks, last.Total)
}

func TestRun_RelativePathIsStoredAbsolute(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.write(t, "rel.txt", "relative content")
	t.Chdir(f.dir)

	res, err := f.pipeline.Run(context.Background(), Request{Path: "rel.txt"})
	require.NoError(t, err)

	abs, err := filepath.Abs("rel.txt")
	require.NoError(t, err)
	assert.Equal(t, abs, res.SourcePath)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.New())
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 32, cfg.BatchSize)
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "persisted", StatePersisted.String())
	assert.Equal(t, "duplicate", OutcomeDuplicate.String())
	assert.Equal(t, "unknown", State(42).String())
}
