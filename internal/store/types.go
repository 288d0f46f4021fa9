// Package store persists memory records per scope and answers similarity and
// exact-filter queries over them.
package store

import (
	"log/slog"
	"time"
)

// Record is one persisted chunk with its vector and source metadata.
// Records are immutable once written.
type Record struct {
	ID                string
	Text              string
	Vector            []float32
	SourcePath        string
	ChunkIndex        int
	ChunkLength       int
	IndexedAt         time.Time
	SourceFingerprint string
}

// SourceRef identifies one indexing of a source file.
type SourceRef struct {
	SourcePath string
	IndexedAt  time.Time
}

// Filter restricts queries to records matching every non-empty field exactly.
type Filter struct {
	SourcePath        string
	SourceFingerprint string
	// Limit caps List results. Zero means no limit.
	Limit int
}

// SearchHit is a record with its cosine distance to the query.
type SearchHit struct {
	Record   Record
	Distance float32
}

// Score converts distance to a similarity in [0, 1].
func (h SearchHit) Score() float64 {
	return 1.0 - float64(h.Distance)/2.0
}

// InitResult reports what Initialize did.
type InitResult struct {
	Dir                string
	AlreadyInitialized bool
}

// Stats summarizes a store.
type Stats struct {
	Records    int
	Sources    int
	Dimensions int
	Model      string
	CreatedAt  time.Time
}

// Options configures a MemoryStore.
type Options struct {
	// Dimensions is the vector length every record must have.
	Dimensions int
	// Model is recorded at initialization for inspection.
	Model string
	// LockTimeout bounds how long Append waits for the write lock.
	LockTimeout time.Duration
	// ExactSearchLimit is the candidate count up to which Search scans
	// exhaustively; larger candidate sets go through an HNSW graph.
	ExactSearchLimit int
	Logger           *slog.Logger
}

const (
	// DBFileName is the SQLite file inside a store directory.
	DBFileName = "memories.db"

	lockFileName = ".write.lock"

	defaultLockTimeout      = 5 * time.Second
	defaultExactSearchLimit = 2000
)

func (o Options) withDefaults() Options {
	if o.LockTimeout <= 0 {
		o.LockTimeout = defaultLockTimeout
	}
	if o.ExactSearchLimit <= 0 {
		o.ExactSearchLimit = defaultExactSearchLimit
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
