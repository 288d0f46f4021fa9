package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
	"github.com/Aman-CERP/ram/internal/scope"
)

const schema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
	id                 TEXT PRIMARY KEY,
	text               TEXT NOT NULL,
	vector             BLOB NOT NULL,
	source_path        TEXT NOT NULL,
	chunk_index        INTEGER NOT NULL CHECK (chunk_index >= 0),
	chunk_length       INTEGER NOT NULL CHECK (chunk_length > 0),
	indexed_at         TEXT NOT NULL,
	source_fingerprint TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_fingerprint ON memories(source_fingerprint);
CREATE INDEX IF NOT EXISTS idx_memories_source ON memories(source_path);
`

const (
	metaDimensions = "dimensions"
	metaModel      = "model"
	metaCreatedAt  = "created_at"
)

// timeLayout is ISO-8601 UTC with fixed-width nanoseconds so stored
// timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// MemoryStore is the persisted record collection of one scope. Each instance
// touches only its own location's directory.
//
// Reads see either none or all of a committed batch. Appends are serialized
// across processes by an exclusive lock file in the store directory.
type MemoryStore struct {
	loc    scope.Location
	opts   Options
	dbPath string
	lock   *writeLock

	mu sync.Mutex
	db *sql.DB

	// afterInsert runs after each row inside the append transaction.
	afterInsert func(i int) error
}

// Open binds a store to loc without touching disk. Initialize creates the
// store; reads against a store that was never initialized return no results.
func Open(loc scope.Location, opts Options) (*MemoryStore, error) {
	if loc.Dir == "" {
		return nil, ramerrors.New(ramerrors.ErrCodeInvalidInput, "store location has no directory", nil)
	}
	if opts.Dimensions <= 0 {
		return nil, ramerrors.New(ramerrors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid vector dimensions %d", opts.Dimensions), nil)
	}
	opts = opts.withDefaults()
	return &MemoryStore{
		loc:    loc,
		opts:   opts,
		dbPath: filepath.Join(loc.Dir, DBFileName),
		lock:   newWriteLock(loc.Dir),
	}, nil
}

// Location returns the scope location this store is bound to.
func (s *MemoryStore) Location() scope.Location {
	return s.loc
}

// Exists reports whether the store has been initialized on disk.
func (s *MemoryStore) Exists() bool {
	info, err := os.Stat(s.dbPath)
	return err == nil && info.Mode().IsRegular()
}

// Initialize creates the store directory and an empty collection. It is
// idempotent: an existing store is left untouched and reported as such.
func (s *MemoryStore) Initialize(ctx context.Context) (InitResult, error) {
	result := InitResult{Dir: s.loc.Dir, AlreadyInitialized: s.Exists()}

	if err := os.MkdirAll(s.loc.Dir, 0o755); err != nil {
		return result, mapWriteErr("failed to create store directory", s.loc.Dir, err)
	}

	db, err := s.conn(ctx, true)
	if err != nil {
		return result, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, mapWriteErr("failed to begin transaction", s.dbPath, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)
	for key, value := range map[string]string{
		metaDimensions: strconv.Itoa(s.opts.Dimensions),
		metaModel:      s.opts.Model,
		metaCreatedAt:  now,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO store_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return result, mapWriteErr("failed to write store metadata", s.dbPath, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return result, mapWriteErr("failed to commit store metadata", s.dbPath, err)
	}

	if err := s.checkDimensions(ctx, db); err != nil {
		return result, err
	}

	s.opts.Logger.Info("store initialized",
		slogScope(s.loc)...,
	)
	return result, nil
}

// ErrDuplicateContent is returned by AppendUnique when another writer stored
// the same fingerprint first.
var ErrDuplicateContent = errors.New("content with this fingerprint is already stored")

// Append persists records as one all-or-nothing batch. On any failure no
// record of the batch is visible to later reads.
func (s *MemoryStore) Append(ctx context.Context, records []Record) error {
	return s.append(ctx, records, "")
}

// AppendUnique is Append that first checks, under the write lock and inside
// the same transaction, that no record carries fingerprint fp. If one does it
// writes nothing and returns ErrDuplicateContent.
func (s *MemoryStore) AppendUnique(ctx context.Context, records []Record, fp string) error {
	return s.append(ctx, records, fp)
}

func (s *MemoryStore) append(ctx context.Context, records []Record, uniqueFP string) error {
	if len(records) == 0 {
		return nil
	}
	for i, r := range records {
		if len(r.Vector) != s.opts.Dimensions {
			return ramerrors.New(ramerrors.ErrCodeDimensionMismatch,
				fmt.Sprintf("record %d has %d dimensions, store expects %d", i, len(r.Vector), s.opts.Dimensions), nil)
		}
		if r.ChunkLength <= 0 || r.ChunkIndex < 0 {
			return ramerrors.New(ramerrors.ErrCodeStorageWrite,
				fmt.Sprintf("record %d has invalid chunk index %d or length %d", i, r.ChunkIndex, r.ChunkLength), nil)
		}
	}

	if !s.Exists() {
		return ramerrors.New(ramerrors.ErrCodeStorageWrite,
			fmt.Sprintf("store at %s is not initialized", s.loc.Dir), nil).
			WithSuggestion("run 'ram init' first")
	}
	db, err := s.conn(ctx, false)
	if err != nil {
		return err
	}

	if err := s.lock.acquire(ctx, s.opts.LockTimeout); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.release(); err != nil {
			s.opts.Logger.Warn("failed to release write lock", "error", err)
		}
	}()

	if err := s.insertBatch(ctx, db, records, uniqueFP); err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	s.opts.Logger.Debug("records appended",
		append(slogScope(s.loc), "count", len(records))...,
	)
	return nil
}

func (s *MemoryStore) insertBatch(ctx context.Context, db *sql.DB, records []Record, uniqueFP string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapWriteErr("failed to begin transaction", s.dbPath, err)
	}
	defer func() { _ = tx.Rollback() }()

	if uniqueFP != "" {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM memories WHERE source_fingerprint = ? LIMIT 1`, uniqueFP).Scan(&one)
		switch {
		case err == nil:
			return ErrDuplicateContent
		case !errors.Is(err, sql.ErrNoRows):
			return mapWriteErr("failed to check fingerprint", s.dbPath, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memories
			(id, text, vector, source_path, chunk_index, chunk_length, indexed_at, source_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return mapWriteErr("failed to prepare insert", s.dbPath, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		indexedAt := r.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			id, r.Text, encodeVector(r.Vector), r.SourcePath,
			r.ChunkIndex, r.ChunkLength, indexedAt.UTC().Format(timeLayout), r.SourceFingerprint,
		); err != nil {
			return mapWriteErr(fmt.Sprintf("failed to insert record %d", i), s.dbPath, err)
		}
		if s.afterInsert != nil {
			if err := s.afterInsert(i); err != nil {
				return mapWriteErr(fmt.Sprintf("failed after record %d", i), s.dbPath, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return mapWriteErr("failed to commit batch", s.dbPath, err)
	}
	return nil
}

// FindByFingerprint lists each distinct (source path, indexed at) pair whose
// records carry fp, oldest first. The result is empty for an unknown
// fingerprint.
func (s *MemoryStore) FindByFingerprint(ctx context.Context, fp string) ([]SourceRef, error) {
	if !s.Exists() {
		return nil, nil
	}
	db, err := s.conn(ctx, false)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT source_path, indexed_at
		FROM memories
		WHERE source_fingerprint = ?
		GROUP BY source_path, indexed_at
		ORDER BY MIN(rowid)`, fp)
	if err != nil {
		return nil, readErr("failed to query fingerprint", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []SourceRef
	for rows.Next() {
		var ref SourceRef
		var ts string
		if err := rows.Scan(&ref.SourcePath, &ts); err != nil {
			return nil, readErr("failed to scan source ref", err)
		}
		ref.IndexedAt, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, corruptErr(fmt.Sprintf("invalid timestamp %q", ts), err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("failed to iterate source refs", err)
	}
	return refs, nil
}

// List returns records matching filter in insertion order.
func (s *MemoryStore) List(ctx context.Context, filter *Filter) ([]Record, error) {
	if !s.Exists() {
		return nil, nil
	}
	db, err := s.conn(ctx, false)
	if err != nil {
		return nil, err
	}

	where, args := filter.clause()
	query := `SELECT id, text, vector, source_path, chunk_index, chunk_length, indexed_at, source_fingerprint
		FROM memories` + where + ` ORDER BY rowid`
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readErr("failed to list records", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("failed to iterate records", err)
	}
	return out, nil
}

// Stats summarizes the store. An uninitialized store reports zero counts and
// the configured dimensions.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Dimensions: s.opts.Dimensions, Model: s.opts.Model}
	if !s.Exists() {
		return st, nil
	}
	db, err := s.conn(ctx, false)
	if err != nil {
		return st, err
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_path) FROM memories`).Scan(&st.Records, &st.Sources); err != nil {
		return st, readErr("failed to count records", err)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return st, err
	}
	if v, ok := meta[metaModel]; ok && v != "" {
		st.Model = v
	}
	if v, ok := meta[metaCreatedAt]; ok {
		if ts, err := time.Parse(timeLayout, v); err == nil {
			st.CreatedAt = ts
		}
	}
	return st, nil
}

// Close releases the database handle. The store can be reopened by any
// subsequent call.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// conn lazily opens the database. When create is false the file must already
// exist; sqlite would otherwise create an empty database as a side effect.
func (s *MemoryStore) conn(ctx context.Context, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}
	if !create && !s.Exists() {
		return nil, readErr(fmt.Sprintf("store at %s is not initialized", s.loc.Dir), os.ErrNotExist)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, corruptErr("failed to open store database", err)
	}
	// Single connection so pragmas apply to every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, mapWriteErr(fmt.Sprintf("failed to apply %q", p), s.dbPath, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, mapWriteErr("failed to create schema", s.dbPath, err)
	}

	if !create {
		if err := s.checkDimensions(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s.db = db
	return db, nil
}

// checkDimensions fails when the persisted vector length differs from the
// configured one. Mixing lengths would make every similarity query invalid.
func (s *MemoryStore) checkDimensions(ctx context.Context, db *sql.DB) error {
	meta, err := readMeta(ctx, db)
	if err != nil {
		return err
	}
	raw, ok := meta[metaDimensions]
	if !ok {
		return nil
	}
	stored, err := strconv.Atoi(raw)
	if err != nil {
		return corruptErr(fmt.Sprintf("invalid stored dimensions %q", raw), err)
	}
	if stored != s.opts.Dimensions {
		return ramerrors.New(ramerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("store at %s holds %d-dimensional vectors, embedder produces %d", s.loc.Dir, stored, s.opts.Dimensions), nil).
			WithDetail("stored_model", meta[metaModel]).
			WithSuggestion(fmt.Sprintf("set RAM_DIMENSIONS=%d or use the embedder the store was created with", stored))
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM store_meta`)
	if err != nil {
		return nil, readErr("failed to read store metadata", err)
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, readErr("failed to scan store metadata", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("failed to iterate store metadata", err)
	}
	return meta, nil
}

func (f *Filter) clause() (string, []any) {
	if f == nil {
		return "", nil
	}
	var conds []string
	var args []any
	if f.SourcePath != "" {
		conds = append(conds, "source_path = ?")
		args = append(args, f.SourcePath)
	}
	if f.SourceFingerprint != "" {
		conds = append(conds, "source_fingerprint = ?")
		args = append(args, f.SourceFingerprint)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var blob []byte
	var ts string
	if err := row.Scan(&r.ID, &r.Text, &blob, &r.SourcePath, &r.ChunkIndex, &r.ChunkLength, &ts, &r.SourceFingerprint); err != nil {
		return r, readErr("failed to scan record", err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return r, corruptErr(fmt.Sprintf("record %s has a malformed vector", r.ID), err)
	}
	r.Vector = vec
	r.IndexedAt, err = time.Parse(timeLayout, ts)
	if err != nil {
		return r, corruptErr(fmt.Sprintf("record %s has invalid timestamp %q", r.ID, ts), err)
	}
	return r, nil
}

func mapWriteErr(msg, path string, err error) *ramerrors.RamError {
	if errors.Is(err, os.ErrPermission) {
		return ramerrors.New(ramerrors.ErrCodeStorageWrite, msg, err).
			WithDetail("path", path).
			WithSuggestion("check write permissions on the store directory")
	}
	return ramerrors.New(ramerrors.ErrCodeStorageWrite, msg, err).WithDetail("path", path)
}

func readErr(msg string, err error) *ramerrors.RamError {
	return ramerrors.New(ramerrors.ErrCodeStorageRead, msg, err)
}

func corruptErr(msg string, err error) *ramerrors.RamError {
	return ramerrors.New(ramerrors.ErrCodeCorruptStore, msg, err).
		WithSuggestion("the store may be damaged; move it aside and re-index")
}

func slogScope(loc scope.Location) []any {
	return []any{"scope", loc.Scope.String(), "dir", loc.Dir}
}
