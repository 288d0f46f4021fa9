// Package config loads the immutable RAM configuration.
//
// Values are layered in order of increasing precedence:
//  1. Built-in defaults
//  2. Global config (~/.ragged_memory/config.toml)
//  3. Project config (<root>/.ram.yaml)
//  4. Project dotenv (<root>/.env), never overriding the real environment
//  5. Environment variables (RAM_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

const (
	// StoreDirName is the directory name of a store, both under the home directory
	// (global) and inside a project root (local).
	StoreDirName = ".ragged_memory"

	// GlobalConfigFile is the TOML file inside the global store directory.
	GlobalConfigFile = "config.toml"

	// ProjectConfigFile is the optional YAML file in a project root.
	ProjectConfigFile = ".ram.yaml"

	// Default scope modes.
	ScopeAuto   = "auto"
	ScopeLocal  = "local"
	ScopeGlobal = "global"
)

// Config is the complete RAM configuration. It is built once per process by Load
// and passed by value afterwards.
type Config struct {
	// GlobalDir is the per-user store directory. It is not read from config files
	// because the global config file lives inside it.
	GlobalDir string `toml:"-" yaml:"-"`

	DefaultScope string           `toml:"default_scope" yaml:"default_scope"`
	Embeddings   EmbeddingsConfig `toml:"embeddings" yaml:"embeddings"`
	Chunking     ChunkingConfig   `toml:"chunking" yaml:"chunking"`
	Indexing     IndexingConfig   `toml:"indexing" yaml:"indexing"`
	Store        StoreConfig      `toml:"store" yaml:"store"`
	LogLevel     string           `toml:"log_level" yaml:"log_level"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `toml:"provider" yaml:"provider"`
	Model      string `toml:"model" yaml:"model"`
	Dimensions int    `toml:"dimensions" yaml:"dimensions"`
	BatchSize  int    `toml:"batch_size" yaml:"batch_size"`
	OllamaHost string `toml:"ollama_host" yaml:"ollama_host"`
	CacheSize  int    `toml:"cache_size" yaml:"cache_size"`
}

// ChunkingConfig sets chunk target size and overlap, in characters.
type ChunkingConfig struct {
	Size    int `toml:"size" yaml:"size"`
	Overlap int `toml:"overlap" yaml:"overlap"`
}

// IndexingConfig bounds what the pipeline accepts.
type IndexingConfig struct {
	MaxFileSize int64 `toml:"max_file_size" yaml:"max_file_size"`
}

// StoreConfig configures on-disk store access.
type StoreConfig struct {
	// LockTimeout is a Go duration string, e.g. "5s".
	LockTimeout string `toml:"lock_timeout" yaml:"lock_timeout"`
}

// New returns the built-in defaults.
func New() Config {
	return Config{
		GlobalDir:    DefaultGlobalDir(),
		DefaultScope: ScopeAuto,
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "static-hash",
			Dimensions: 384,
			BatchSize:  32,
			OllamaHost: "http://localhost:11434",
			CacheSize:  256,
		},
		Chunking: ChunkingConfig{
			Size:    512,
			Overlap: 50,
		},
		Indexing: IndexingConfig{
			MaxFileSize: 10 * 1024 * 1024,
		},
		Store: StoreConfig{
			LockTimeout: "5s",
		},
		LogLevel: "info",
	}
}

// DefaultGlobalDir returns $RAM_GLOBAL_DIR or ~/.ragged_memory.
func DefaultGlobalDir() string {
	if v := os.Getenv("RAM_GLOBAL_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), StoreDirName)
	}
	return filepath.Join(home, StoreDirName)
}

// Load builds the configuration for a run. globalDir may be empty to use the
// default; projectRoot may be empty when no project was found.
func Load(globalDir, projectRoot string) (Config, error) {
	cfg := New()
	if globalDir != "" {
		cfg.GlobalDir = globalDir
	}

	if fileCfg, err := loadTOML(filepath.Join(cfg.GlobalDir, GlobalConfigFile)); err != nil {
		return Config{}, err
	} else if fileCfg != nil {
		cfg.mergeWith(fileCfg)
	}

	env := osEnv
	if projectRoot != "" {
		if fileCfg, err := loadYAML(filepath.Join(projectRoot, ProjectConfigFile)); err != nil {
			return Config{}, err
		} else if fileCfg != nil {
			cfg.mergeWith(fileCfg)
		}

		dotenv, err := readDotEnv(filepath.Join(projectRoot, ".env"))
		if err != nil {
			return Config{}, err
		}
		env = layeredEnv(dotenv)
	}

	cfg.applyEnvOverrides(env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeWith copies non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.DefaultScope != "" {
		c.DefaultScope = other.DefaultScope
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}

	e := other.Embeddings
	if e.Provider != "" {
		c.Embeddings.Provider = e.Provider
	}
	if e.Model != "" {
		c.Embeddings.Model = e.Model
	}
	if e.Dimensions != 0 {
		c.Embeddings.Dimensions = e.Dimensions
	}
	if e.BatchSize != 0 {
		c.Embeddings.BatchSize = e.BatchSize
	}
	if e.OllamaHost != "" {
		c.Embeddings.OllamaHost = e.OllamaHost
	}
	if e.CacheSize != 0 {
		c.Embeddings.CacheSize = e.CacheSize
	}

	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}
	if other.Indexing.MaxFileSize != 0 {
		c.Indexing.MaxFileSize = other.Indexing.MaxFileSize
	}
	if other.Store.LockTimeout != "" {
		c.Store.LockTimeout = other.Store.LockTimeout
	}
}

// LockTimeout returns the parsed store lock timeout. Validate guarantees it parses.
func (c Config) LockTimeout() time.Duration {
	d, err := time.ParseDuration(c.Store.LockTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// LocalStoreDir returns the local store directory for a project root.
func LocalStoreDir(root string) string {
	return filepath.Join(root, StoreDirName)
}

// Validate rejects configurations the core cannot run with.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return ramerrors.ConfigError(fmt.Sprintf(format, args...), nil).
			WithSuggestion("check " + filepath.Join(c.GlobalDir, GlobalConfigFile) + ", " + ProjectConfigFile + " and RAM_* variables")
	}

	if c.GlobalDir == "" {
		return invalid("global store directory is empty")
	}

	switch strings.ToLower(c.DefaultScope) {
	case ScopeAuto, ScopeLocal, ScopeGlobal:
	default:
		return invalid("default_scope must be 'auto', 'local' or 'global', got %q", c.DefaultScope)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "static", "ollama":
	default:
		return invalid("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions <= 0 {
		return invalid("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return invalid("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}

	if c.Chunking.Size <= 0 {
		return invalid("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return invalid("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}

	if c.Indexing.MaxFileSize <= 0 {
		return invalid("indexing.max_file_size must be positive, got %d", c.Indexing.MaxFileSize)
	}

	if d, err := time.ParseDuration(c.Store.LockTimeout); err != nil || d <= 0 {
		return invalid("store.lock_timeout must be a positive duration, got %q", c.Store.LockTimeout)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level must be 'debug', 'info', 'warn' or 'error', got %q", c.LogLevel)
	}

	return nil
}
