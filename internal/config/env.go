package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// envLookup mirrors os.LookupEnv.
type envLookup func(key string) (string, bool)

var osEnv envLookup = os.LookupEnv

// readDotEnv parses a .env file. A missing file yields an empty map.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, ramerrors.ConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	return values, nil
}

// layeredEnv prefers the real environment and falls back to dotenv values.
func layeredEnv(dotenv map[string]string) envLookup {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// applyEnvOverrides applies RAM_* overrides. Unparseable numbers are ignored so a
// typo in the environment never masks a valid file value.
func (c *Config) applyEnvOverrides(lookup envLookup) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if v := get("RAM_EMBEDDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := get("RAM_EMBEDDING_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := get("RAM_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if n, err := strconv.Atoi(get("RAM_DIMENSIONS")); err == nil && n > 0 {
		c.Embeddings.Dimensions = n
	}
	if n, err := strconv.Atoi(get("RAM_CHUNK_SIZE")); err == nil && n > 0 {
		c.Chunking.Size = n
	}
	if n, err := strconv.Atoi(get("RAM_CHUNK_OVERLAP")); err == nil && n >= 0 {
		c.Chunking.Overlap = n
	}
	if n, err := strconv.ParseInt(get("RAM_MAX_FILE_SIZE"), 10, 64); err == nil && n > 0 {
		c.Indexing.MaxFileSize = n
	}
	if v := get("RAM_DEFAULT_SCOPE"); v != "" {
		c.DefaultScope = strings.ToLower(v)
	}
	if v := get("RAM_LOCK_TIMEOUT"); v != "" {
		c.Store.LockTimeout = v
	}
	if v := get("RAM_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}
