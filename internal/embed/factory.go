package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/ram/internal/config"
)

// ProviderType identifies an embedding backend.
type ProviderType string

const (
	// ProviderStatic is the hash-based embedder, always available.
	ProviderStatic ProviderType = "static"
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// ParseProvider parses a provider name. Unknown names are an error.
func ParseProvider(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderStatic, "":
		return ProviderStatic, nil
	case ProviderOllama:
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (use static or ollama)", s)
	}
}

// FromConfig returns the process-wide provider for cfg: lazily constructed and
// wrapped in an LRU cache.
func FromConfig(cfg config.Config) (*Lazy, error) {
	provider, err := ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return nil, err
	}
	ec := cfg.Embeddings

	var factory Factory
	model := ec.Model
	switch provider {
	case ProviderOllama:
		factory = func(ctx context.Context) (Embedder, error) {
			e := NewOllamaEmbedder(OllamaConfig{
				Host:       ec.OllamaHost,
				Model:      ec.Model,
				Dimensions: ec.Dimensions,
			})
			if !e.Available(ctx) {
				_ = e.Close()
				return nil, fmt.Errorf("ollama at %s is unreachable or model %q is not installed", ec.OllamaHost, ec.Model)
			}
			return NewCachedEmbedder(e, ec.CacheSize), nil
		}
	default:
		model = NewStaticEmbedder(ec.Dimensions).ModelName()
		factory = func(context.Context) (Embedder, error) {
			return NewCachedEmbedder(NewStaticEmbedder(ec.Dimensions), ec.CacheSize), nil
		}
	}

	return NewLazy(factory, ec.Dimensions, model), nil
}
