package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ram/internal/config"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"", ProviderStatic, false},
		{"Static", ProviderStatic, false},
		{" ollama ", ProviderOllama, false},
		{"mlx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromConfig_StaticIsLazyAndCached(t *testing.T) {
	// Given: the default configuration
	cfg := config.New()
	cfg.Embeddings.Dimensions = 64

	// When: building the provider
	lazy, err := FromConfig(cfg)
	require.NoError(t, err)

	// Then: nothing is loaded until first use
	assert.False(t, lazy.Loaded())
	assert.Equal(t, 64, lazy.Dimensions())
	assert.Equal(t, "static-hash-64", lazy.ModelName())

	vec, err := lazy.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 64)

	inner, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &CachedEmbedder{}, inner)
}

func TestFromConfig_OllamaUnreachable(t *testing.T) {
	cfg := config.New()
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = "http://127.0.0.1:1"

	lazy, err := FromConfig(cfg)
	require.NoError(t, err)

	_, err = lazy.Get(context.Background())
	assert.Error(t, err)
}
