package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_DimensionsAndNormalization(t *testing.T) {
	// Given: a static embedder with the default dimension
	e := NewStaticEmbedder(0)

	// When: embedding a sentence
	vec, err := e.Embed(context.Background(), "Remember to rotate the API keys every quarter.")

	// Then: the vector has the configured length and unit magnitude
	require.NoError(t, err)
	assert.Len(t, vec, DefaultDimensions)
	assert.InDelta(t, 1.0, vectorMagnitude(vec), 1e-5)
	assert.Equal(t, "static-hash-384", e.ModelName())
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(128)

	a, err := e.Embed(context.Background(), "deploy the staging cluster")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "deploy the staging cluster")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStaticEmbedder_SimilarTextScoresHigher(t *testing.T) {
	e := NewStaticEmbedder(384)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "database connection pool settings")
	near, _ := e.Embed(ctx, "configure the database connection pool size")
	far, _ := e.Embed(ctx, "chocolate cake recipe with berries")

	assert.Greater(t, cosineSimilarity(query, near), cosineSimilarity(query, far))
}

func TestStaticEmbedder_BlankTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(16)

	vec, err := e.Embed(context.Background(), "   ")

	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), vec)
}

func TestStaticEmbedder_ClosedFails(t *testing.T) {
	e := NewStaticEmbedder(16)
	require.NoError(t, e.Close())

	_, err := e.EmbedBatch(context.Background(), []string{"x"})

	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestTokenize_SplitsIdentifiers(t *testing.T) {
	assert.Equal(t, []string{"parse", "http", "request", "max", "retries"},
		tokenize("parseHTTPRequest max_retries"))
}
