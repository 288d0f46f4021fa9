package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("chunk %d", i)
	}
	return out
}

func TestEmbedTexts_BatchesAndPreservesOrder(t *testing.T) {
	// Given: 70 texts and a batch size of 32
	mock := newMockEmbedder(4)
	var progress []int

	// When: embedding
	vecs, err := EmbedTexts(context.Background(), mock, texts(70), 32, func(done, total int) {
		assert.Equal(t, 70, total)
		progress = append(progress, done)
	})

	// Then: three batches, one vector per text, in input order
	require.NoError(t, err)
	require.Len(t, vecs, 70)
	assert.Equal(t, int64(3), mock.batchCalls.Load())
	assert.Equal(t, []int{32, 64, 70}, progress)
	assert.Equal(t, mock.vector("chunk 69"), vecs[69])
}

func TestEmbedTexts_Empty(t *testing.T) {
	vecs, err := EmbedTexts(context.Background(), newMockEmbedder(4), nil, 0, nil)

	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEmbedTexts_FailuresAreEmbeddingFailure(t *testing.T) {
	tests := []struct {
		name string
		mock *mockEmbedder
	}{
		{"provider error on second batch", &mockEmbedder{dimensions: 4, failOnBatch: 2}},
		{"missing vectors", &mockEmbedder{dimensions: 4, shortBy: 1}},
		{"wrong dimension", &mockEmbedder{dimensions: 4, wrongDims: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vecs, err := EmbedTexts(context.Background(), tt.mock, texts(40), 32, nil)

			require.Error(t, err)
			assert.Nil(t, vecs)
			assert.True(t, errors.Is(err, ramerrors.ErrEmbeddingFailure))
		})
	}
}

func TestEmbedTexts_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := EmbedTexts(ctx, newMockEmbedder(4), texts(3), 2, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
