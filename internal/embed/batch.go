package embed

import (
	"context"
	"fmt"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// ProgressFunc is called after each batch with completed and total counts.
type ProgressFunc func(completed, total int)

// EmbedTexts embeds texts in batches of batchSize and returns one vector per
// text, in order. Any provider error, missing vector or wrong-length vector fails
// the whole call with an EmbeddingFailure; no partial result is returned.
func EmbedTexts(ctx context.Context, e Embedder, texts []string, batchSize int, progress ProgressFunc) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	dims := e.Dimensions()

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))

		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, failure(fmt.Sprintf("embedding batch %d-%d failed", start, end), err)
		}
		if len(vecs) != end-start {
			return nil, failure(fmt.Sprintf("provider returned %d vectors for %d texts", len(vecs), end-start), nil)
		}
		for i, v := range vecs {
			if len(v) != dims {
				return nil, failure(fmt.Sprintf("vector %d has %d dimensions, expected %d", start+i, len(v), dims), nil)
			}
		}

		out = append(out, vecs...)
		if progress != nil {
			progress(len(out), len(texts))
		}
	}
	return out, nil
}

func failure(msg string, cause error) *ramerrors.RamError {
	return ramerrors.New(ramerrors.ErrCodeEmbeddingFailed, msg, cause).
		WithSuggestion("check the embedding provider settings (RAM_EMBEDDER, RAM_OLLAMA_HOST)")
}
