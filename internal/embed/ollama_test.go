package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "all-minilm:latest"}},
			})
		case "/api/embed":
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp := ollamaEmbedResponse{Model: req.Model}
			for i := range req.Input {
				vec := make([]float64, dims)
				vec[i%dims] = 2
				resp.Embeddings = append(resp.Embeddings, vec)
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	// Given: a fake Ollama server
	srv := newOllamaServer(t, 4)
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL + "/", Dimensions: 4, RequestsPerSecond: 1000})

	// When: embedding two texts
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})

	// Then: vectors are normalized and ordered
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0, 0}, vecs[1])
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_DimensionMismatch(t *testing.T) {
	srv := newOllamaServer(t, 3)
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, Dimensions: 4, RequestsPerSecond: 1000})

	_, err := e.Embed(context.Background(), "a")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 4")
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()
	e := NewOllamaEmbedder(OllamaConfig{Host: srv.URL, RequestsPerSecond: 1000})

	_, err := e.EmbedBatch(context.Background(), []string{"a"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.False(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_Closed(t *testing.T) {
	e := NewOllamaEmbedder(OllamaConfig{})
	require.NoError(t, e.Close())

	_, err := e.EmbedBatch(context.Background(), []string{"a"})

	assert.Error(t, err)
	assert.Equal(t, DefaultOllamaModel, e.ModelName())
}
