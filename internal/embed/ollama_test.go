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

func newStubOllamaServer(t *testing.T, model string, dims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OllamaModelListResponse{
			Models: []OllamaModelInfo{{Name: model}},
		})
	})

	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var n int
		switch v := req.Input.(type) {
		case string:
			n = 1
		case []any:
			n = len(v)
		}

		embeddings := make([][]float64, n)
		for i := range embeddings {
			vec := make([]float64, dims)
			for j := range vec {
				vec[j] = 1.0
			}
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(OllamaEmbedResponse{Model: model, Embeddings: embeddings})
	})

	return httptest.NewServer(mux)
}

func TestOllamaEmbedder_EmbedText_ReturnsNormalizedVector(t *testing.T) {
	srv := newStubOllamaServer(t, "nomic-embed-text", 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.InDelta(t, 0.5, vec[0], 0.01)
}

func TestOllamaEmbedder_EmbedText_BlankInputSkipsBackend(t *testing.T) {
	srv := newStubOllamaServer(t, "nomic-embed-text", 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	require.NoError(t, err)
	defer e.Close()

	vec, err := e.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 4), vec)
}

func TestOllamaEmbedder_EmbedBatch_PreservesOrderAndBlanks(t *testing.T) {
	srv := newStubOllamaServer(t, "nomic-embed-text", 3)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	require.NoError(t, err)
	defer e.Close()

	texts := []string{"one", "", "three"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, make([]float32, 3), vecs[1])
	assert.NotEqual(t, make([]float32, 3), vecs[0])
}

func TestOllamaEmbedder_UnknownModel_FailsConstruction(t *testing.T) {
	srv := newStubOllamaServer(t, "other-model", 4)
	defer srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	assert.Error(t, err)
}

func TestOllamaEmbedder_SkipHealthCheck_UsesFallbackDimensions(t *testing.T) {
	srv := newStubOllamaServer(t, "nomic-embed-text", 4)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: srv.URL, Model: "nomic-embed-text", SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}
