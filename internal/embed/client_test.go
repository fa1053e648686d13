package embed

import (
	"context"
	"testing"

	"github.com/Aman-CERP/codesearch/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls     int
	batchSize int
	dims      int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSize = len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vec(t)
	}
	return out, nil
}

func (f *fakeEmbedder) vec(text string) []float32 {
	dims := f.dims
	if dims == 0 {
		dims = 2
	}
	v := make([]float32, dims)
	v[0] = float32(len(text))
	return v
}

func (f *fakeEmbedder) Dimensions() int         { return 2 }
func (f *fakeEmbedder) ModelName() string       { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error            { return nil }

func TestClient_EmbedText_CacheHitSkipsBackend(t *testing.T) {
	backend := &fakeEmbedder{}
	client := NewClient(backend, NewCache(DefaultCacheOptions()))

	v1, err := client.EmbedText(context.Background(), "hello", Options{UseCache: true})
	require.NoError(t, err)
	v2, err := client.EmbedText(context.Background(), "hello", Options{UseCache: true})
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, backend.calls)
}

func TestClient_EmbedBatch_OnlyDispatchesMisses(t *testing.T) {
	backend := &fakeEmbedder{}
	cache := NewCache(DefaultCacheOptions())
	client := NewClient(backend, cache)

	_, err := client.EmbedText(context.Background(), "cached", Options{UseCache: true})
	require.NoError(t, err)

	results, err := client.EmbedBatch(context.Background(), []string{"cached", "new-one"}, Options{UseCache: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, backend.batchSize, "only the uncached text should reach the backend batch call")
}

func TestClient_EmbedBatch_NoCache_AlwaysHitsBackend(t *testing.T) {
	backend := &fakeEmbedder{}
	client := NewClient(backend, nil)

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b"}, Options{UseCache: false})
	require.NoError(t, err)
	_, err = client.EmbedBatch(context.Background(), []string{"a", "b"}, Options{UseCache: false})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestClient_EmbedChunks_MapsChunkIDToVector(t *testing.T) {
	backend := &fakeEmbedder{}
	client := NewClient(backend, nil)

	chunks := []*chunk.Chunk{
		{ID: "a-1-foo", Text: "func foo() {}"},
		{ID: "a-5-bar", Text: "func bar() {}"},
	}

	results, err := client.EmbedChunks(context.Background(), chunks, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a-1-foo", results[0].ChunkID)
	assert.Equal(t, "a-5-bar", results[1].ChunkID)
	assert.NotEmpty(t, results[0].DenseVector)
}
