package embed

import (
	"context"

	"github.com/Aman-CERP/codesearch/internal/chunk"
)

// Options configures a single embedding call.
type Options struct {
	// Model is the embedding model name. Empty uses the client's
	// default model.
	Model string

	// UseCache consults and populates the embedding cache. The zero
	// value is false, so each call opts in; it has no effect on a
	// Client built without a cache.
	UseCache bool
}

// Client is the spec-facing embedding surface: embed_text, embed_batch,
// embed_chunks, each cache-first when UseCache is set. It composes an
// Embedder backend with a Cache, rather than being a backend itself.
type Client struct {
	backend Embedder
	cache   *Cache
}

// NewClient builds a Client around a backend embedder and cache.
// cache may be nil, in which case UseCache is always treated as false.
func NewClient(backend Embedder, cache *Cache) *Client {
	return &Client{backend: backend, cache: cache}
}

func (c *Client) useCache(opts Options) bool {
	return c.cache != nil && opts.UseCache
}

// EmbedText embeds a single text, consulting the cache first when
// enabled.
func (c *Client) EmbedText(ctx context.Context, text string, opts Options) ([]float32, error) {
	if !c.useCache(opts) {
		return c.backend.EmbedText(ctx, text)
	}
	return c.cache.GetOrEmbed(ctx, text, func(ctx context.Context) ([]float32, error) {
		return c.backend.EmbedText(ctx, text)
	})
}

// EmbedBatch embeds multiple texts, preserving input order. Cache hits
// are resolved individually; all misses are dispatched to the backend
// in a single batch call that preserves original index positions.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, opts Options) ([][]float32, error) {
	if !c.useCache(opts) {
		return c.backend.EmbedBatch(ctx, texts)
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := c.backend.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for i, idx := range missIdx {
		results[idx] = embedded[i]
		c.cache.Put(missTexts[i], embedded[i])
	}

	return results, nil
}

// EmbedChunks embeds a batch of chunks' text and returns one
// EmbeddingResult per input chunk, in input order.
func (c *Client) EmbedChunks(ctx context.Context, chunks []*chunk.Chunk, opts Options) ([]EmbeddingResult, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := c.EmbedBatch(ctx, texts, opts)
	if err != nil {
		return nil, err
	}

	results := make([]EmbeddingResult, len(chunks))
	for i, ch := range chunks {
		results[i] = EmbeddingResult{
			ChunkID:     ch.ID,
			DenseVector: vectors[i],
		}
	}
	return results, nil
}

// Dimensions returns the backend's dense vector width, for sizing a
// Qdrant collection before any embedding has happened.
func (c *Client) Dimensions() int {
	return c.backend.Dimensions()
}

// EmbeddingResult pairs a chunk's identity with its dense vector, as
// produced by EmbedChunks. SparseVector is attached by the indexer
// (internal/sparse), not by the embedding client.
type EmbeddingResult struct {
	ChunkID      string
	DenseVector  []float32
	SparseIdx    []uint32
	SparseValues []float32
}
