// Package embed generates and caches vector embeddings for chunk text.
package embed

import (
	"context"
	"math"
	"time"
)

// Batch and timeout defaults for the Ollama embedding backend.
const (
	MinBatchSize = 1
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultWarmTimeout is the timeout for requests once the model is
	// already loaded in Ollama.
	DefaultWarmTimeout = 30 * time.Second

	// DefaultColdTimeout is the timeout for the first request, which may
	// need to wait for Ollama to load the model.
	DefaultColdTimeout = 120 * time.Second

	// ModelUnloadThreshold is how long Ollama keeps a model warm after
	// the last request; past this, requests use DefaultColdTimeout again.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the default total number of attempts, the
	// first one included, for an embedding request.
	DefaultMaxRetries = 3

	// DefaultModel is the embedding model used absent an explicit
	// override, matching spec.md's EMBEDDING_MODEL default.
	DefaultModel = "nomic-embed-text"

	// DefaultDimensions is used only as a last-resort fallback when the
	// backend's health check is skipped and auto-detection did not run.
	DefaultDimensions = 768
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedText generates an embedding for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// input order in the returned slice.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector scales v to unit length, returning it unchanged if
// it is the zero vector.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
