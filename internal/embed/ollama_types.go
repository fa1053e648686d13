package embed

import "time"

// Ollama API defaults.
const (
	DefaultOllamaHost = "http://localhost:11434"

	// OllamaConnectTimeout bounds the initial health check / model
	// discovery call.
	OllamaConnectTimeout = 5 * time.Second

	// OllamaPoolSize is the HTTP connection pool size for the Ollama
	// client.
	OllamaPoolSize = 4
)

// OllamaConfig configures the Ollama-backed embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string

	// Model is the embedding model to request.
	Model string

	// Dimensions overrides auto-detection (0 = auto-detect from a
	// probe embedding).
	Dimensions int

	// BatchSize bounds how many texts are sent per /api/embed call.
	BatchSize int

	// MaxRetries is the total number of attempts, the first one
	// included, an embedding request gets before giving up.
	MaxRetries int

	// PoolSize is the HTTP connection pool size.
	PoolSize int

	// SkipHealthCheck skips the startup model-availability probe, for
	// tests that construct an embedder against a stub server.
	SkipHealthCheck bool

	// ProgressFunc is called after each batch completes within
	// EmbedBatch, with (completed, total) counts over non-empty texts.
	ProgressFunc func(completed, total int)
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:       DefaultOllamaHost,
		Model:      DefaultModel,
		Dimensions: 0,
		BatchSize:  DefaultBatchSize,
		MaxRetries: DefaultMaxRetries,
		PoolSize:   OllamaPoolSize,
	}
}

// OllamaEmbedRequest is the Ollama /api/embed request body. Truncate
// delegates any over-length handling to the backend rather than the
// client pre-trimming text itself.
type OllamaEmbedRequest struct {
	Model    string `json:"model"`
	Input    any    `json:"input"`
	Truncate bool   `json:"truncate"`
}

// OllamaEmbedResponse is the Ollama /api/embed response.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the Ollama /api/tags response.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes one installed model.
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
