package embed

import (
	"context"
	"fmt"
)

// Config selects the embedding backend and cache behavior, mirroring
// spec.md §4.E/§4.F's enumerated options plus the OLLAMA_URL/
// EMBEDDING_MODEL environment variables (internal/config resolves
// those into this struct before calling NewClientFromConfig).
type Config struct {
	OllamaHost   string
	Model        string
	UseCache     bool
	CacheOptions CacheOptions
}

// DefaultConfig returns the spec's default embedding configuration.
func DefaultConfig() Config {
	return Config{
		OllamaHost:   DefaultOllamaHost,
		Model:        DefaultModel,
		UseCache:     true,
		CacheOptions: DefaultCacheOptions(),
	}
}

// NewClientFromConfig builds a Client backed by Ollama and, when
// UseCache is set, a process-wide embedding cache.
func NewClientFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	backend, err := NewOllamaEmbedder(ctx, OllamaConfig{
		Host:  cfg.OllamaHost,
		Model: cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to construct ollama embedder: %w", err)
	}

	var cache *Cache
	if cfg.UseCache {
		cache = NewCache(cfg.CacheOptions)
	}

	return NewClient(backend, cache), nil
}
