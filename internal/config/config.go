// Package config resolves the engine's runtime configuration from, in
// order of increasing precedence: hardcoded defaults, a project YAML
// file (.codesearch.yaml / .codesearch.yml in the target directory),
// and environment variables. Grounded on the teacher's
// internal/config/config.go Load/mergeWith/applyEnvOverrides
// hierarchy, narrowed to the settings spec.md names: the Qdrant
// connection, the Ollama embedding backend, the collection name, the
// hybrid-search weights, and chunking sizes.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/codesearch/internal/embed"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

// DefaultCollection is the Qdrant collection name used when
// RLM_COLLECTION is unset.
const DefaultCollection = "codesearch"

// QdrantConfig holds the Qdrant connection settings, parsed from
// QDRANT_URL plus the gRPC-specific QDRANT_GRPC_PORT (Qdrant's HTTP
// and gRPC ports differ; go-client speaks gRPC only).
type QdrantConfig struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"grpc_port" json:"grpc_port"`
	APIKey string `yaml:"api_key" json:"api_key"`
	UseTLS bool   `yaml:"use_tls" json:"use_tls"`
}

// EmbeddingsConfig holds the Ollama embedding backend settings.
type EmbeddingsConfig struct {
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	Model      string `yaml:"model" json:"model"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	UseCache   bool   `yaml:"use_cache" json:"use_cache"`
}

// SearchConfig holds the hybrid-search fusion weights and chunking
// sizes.
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	RRFConstant    int     `yaml:"rrf_constant" json:"rrf_constant"`
	ChunkSize      int     `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap" json:"chunk_overlap"`
	MaxResults     int     `yaml:"max_results" json:"max_results"`
}

// PathsConfig holds additional include/exclude globs layered on top
// of the indexer's built-in defaults.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// PerformanceConfig holds indexing concurrency settings.
type PerformanceConfig struct {
	IndexWorkers int `yaml:"index_workers" json:"index_workers"`
}

// Config is the fully resolved engine configuration.
type Config struct {
	Collection  string            `yaml:"collection" json:"collection"`
	Qdrant      QdrantConfig      `yaml:"qdrant" json:"qdrant"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
}

// defaultExcludePatterns are always excluded by the indexer in
// addition to whatever a project config adds.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// New returns a Config populated with sensible defaults.
func New() *Config {
	return &Config{
		Collection: DefaultCollection,
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Embeddings: EmbeddingsConfig{
			OllamaHost: embed.DefaultOllamaHost,
			Model:      embed.DefaultModel,
			BatchSize:  32,
			UseCache:   true,
		},
		Search: SearchConfig{
			BM25Weight:     0.65,
			SemanticWeight: 0.35,
			RRFConstant:    60,
			ChunkSize:      1500,
			ChunkOverlap:   200,
			MaxResults:     20,
		},
		Paths: PathsConfig{
			Exclude: defaultExcludePatterns,
		},
		Performance: PerformanceConfig{
			IndexWorkers: 0, // 0 lets the caller fall back to runtime.NumCPU()
		},
	}
}

// Load resolves configuration for the project rooted at dir, applying
// in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.codesearch.yaml or .codesearch.yml in dir)
//  3. Environment variables (QDRANT_URL, QDRANT_GRPC_PORT, OLLAMA_URL,
//     OLLAMA_HOST, RLM_COLLECTION, EMBEDDING_MODEL)
func Load(dir string) (*Config, error) {
	cfg := New()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .codesearch.yaml
// or .codesearch.yml, preferring .yaml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".codesearch.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".codesearch.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file, replacing
// only the fields the file sets.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Collection != "" {
		c.Collection = other.Collection
	}

	if other.Qdrant.Host != "" {
		c.Qdrant.Host = other.Qdrant.Host
	}
	if other.Qdrant.Port != 0 {
		c.Qdrant.Port = other.Qdrant.Port
	}
	if other.Qdrant.APIKey != "" {
		c.Qdrant.APIKey = other.Qdrant.APIKey
	}
	if other.Qdrant.UseTLS {
		c.Qdrant.UseTLS = other.Qdrant.UseTLS
	}

	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.ChunkSize != 0 {
		c.Search.ChunkSize = other.Search.ChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
}

// applyEnvOverrides applies the environment variables spec.md §6
// names, at the highest precedence.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.Qdrant.Host = stripScheme(v)
	}
	if v := os.Getenv("QDRANT_GRPC_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Qdrant.Port = p
		}
	}

	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}

	if v := os.Getenv("RLM_COLLECTION"); v != "" {
		c.Collection = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
}

// stripScheme removes a leading http:// or https://, a trailing slash
// and any :port from a URL, leaving the bare host. The gRPC port comes
// from QDRANT_GRPC_PORT instead.
func stripScheme(url string) string {
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimSuffix(url, "/")
	if i := strings.Index(url, ":"); i >= 0 {
		return url[:i]
	}
	return url
}

// Validate rejects configurations that would produce nonsensical
// search or storage behavior.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}

	sum := c.Search.BM25Weight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.bm25_weight + search.semantic_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.ChunkSize < 0 {
		return fmt.Errorf("search.chunk_size must be non-negative, got %d", c.Search.ChunkSize)
	}
	if c.Collection == "" {
		return fmt.Errorf("collection must not be empty")
	}

	return nil
}

// VectorStoreConfig adapts the resolved Qdrant settings into
// vectorstore.Config.
func (c *Config) VectorStoreConfig() vectorstore.Config {
	return vectorstore.Config{
		Host:   c.Qdrant.Host,
		Port:   c.Qdrant.Port,
		APIKey: c.Qdrant.APIKey,
		UseTLS: c.Qdrant.UseTLS,
	}
}

// EmbedConfig adapts the resolved embedding settings into embed.Config.
func (c *Config) EmbedConfig() embed.Config {
	return embed.Config{
		OllamaHost:   c.Embeddings.OllamaHost,
		Model:        c.Embeddings.Model,
		UseCache:     c.Embeddings.UseCache,
		CacheOptions: embed.DefaultCacheOptions(),
	}
}

// WriteYAML writes the configuration to a YAML file, for `codesearch
// config init`-style bootstrapping.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
