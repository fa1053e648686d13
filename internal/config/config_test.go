package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsValidDefaults(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultCollection, cfg.Collection)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 0.65, cfg.Search.BM25Weight)
	assert.Equal(t, 0.35, cfg.Search.SemanticWeight)
}

func TestLoad_NoConfigFile_UsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultCollection, cfg.Collection)
}

func TestLoad_ProjectYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
collection: myproject
search:
  bm25_weight: 0.5
  semantic_weight: 0.5
qdrant:
  host: qdrant.internal
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codesearch.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "myproject", cfg.Collection)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codesearch.yml"), []byte("collection: fromyml\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fromyml", cfg.Collection)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".codesearch.yaml"), []byte("collection: fromfile\n"), 0o644))

	t.Setenv("RLM_COLLECTION", "fromenv")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Collection)
}

func TestEnvOverrides_QdrantURLStripsScheme(t *testing.T) {
	cfg := New()
	t.Setenv("QDRANT_URL", "https://qdrant.example.com:6334/")
	cfg.applyEnvOverrides()
	assert.Equal(t, "qdrant.example.com", cfg.Qdrant.Host)
}

func TestEnvOverrides_GRPCPortAndEmbeddingModel(t *testing.T) {
	cfg := New()
	t.Setenv("QDRANT_GRPC_PORT", "7000")
	t.Setenv("EMBEDDING_MODEL", "custom-model")
	t.Setenv("OLLAMA_HOST", "http://ollama.internal:11434")
	cfg.applyEnvOverrides()
	assert.Equal(t, 7000, cfg.Qdrant.Port)
	assert.Equal(t, "custom-model", cfg.Embeddings.Model)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Embeddings.OllamaHost)
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := New()
	cfg.Search.BM25Weight = 0.9
	cfg.Search.SemanticWeight = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsEmptyCollection(t *testing.T) {
	cfg := New()
	cfg.Collection = ""
	assert.Error(t, cfg.Validate())
}

func TestVectorStoreConfig_Adapts(t *testing.T) {
	cfg := New()
	cfg.Qdrant.Host = "myhost"
	cfg.Qdrant.Port = 1234
	vsCfg := cfg.VectorStoreConfig()
	assert.Equal(t, "myhost", vsCfg.Host)
	assert.Equal(t, 1234, vsCfg.Port)
}

func TestEmbedConfig_Adapts(t *testing.T) {
	cfg := New()
	cfg.Embeddings.Model = "mymodel"
	embedCfg := cfg.EmbedConfig()
	assert.Equal(t, "mymodel", embedCfg.Model)
	assert.True(t, embedCfg.UseCache)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := New()
	cfg.Collection = "roundtrip"
	require.NoError(t, cfg.WriteYAML(path))

	loaded := New()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, "roundtrip", loaded.Collection)
}
