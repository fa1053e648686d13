package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointToStruct_IncludesSparseVectorOnlyWhenPresent(t *testing.T) {
	dense := Point{
		ChunkID:     "abc-1-foo",
		DenseVector: []float32{0.1, 0.2},
		Path:        "main.go",
	}
	ps := pointToStruct(dense)
	require.NotNil(t, ps.Vectors)
	vecs := ps.Vectors.GetVectors()
	require.NotNil(t, vecs)
	_, hasSparse := vecs.Vectors[SparseFieldName]
	assert.False(t, hasSparse)
	_, hasDense := vecs.Vectors[DenseFieldName]
	assert.True(t, hasDense)

	hybrid := dense
	hybrid.SparseIdx = []uint32{1, 5}
	hybrid.SparseValues = []float32{1, 2}
	ps2 := pointToStruct(hybrid)
	_, hasSparse2 := ps2.Vectors.GetVectors().Vectors[SparseFieldName]
	assert.True(t, hasSparse2)
}

func TestPointToStruct_PayloadCarriesChunkMetadata(t *testing.T) {
	p := Point{
		ChunkID:    "h-10-bar",
		Path:       "pkg/bar.go",
		Language:   "go",
		SymbolType: "function",
		SymbolName: "Bar",
		StartLine:  10,
		EndLine:    20,
		FileHash:   "h",
		Text:       "func Bar() {}",
	}
	ps := pointToStruct(p)
	require.NotNil(t, ps.Payload)
	assert.Equal(t, "h-10-bar", ps.Payload["chunk_id"].GetStringValue())
	assert.Equal(t, "func Bar() {}", ps.Payload["text"].GetStringValue())
	assert.Equal(t, int64(10), ps.Payload["start_line"].GetIntegerValue())
}

func TestQuantizationConfig_DefaultsQuantile(t *testing.T) {
	cfg := quantizationConfig(QuantizationConfig{Enabled: true})
	assert.NotNil(t, cfg)
	assert.Equal(t, float32(DefaultQuantizationQuantile), cfg.GetScalar().GetQuantile())
}
