package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorize_IndicesAreSortedAscending(t *testing.T) {
	v := Vectorize("func ParseConfig loads the config file and parses config values")
	require.NotEmpty(t, v.Indices)
	for i := 1; i < len(v.Indices); i++ {
		assert.Less(t, v.Indices[i-1], v.Indices[i])
	}
	assert.Len(t, v.Values, len(v.Indices))
}

func TestVectorize_RepeatedTokenAccumulatesCount(t *testing.T) {
	v := Vectorize("config config config")
	require.Len(t, v.Indices, 1)
	assert.Equal(t, float32(3), v.Values[0])
}

func TestVectorize_IsCaseInsensitive(t *testing.T) {
	a := Vectorize("HelloWorld")
	b := Vectorize("helloworld")
	assert.Equal(t, a, b)
}

func TestVectorize_EmptyText_ReturnsEmptyVector(t *testing.T) {
	v := Vectorize("   \n\t  ")
	assert.Empty(t, v.Indices)
	assert.Empty(t, v.Values)
}

func TestVectorize_IsDeterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"
	a := Vectorize(text)
	b := Vectorize(text)
	assert.Equal(t, a, b)
}

func TestVectorize_IndicesWithinVocabBounds(t *testing.T) {
	v := Vectorize("a bb ccc dddd eeeee ffffff ggggggg hhhhhhhh")
	for _, idx := range v.Indices {
		assert.Less(t, idx, uint32(VocabSize))
	}
}
