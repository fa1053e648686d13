// Package sparse builds deterministic sparse (BM25-ready) vectors from
// chunk text, for pairing with dense embeddings in hybrid search.
package sparse

import (
	"regexp"
	"sort"
	"strings"
)

// VocabSize bounds the hashed index space. Collisions sum rather than
// overwrite, so a larger value only reduces collision noise, never
// changes correctness.
const VocabSize = 30000

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// Vector is a sparse bag-of-words representation: parallel Indices and
// Values, Indices strictly ascending, one entry per distinct hashed
// token bucket that occurs in the source text.
type Vector struct {
	Indices []uint32
	Values  []float32
}

// Vectorize lowercases text, tokenizes on runs of [a-z0-9_], hashes
// each distinct token into a fixed-size vocabulary, and returns term
// frequencies keyed by hashed bucket. The server-side bm25 modifier
// applies IDF weighting at query time, so this stays pure term counts.
func Vectorize(text string) Vector {
	counts := make(map[uint32]float32)

	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		idx := hashToken(tok)
		counts[idx]++
	}

	indices := make([]uint32, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, len(indices))
	for i, idx := range indices {
		values[i] = counts[idx]
	}

	return Vector{Indices: indices, Values: values}
}

// hashToken computes the deterministic 64-bit FNV-1a hash of tok,
// reduced modulo VocabSize.
func hashToken(tok string) uint32 {
	var h uint64 = 14695981039346656037 // FNV offset basis, reused as a fixed seed
	for i := 0; i < len(tok); i++ {
		h ^= uint64(tok[i])
		h *= 1099511628211 // FNV prime
	}
	return uint32(h % uint64(VocabSize))
}
