// Package mock provides a deterministic embedder for tests and local
// development. It needs no model files and runs offline.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder generates deterministic embeddings from text.
//
// Each token is hashed into a pseudo-random direction and the directions
// are summed, so texts sharing tokens get correlated vectors. This is not
// real semantics, but it gives similarity search and intention routing
// enough signal to be testable.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with the default MiniLM dimension.
func New() *Embedder {
	return NewWithDimensions(384)
}

// NewWithDimensions creates a mock embedder with a custom dimension.
func NewWithDimensions(dimensions int) *Embedder {
	return &Embedder{dimensions: dimensions}
}

// Embed converts text to a unit-normalized deterministic vector.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		seed := h.Sum64()

		// LCG stream per token; summed streams correlate texts by
		// token overlap.
		for i := 0; i < m.dimensions; i++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			embedding[i] += float32(int64(seed)) / float32(math.MaxInt64)
		}
	}

	normalize(embedding)
	return embedding, nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// normalize scales vec to unit length in place.
func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := 1 / math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) * inv)
	}
}
