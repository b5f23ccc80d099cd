package jina

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// MockModel is the model name reported by the deterministic provider.
const MockModel = "mock-embeddings"

// mockProvider generates embeddings from a hash of the input text: the same
// text always produces the same vector, so corpus loads and query searches
// line up across runs without network access. Retrieval quality is limited
// to exact-text matches; it exists for local runs and tests.
type mockProvider struct {
	dimensions int
}

// NewMock creates a deterministic offline embedding provider.
func NewMock(dimensions int) Client {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &mockProvider{dimensions: dimensions}
}

func (m *mockProvider) Model() string {
	return MockModel
}

// TokensUsed is always zero, the mock provider bills nothing.
func (m *mockProvider) TokensUsed() int64 {
	return 0
}

func (m *mockProvider) Embed(_ context.Context, texts []string, _ ...EmbedOption) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

// vector draws a unit-length Gaussian vector from a PRNG seeded by the text.
func (m *mockProvider) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text)) //nolint:errcheck
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed))

	vec := make([]float32, m.dimensions)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
