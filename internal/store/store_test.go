package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Both backends must satisfy the Store interface.
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func TestCosineDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 1},
		{name: "empty", a: nil, b: nil, want: 1},
		{name: "zero magnitude", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineDistance_ScaleInvariant(t *testing.T) {
	t.Parallel()

	// Cosine distance depends on direction only.
	a := []float32{0.3, -0.5, 0.8}
	scaled := []float32{0.6, -1.0, 1.6}
	assert.InDelta(t, 0, CosineDistance(a, scaled), 1e-6)
}

func TestPgvectorLiteral(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[1,0]", pgvectorLiteral([]float32{1, 0}))
	assert.Equal(t, "[0.5,-0.25,3]", pgvectorLiteral([]float32{0.5, -0.25, 3}))
	assert.Equal(t, "[]", pgvectorLiteral(nil))
}
