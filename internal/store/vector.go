package store

import (
	"math"
	"strconv"
	"strings"
)

// CosineDistance returns 1 - cosine similarity of two vectors, matching
// pgvector's <=> operator so both backends rank identically. Mismatched or
// zero-magnitude vectors get the maximum distance instead of an error.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// pgvectorLiteral renders an embedding in pgvector's text format, e.g.
// [0.1,-0.2,0.3], for binding through a ::vector cast.
func pgvectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.Grow(len(embedding)*10 + 2)
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
