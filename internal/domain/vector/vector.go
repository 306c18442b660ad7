// Package vector provides fixed-dimension embedding vector math.
package vector

import (
	"fmt"
	"math"

	"github.com/goodshelf/marketrank/internal/domain"
)

// Dim is the embedding dimension shared by every vector in the system.
const Dim = 64

// Normalize scales v to unit Euclidean length in place and returns it.
// A zero vector is returned unchanged (the norm is treated as 1).
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Cosine computes the cosine similarity of a and b.
// Vectors of unequal length are rejected with domain.ErrDimensionMismatch.
// A zero-magnitude vector has similarity 0 to everything, including itself.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
