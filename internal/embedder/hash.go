// Package embedder provides the in-process text vectorizer.
package embedder

import (
	"context"

	"github.com/goodshelf/marketrank/internal/domain"
	"github.com/goodshelf/marketrank/internal/domain/vector"
)

// HashEmbedder is a deterministic character-hash vectorizer. It preserves the
// shape of a real embedding pipeline (fixed dimension, normalized output)
// without any network dependency, so ranking and caching can run against it.
type HashEmbedder struct{}

// Compile-time check: HashEmbedder implements domain.Embedder.
var _ domain.Embedder = HashEmbedder{}

// NewHash creates a hash embedder.
func NewHash() HashEmbedder { return HashEmbedder{} }

// Embed maps each code point to a bucket (cp mod Dim) and accumulates a weight
// derived from the code point, then L2-normalizes. Total: empty input yields
// the zero vector.
func (HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, vector.Dim)
	for _, cp := range text {
		vec[int(cp)%vector.Dim] += float32(int(cp)%13 + 1)
	}
	return domain.EmbeddingResult{Embedding: vector.Normalize(vec)}, nil
}

// HealthCheck always succeeds; there is no remote provider to reach.
func (HashEmbedder) HealthCheck(context.Context) error { return nil }
