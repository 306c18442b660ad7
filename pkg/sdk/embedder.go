package marketrank

import "context"

// EmbeddingResult is the output of a single embedding call.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder converts text into a vector. Implementations must be safe for
// concurrent use. When no embedder is configured the client falls back to the
// built-in deterministic hash embedder, which needs no external service.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
