package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// The default implementation is a deterministic in-process hash embedder;
// a remote model adapter satisfies the same contract.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and, for remote providers,
// token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
