package domain

import "errors"

var (
	// ErrValidation signals malformed caller input (short query, negative counts).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch signals vectors of unequal length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrExternalService signals an unreachable collaborator (listing store,
	// trust-factor source). Retriable; never masked as an empty result set.
	ErrExternalService = errors.New("external service unavailable")
	// ErrEmbeddingProviderError signals a remote embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrInternal signals an unexpected failure caught at the orchestrator boundary.
	ErrInternal = errors.New("internal error")
)
