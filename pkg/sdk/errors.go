package marketrank

import "github.com/goodshelf/marketrank/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation             = domain.ErrValidation
	ErrNotFound               = domain.ErrNotFound
	ErrDimensionMismatch      = domain.ErrDimensionMismatch
	ErrExternalService        = domain.ErrExternalService
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
