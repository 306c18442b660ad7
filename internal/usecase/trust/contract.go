package trust

import (
	"context"

	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// FactorSource supplies aggregated activity factors per seller.
// A seller unknown to the aggregation job maps to domain.ErrNotFound.
type FactorSource interface {
	Get(ctx context.Context, sellerID string) (domtrust.Factors, error)
}
