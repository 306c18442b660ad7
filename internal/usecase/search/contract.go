package search

import (
	"context"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// ListingStore reads candidate listings from the persisted marketplace store.
type ListingStore interface {
	ListAll(ctx context.Context) ([]domain.Listing, error)
	GetByID(ctx context.Context, id string) (domain.Listing, error)
}

// ListingEmbedder supplies vectors for queries and listings. Listing vectors
// are memoized; embedding the same unchanged listing twice must not recompute.
type ListingEmbedder interface {
	EmbedListing(ctx context.Context, l domain.Listing) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TrustScorer resolves seller trust scores for result enrichment.
type TrustScorer interface {
	GetTrustScores(
		ctx context.Context, sellerIDs []string, opts domtrust.LookupOptions,
	) (map[string]domtrust.Score, error)
}
