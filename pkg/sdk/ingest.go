package marketrank

import (
	"context"
	"time"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// IngestService writes listings and seller activity aggregates to the store.
type IngestService struct {
	listings listingWriter
	factors  factorWriter
	obs      *observer
}

// UpsertListing stores a listing, overwriting any previous version.
// The search path picks the new text up on its next embedding pass; unchanged
// text never triggers a re-embed.
func (s *IngestService) UpsertListing(ctx context.Context, l Listing) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("upsert_listing", start, err) }()

	return s.listings.Put(ctx, domain.Listing{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		SellerID:    l.SellerID,
	})
}

// UpsertListings stores listings one by one, stopping at the first failure.
func (s *IngestService) UpsertListings(ctx context.Context, listings []Listing) error {
	for _, l := range listings {
		if err := s.UpsertListing(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

// SetTrustFactors stores the aggregated activity counters for a seller.
// Cached trust scores keep serving until their TTL expires; use a bypass
// lookup to see the new factors immediately.
func (s *IngestService) SetTrustFactors(ctx context.Context, sellerID string, f TrustFactors) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_trust_factors", start, err) }()

	return s.factors.Put(ctx, sellerID, domtrust.Factors{
		ListingCount:          f.ListingCount,
		FulfilledOrders:       f.FulfilledOrders,
		RecentFulfillments30d: f.RecentFulfillments30d,
		DecayedFulfillments:   f.DecayedFulfillments,
		Disputes:              f.Disputes,
		TenureDays:            f.TenureDays,
		AvgFulfillmentMs:      f.AvgFulfillmentMs,
	})
}
