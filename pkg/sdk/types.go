package marketrank

// Listing is a marketplace listing as stored by the ingest path.
type Listing struct {
	ID          string
	Title       string
	Description string
	SellerID    string
}

// TrustFactors holds the aggregated seller activity counters consumed by the
// trust score calculator.
type TrustFactors struct {
	ListingCount          int
	FulfilledOrders       int
	RecentFulfillments30d int
	DecayedFulfillments   int
	Disputes              int
	TenureDays            int
	AvgFulfillmentMs      float64
}

// TrustScore is a derived seller reputation score in [0, 100] with its grade
// band ("bronze", "silver", "gold" or "platinum").
type TrustScore struct {
	Score float64
	Grade string
}

// SearchResult is a single ranked hit. RankScore is the ordering key; it
// equals CompositeScore unless trust enrichment biased the ordering.
type SearchResult struct {
	ListingID      string
	SellerID       string
	CompositeScore float64
	SemanticScore  float64
	LexicalScore   float64
	RankScore      float64
	Trust          *TrustScore
}

// SearchOptions controls a single Search call.
type SearchOptions struct {
	// Limit caps the number of results. Zero means the default of 10.
	Limit int
	// IncludeTrust annotates each result with the seller's trust score and
	// biases the ordering by it.
	IncludeTrust bool
	// FreshTrust forces trust recomputation, bypassing the cache.
	FreshTrust bool
}

// CacheStats is a snapshot of the trust cache counters.
type CacheStats struct {
	Hits     uint64
	Misses   uint64
	HitRatio float64
}

const defaultSearchLimit = 10
