// Package trust derives a bounded seller reputation score from aggregated
// activity counters. Compute is a pure function; the aggregation itself is an
// external job.
package trust

import (
	"fmt"
	"math"

	"github.com/goodshelf/marketrank/internal/domain"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Component weights. Saturating ratios keep every contribution bounded while
// staying strictly increasing in its counter.
const (
	listingWeight   = 10.0
	fulfilledWeight = 35.0
	recentWeight    = 20.0
	tenureWeight    = 10.0
	speedWeight     = 5.0
	disputePenalty  = 7.0

	// decayFactor discounts older fulfillments relative to fresh ones.
	// Must stay in (0, 1): decayed activity counts for less, never for nothing.
	decayFactor = 0.5

	fulfilledHalfPoint = 25.0
	recentHalfPoint    = 10.0
	listingCap         = 20.0
	tenureHalfDays     = 180.0
	speedHalfMs        = 86_400_000.0 // 24h
)

// Grade is an ordered reputation band.
type Grade int

// Grade bands, lowest first.
const (
	GradeBronze Grade = iota
	GradeSilver
	GradeGold
	GradePlatinum
)

// Fixed grade thresholds on the final score.
const (
	silverThreshold   = 50.0
	goldThreshold     = 70.0
	platinumThreshold = 85.0
)

func (g Grade) String() string {
	switch g {
	case GradeBronze:
		return "bronze"
	case GradeSilver:
		return "silver"
	case GradeGold:
		return "gold"
	case GradePlatinum:
		return "platinum"
	default:
		return "unknown"
	}
}

// LookupOptions controls trust cache lookup behavior.
type LookupOptions struct {
	// BypassCache forces the recompute path regardless of cached state.
	// The fresh value is still written back.
	BypassCache bool
}

// Factors holds the aggregated seller activity counters supplied by the
// external aggregation job.
type Factors struct {
	ListingCount          int     `json:"listing_count"`
	FulfilledOrders       int     `json:"fulfilled_orders"`
	RecentFulfillments30d int     `json:"recent_fulfillments_30d"`
	DecayedFulfillments   int     `json:"decayed_fulfillments"`
	Disputes              int     `json:"disputes"`
	TenureDays            int     `json:"tenure_days"`
	AvgFulfillmentMs      float64 `json:"avg_fulfillment_ms"`
}

// Score is the derived reputation result.
type Score struct {
	Value float64 `json:"score"`
	Grade Grade   `json:"-"`
}

// Compute derives a trust score from activity factors.
// Monotone: more fulfillments never lower the score, more disputes never raise
// it, and decayed fulfillments count for strictly less than fresh ones but
// strictly more than none. The result is clamped to [MinScore, MaxScore].
func Compute(f Factors) (Score, error) {
	if err := validate(f); err != nil {
		return Score{}, err
	}

	s := listingWeight * math.Min(float64(f.ListingCount), listingCap) / listingCap
	s += fulfilledWeight * ratio(float64(f.FulfilledOrders), fulfilledHalfPoint)
	s += recentWeight * ratio(float64(f.RecentFulfillments30d), recentHalfPoint)
	s += fulfilledWeight * decayFactor * ratio(float64(f.DecayedFulfillments), fulfilledHalfPoint)
	s += tenureWeight * ratio(float64(f.TenureDays), tenureHalfDays)
	s += speedBonus(f.AvgFulfillmentMs)
	s -= disputePenalty * float64(f.Disputes)

	s = math.Min(math.Max(s, MinScore), MaxScore)
	s = math.Round(s*100) / 100

	return Score{Value: s, Grade: gradeFor(s)}, nil
}

func validate(f Factors) error {
	counts := map[string]int{
		"listing_count":           f.ListingCount,
		"fulfilled_orders":        f.FulfilledOrders,
		"recent_fulfillments_30d": f.RecentFulfillments30d,
		"decayed_fulfillments":    f.DecayedFulfillments,
		"disputes":                f.Disputes,
		"tenure_days":             f.TenureDays,
	}
	for name, v := range counts {
		if v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d", domain.ErrValidation, name, v)
		}
	}
	if f.AvgFulfillmentMs < 0 {
		return fmt.Errorf("%w: avg_fulfillment_ms must be non-negative, got %v",
			domain.ErrValidation, f.AvgFulfillmentMs)
	}
	return nil
}

// ratio is a saturating n/(n+half): 0 at n=0, strictly increasing, limit 1.
func ratio(n, half float64) float64 {
	return n / (n + half)
}

// speedBonus rewards fast average fulfillment. Zero means no data, no bonus.
func speedBonus(avgMs float64) float64 {
	if avgMs <= 0 {
		return 0
	}
	return speedWeight * speedHalfMs / (avgMs + speedHalfMs)
}

func gradeFor(score float64) Grade {
	switch {
	case score >= platinumThreshold:
		return GradePlatinum
	case score >= goldThreshold:
		return GradeGold
	case score >= silverThreshold:
		return GradeSilver
	default:
		return GradeBronze
	}
}
