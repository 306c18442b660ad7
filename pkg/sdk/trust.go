package marketrank

import (
	"context"
	"time"

	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// TrustService resolves seller trust scores through the TTL cache.
type TrustService struct {
	svc trustUseCase
	obs *observer
}

// Scores resolves a trust score per seller id. With fresh=true the cache is
// bypassed and recomputed values are written back.
func (s *TrustService) Scores(ctx context.Context, sellerIDs []string, fresh bool) (_ map[string]TrustScore, err error) {
	start := time.Now()
	defer func() { s.obs.observe("trust_scores", start, err) }()

	scores, err := s.svc.GetTrustScores(ctx, sellerIDs, domtrust.LookupOptions{BypassCache: fresh})
	if err != nil {
		return nil, err
	}

	out := make(map[string]TrustScore, len(scores))
	for id, score := range scores {
		out[id] = TrustScore{Score: score.Value, Grade: score.Grade.String()}
	}
	return out, nil
}

// CacheStats snapshots the trust cache counters.
func (s *TrustService) CacheStats() CacheStats {
	st := s.svc.Stats()
	return CacheStats{Hits: st.Hits, Misses: st.Misses, HitRatio: st.HitRatio}
}

// ResetCacheStats zeroes the trust cache counters.
func (s *TrustService) ResetCacheStats() {
	s.svc.ResetStats()
}
