// Package trust caches seller trust scores with explicit hit/miss/bypass
// accounting. The cache is best effort, not a source of truth: entries expire
// lazily on read and concurrent lookups for the same seller settle on
// last-write-wins.
package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// DefaultTTL bounds staleness of cached trust scores.
const DefaultTTL = 5 * time.Minute

type entry struct {
	score     domtrust.Score
	expiresAt time.Time
}

// Stats is a snapshot of the cache counters. Counters only grow, except
// through ResetStats.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// Service resolves seller trust scores through a TTL cache.
type Service struct {
	source     FactorSource
	ttl        time.Duration
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu      sync.Mutex
	entries map[string]entry
	hits    uint64
	misses  uint64
}

// New creates a trust score service.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"bypass"),
// passed explicitly; nil disables metrics.
func New(source FactorSource, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		source:     source,
		ttl:        ttl,
		now:        time.Now,
		cacheTotal: cacheTotal,
		logger:     logger,
		entries:    make(map[string]entry),
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetTrustScores resolves a trust score per seller id. Cached, non-expired
// entries are served directly; everything else goes through the factor source
// and Compute, and the fresh value is written back — including on bypass.
func (s *Service) GetTrustScores(
	ctx context.Context, sellerIDs []string, opts domtrust.LookupOptions,
) (map[string]domtrust.Score, error) {
	scores := make(map[string]domtrust.Score, len(sellerIDs))

	for _, id := range sellerIDs {
		if score, ok := s.classify(id, opts.BypassCache); ok {
			scores[id] = score
			continue
		}

		score, err := s.recompute(ctx, id)
		if err != nil {
			return nil, err
		}

		s.put(id, score)
		scores[id] = score
	}

	return scores, nil
}

// classify decides hit vs miss for one lookup as a single atomic step, so a
// logical lookup can never double-count. Expired entries are evicted here;
// bypass always classifies as a miss.
func (s *Service) classify(id string, bypass bool) (domtrust.Score, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bypass {
		s.misses++
		s.incCache("bypass")
		return domtrust.Score{}, false
	}

	if e, ok := s.entries[id]; ok {
		if s.now().Before(e.expiresAt) {
			s.hits++
			s.incCache("hit")
			return e.score, true
		}
		delete(s.entries, id)
	}

	s.misses++
	s.incCache("miss")
	return domtrust.Score{}, false
}

// recompute fetches factors and derives a fresh score. A seller unknown to
// the aggregation job scores as zero activity.
func (s *Service) recompute(ctx context.Context, id string) (domtrust.Score, error) {
	factors, err := s.source.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domtrust.Score{}, fmt.Errorf("fetch factors for %s: %w", id, err)
		}
		factors = domtrust.Factors{}
	}

	score, err := domtrust.Compute(factors)
	if err != nil {
		return domtrust.Score{}, fmt.Errorf("compute trust for %s: %w", id, err)
	}
	return score, nil
}

func (s *Service) put(id string, score domtrust.Score) {
	s.mu.Lock()
	s.entries[id] = entry{score: score, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Stats snapshots the cache counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	if total == 0 {
		total = 1
	}
	return Stats{
		Hits:     s.hits,
		Misses:   s.misses,
		HitRatio: float64(s.hits) / float64(total),
	}
}

// ResetStats zeroes the hit/miss counters. Test/debug hook.
func (s *Service) ResetStats() {
	s.mu.Lock()
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
}

// Seed writes a score directly into the cache with a full TTL. Test hook.
func (s *Service) Seed(sellerID string, score domtrust.Score) {
	s.put(sellerID, score)
}

func (s *Service) incCache(result string) {
	if s.cacheTotal != nil {
		s.cacheTotal.WithLabelValues(result).Inc()
	}
}
