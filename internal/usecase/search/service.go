// Package search implements hybrid listing retrieval: a deterministic
// semantic signal blended with lexical term matching, optionally enriched
// with seller trust scores.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
)

// MinQueryLen is the minimum query length in runes, after trimming.
const MinQueryLen = 2

// trustBiasWeight is the share of the final rank score contributed by seller
// trust when enrichment is requested.
const trustBiasWeight = 0.1

// scoreDecimals rounds reported scores for stable output.
const scoreDecimals = 1e4

// Options controls a single search call.
type Options struct {
	IncludeTrust     bool
	BypassTrustCache bool
}

// Result is a ranked hit, optionally annotated with the seller's trust score.
// RankScore is the value results are ordered by; it equals CompositeScore
// unless trust enrichment biased the ordering.
type Result struct {
	domain.ScoredResult
	RankScore float64
	Trust     *domtrust.Score
}

// Service orchestrates hybrid listing search.
type Service struct {
	store    ListingStore
	embedder ListingEmbedder
	trust    TrustScorer
	logger   *zap.Logger
}

// New creates a search service.
func New(store ListingStore, embedder ListingEmbedder, logger *zap.Logger) *Service {
	return &Service{store: store, embedder: embedder, logger: logger}
}

// WithTrust enables trust enrichment.
func (s *Service) WithTrust(ts TrustScorer) *Service {
	s.trust = ts
	return s
}

// Search validates the query, fetches candidates from the listing store, ranks
// them, and returns up to limit results with scores rounded for stable output.
// Store failures surface as domain.ErrExternalService so callers can tell
// "no matches" from "search unavailable".
func (s *Service) Search(ctx context.Context, query string, limit int, opts Options) ([]Result, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLen {
		return nil, fmt.Errorf("%w: query must be at least %d characters", domain.ErrValidation, MinQueryLen)
	}

	candidates, err := s.store.ListAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrExternalService) {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		return nil, fmt.Errorf("%w: list candidates: %w", domain.ErrExternalService, err)
	}

	ranked, err := s.Rank(ctx, query, candidates, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		r.CompositeScore = round(r.CompositeScore)
		r.SemanticScore = round(r.SemanticScore)
		r.LexicalScore = round(r.LexicalScore)
		results[i] = Result{ScoredResult: r, RankScore: r.CompositeScore}
	}

	if opts.IncludeTrust && s.trust != nil {
		if err := s.enrichWithTrust(ctx, results, opts.BypassTrustCache); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// Rank embeds the query and every candidate (memoized per listing), then runs
// the hybrid ranker. k <= 0 or an empty candidate set yields an empty result.
func (s *Service) Rank(
	ctx context.Context, query string, candidates []domain.Listing, k int,
) ([]domain.ScoredResult, error) {
	if k <= 0 || len(candidates) == 0 {
		return []domain.ScoredResult{}, nil
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	cands := make([]candidate, len(candidates))
	for i, l := range candidates {
		vec, err := s.embedder.EmbedListing(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("embed listing %s: %w", l.ID, err)
		}
		cands[i] = candidate{listing: l, vec: vec}
	}

	ranked, err := rankCandidates(queryVec, query, cands, k)
	if err != nil {
		// Pure scoring is total over equal-dimension vectors; anything else
		// is a bug surfaced at the orchestrator boundary.
		return nil, fmt.Errorf("%w: %w", domain.ErrInternal, err)
	}
	return ranked, nil
}

// enrichWithTrust annotates results with seller trust and re-sorts by the
// trust-biased rank score. Results keep their raw composite scores.
func (s *Service) enrichWithTrust(ctx context.Context, results []Result, bypass bool) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(results))
	sellerIDs := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.SellerID]; ok {
			continue
		}
		seen[r.SellerID] = struct{}{}
		sellerIDs = append(sellerIDs, r.SellerID)
	}

	scores, err := s.trust.GetTrustScores(ctx, sellerIDs, domtrust.LookupOptions{BypassCache: bypass})
	if err != nil {
		return fmt.Errorf("trust enrichment: %w", err)
	}

	for i := range results {
		if score, ok := scores[results[i].SellerID]; ok {
			sc := score
			results[i].Trust = &sc
			results[i].RankScore = round(
				(1-trustBiasWeight)*results[i].CompositeScore + trustBiasWeight*score.Value/domtrust.MaxScore,
			)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RankScore > results[j].RankScore
	})
	return nil
}

func round(x float64) float64 {
	return math.Round(x*scoreDecimals) / scoreDecimals
}
