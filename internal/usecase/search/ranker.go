package search

import (
	"fmt"
	"sort"

	"github.com/goodshelf/marketrank/internal/domain"
	"github.com/goodshelf/marketrank/internal/domain/vector"
)

// Composite score weights. Fixed constants: the semantic signal dominates
// while exact-term matches stay relevant, and golden-fixture rankings remain
// reproducible across deployments.
const (
	semanticWeight = 0.75
	lexicalWeight  = 0.25
)

// candidate pairs a listing with its precomputed embedding.
type candidate struct {
	listing domain.Listing
	vec     []float32
}

// rankCandidates scores every candidate against the query and returns the top
// k by composite score, descending. The sort is stable: hash embeddings can
// produce exact ties on short text, and ties must keep candidate order.
func rankCandidates(queryVec []float32, query string, cands []candidate, k int) ([]domain.ScoredResult, error) {
	if k <= 0 || len(cands) == 0 {
		return []domain.ScoredResult{}, nil
	}

	results := make([]domain.ScoredResult, len(cands))
	for i, c := range cands {
		semantic, err := vector.Cosine(queryVec, c.vec)
		if err != nil {
			return nil, fmt.Errorf("score listing %s: %w", c.listing.ID, err)
		}
		lexical := lexicalScore(query, c.listing.SearchText())

		results[i] = domain.ScoredResult{
			ListingID:      c.listing.ID,
			CompositeScore: semanticWeight*semantic + lexicalWeight*lexical,
			SemanticScore:  semantic,
			LexicalScore:   lexical,
			SellerID:       c.listing.SellerID,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompositeScore > results[j].CompositeScore
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
