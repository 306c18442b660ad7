package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
	"github.com/goodshelf/marketrank/internal/embedder"
	"github.com/goodshelf/marketrank/internal/repository/embcache"
)

// --- Mocks ---

type mockStore struct {
	listings []domain.Listing
	listErr  error
}

func (m *mockStore) ListAll(_ context.Context) ([]domain.Listing, error) {
	return m.listings, m.listErr
}

func (m *mockStore) GetByID(_ context.Context, id string) (domain.Listing, error) {
	for _, l := range m.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

// spyEmbedder counts Embed calls behind the caching decorator.
type spyEmbedder struct {
	calls int
	inner embedder.HashEmbedder
}

func (s *spyEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	return s.inner.Embed(ctx, text)
}

type mockTrust struct {
	scores   map[string]domtrust.Score
	err      error
	lastIDs  []string
	lastOpts domtrust.LookupOptions
}

func (m *mockTrust) GetTrustScores(
	_ context.Context, sellerIDs []string, opts domtrust.LookupOptions,
) (map[string]domtrust.Score, error) {
	m.lastIDs = sellerIDs
	m.lastOpts = opts
	return m.scores, m.err
}

func fixtureListings() []domain.Listing {
	return []domain.Listing{
		{ID: "l1", Title: "Walnut dining table", SellerID: "s1"},
		{ID: "l2", Title: "Pine bookshelf", SellerID: "s2"},
		{ID: "l3", Title: "Walnut side table", SellerID: "s3"},
	}
}

func newTestService(store *mockStore) (*Service, *spyEmbedder) {
	spy := &spyEmbedder{}
	cache := embcache.New(spy, nil, nil, zap.NewNop())
	return New(store, cache, zap.NewNop()), spy
}

// --- Tests ---

func TestSearch_RejectsShortQuery(t *testing.T) {
	svc, _ := newTestService(&mockStore{})

	for _, q := range []string{"", "x", "  a  "} {
		_, err := svc.Search(context.Background(), q, 10, Options{})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("query %q: err = %v, want ErrValidation", q, err)
		}
	}
}

func TestSearch_StoreFailureIsExternalServiceError(t *testing.T) {
	svc, _ := newTestService(&mockStore{listErr: errors.New("connection refused")})

	_, err := svc.Search(context.Background(), "walnut table", 10, Options{})
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
}

func TestSearch_GoldenFixtureTop2(t *testing.T) {
	svc, _ := newTestService(&mockStore{listings: fixtureListings()})

	got, err := svc.Search(context.Background(), "walnut table", 2, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	top2 := map[string]bool{got[0].ListingID: true, got[1].ListingID: true}
	if !top2["l1"] || !top2["l3"] {
		t.Fatalf("top-2 = [%s, %s], want the walnut listings", got[0].ListingID, got[1].ListingID)
	}
}

func TestSearch_EnsureEmbeddingsIsIdempotent(t *testing.T) {
	svc, spy := newTestService(&mockStore{listings: fixtureListings()})
	ctx := context.Background()

	if _, err := svc.Search(ctx, "walnut table", 10, Options{}); err != nil {
		t.Fatalf("first search: %v", err)
	}
	afterFirst := spy.calls // 1 query + 3 listings

	if _, err := svc.Search(ctx, "walnut table", 10, Options{}); err != nil {
		t.Fatalf("second search: %v", err)
	}

	// The second pass re-embeds only the query; listing vectors are memoized.
	if got, want := spy.calls, afterFirst+1; got != want {
		t.Fatalf("embed calls after second search = %d, want %d", got, want)
	}
}

func TestSearch_ScoresRoundedToFourDecimals(t *testing.T) {
	svc, _ := newTestService(&mockStore{listings: fixtureListings()})

	got, err := svc.Search(context.Background(), "walnut table", 10, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range got {
		for name, v := range map[string]float64{
			"composite": r.CompositeScore,
			"semantic":  r.SemanticScore,
			"lexical":   r.LexicalScore,
		} {
			if math.Round(v*1e4)/1e4 != v {
				t.Fatalf("%s score %v not rounded to 4 decimals", name, v)
			}
		}
	}
}

func TestSearch_ZeroLimitReturnsEmpty(t *testing.T) {
	svc, _ := newTestService(&mockStore{listings: fixtureListings()})

	got, err := svc.Search(context.Background(), "walnut table", 0, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d results, want 0", len(got))
	}
}

func TestSearch_TrustEnrichment(t *testing.T) {
	trust := &mockTrust{scores: map[string]domtrust.Score{
		"s1": {Value: 90, Grade: domtrust.GradePlatinum},
		"s3": {Value: 20, Grade: domtrust.GradeBronze},
	}}
	svc, _ := newTestService(&mockStore{listings: fixtureListings()})
	svc.WithTrust(trust)

	got, err := svc.Search(context.Background(), "walnut table", 2, Options{IncludeTrust: true, BypassTrustCache: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !trust.lastOpts.BypassCache {
		t.Fatal("bypass option not forwarded to trust scorer")
	}
	for _, r := range got {
		if r.Trust == nil {
			t.Fatalf("result %s missing trust annotation", r.ListingID)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].RankScore > got[i-1].RankScore {
			t.Fatalf("results not sorted by trust-biased rank score")
		}
	}
}

func TestSearch_TrustSourceFailureSurfaces(t *testing.T) {
	trust := &mockTrust{err: domain.ErrExternalService}
	svc, _ := newTestService(&mockStore{listings: fixtureListings()})
	svc.WithTrust(trust)

	_, err := svc.Search(context.Background(), "walnut table", 2, Options{IncludeTrust: true})
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
}

func TestRank_AtMostMinOfKAndLen(t *testing.T) {
	svc, _ := newTestService(&mockStore{})

	got, err := svc.Rank(context.Background(), "walnut", fixtureListings(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
}
