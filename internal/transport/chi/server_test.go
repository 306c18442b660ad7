package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
	"github.com/goodshelf/marketrank/internal/embedder"
	"github.com/goodshelf/marketrank/internal/repository/embcache"
	healthuc "github.com/goodshelf/marketrank/internal/usecase/health"
	searchuc "github.com/goodshelf/marketrank/internal/usecase/search"
	trustuc "github.com/goodshelf/marketrank/internal/usecase/trust"
)

// --- Mocks ---

type fakeListings struct {
	listings []domain.Listing
	err      error
}

func (f *fakeListings) ListAll(context.Context) ([]domain.Listing, error) {
	return f.listings, f.err
}

func (f *fakeListings) GetByID(_ context.Context, id string) (domain.Listing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

type fakeFactors struct {
	factors map[string]domtrust.Factors
}

func (f *fakeFactors) Get(_ context.Context, id string) (domtrust.Factors, error) {
	fac, ok := f.factors[id]
	if !ok {
		return domtrust.Factors{}, fmt.Errorf("seller %s: %w", id, domain.ErrNotFound)
	}
	return fac, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(t *testing.T, listings *fakeListings) *Server {
	t.Helper()
	logger := zap.NewNop()
	hash := embedder.NewHash()

	cache := embcache.New(hash, nil, nil, logger)
	trustSvc := trustuc.New(
		&fakeFactors{factors: map[string]domtrust.Factors{
			"s1": {FulfilledOrders: 80, TenureDays: 500, ListingCount: 12},
		}},
		time.Minute, nil, logger,
	)
	searchSvc := searchuc.New(listings, cache, logger).WithTrust(trustSvc)
	healthSvc := healthuc.New(&fakePinger{}, hash)

	return NewServer(searchSvc, trustSvc, healthSvc, Limits{Default: 10, Max: 50}, logger)
}

func fixtureListings() *fakeListings {
	return &fakeListings{listings: []domain.Listing{
		{ID: "l1", Title: "Walnut dining table", SellerID: "s1"},
		{ID: "l2", Title: "Pine bookshelf", SellerID: "s2"},
		{ID: "l3", Title: "Walnut side table", SellerID: "s3"},
	}}
}

func doRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/v1/search?q=walnut+table&limit=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Results []struct {
			ListingID string  `json:"listing_id"`
			RankScore float64 `json:"rank_score"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(body.Results))
	}
}

func TestSearchEndpoint_ShortQueryIs400(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/v1/search?q=x")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSearchEndpoint_StoreDownIs503(t *testing.T) {
	srv := newTestServer(t, &fakeListings{err: fmt.Errorf("%w: redis down", domain.ErrExternalService)})

	rr := doRequest(t, srv, "GET", "/v1/search?q=walnut+table")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestSearchEndpoint_BadLimitIs400(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/v1/search?q=walnut&limit=abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSearchEndpoint_TrustAnnotation(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/v1/search?q=walnut+table&trust=true")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Results []struct {
			Trust *struct {
				Score float64 `json:"score"`
				Grade string  `json:"grade"`
			} `json:"trust"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, res := range body.Results {
		if res.Trust == nil {
			t.Fatalf("result %d missing trust annotation", i)
		}
	}
}

func TestTrustEndpoint(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/v1/sellers/trust?ids=s1,unknown")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Sellers map[string]struct {
			Score float64 `json:"score"`
			Grade string  `json:"grade"`
		} `json:"sellers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sellers) != 2 {
		t.Fatalf("got %d sellers, want 2", len(body.Sellers))
	}
	if body.Sellers["s1"].Score <= body.Sellers["unknown"].Score {
		t.Errorf("active seller s1 (%v) should outscore unknown seller (%v)",
			body.Sellers["s1"].Score, body.Sellers["unknown"].Score)
	}
}

func TestTrustEndpoint_MissingIDsIs400(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	for _, target := range []string{"/v1/sellers/trust", "/v1/sellers/trust?ids=,,"} {
		rr := doRequest(t, srv, "GET", target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	// Warm the cache: first lookup misses, second hits.
	doRequest(t, srv, "GET", "/v1/sellers/trust?ids=s1")
	doRequest(t, srv, "GET", "/v1/sellers/trust?ids=s1")

	rr := doRequest(t, srv, "GET", "/v1/trust/cache/stats")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var stats struct {
		Hits     uint64  `json:"hits"`
		Misses   uint64  `json:"misses"`
		HitRatio float64 `json:"hit_ratio"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.HitRatio != 0.5 {
		t.Fatalf("stats = %+v, want 1/1/0.5", stats)
	}

	if rr := doRequest(t, srv, "DELETE", "/v1/trust/cache/stats"); rr.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", rr.Code)
	}
	rr = doRequest(t, srv, "GET", "/v1/trust/cache/stats")
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Fatalf("stats after reset = %+v, want zeroes", stats)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, fixtureListings())

	rr := doRequest(t, srv, "GET", "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestHealthEndpoint_DatabaseDownIs503(t *testing.T) {
	logger := zap.NewNop()
	hash := embedder.NewHash()
	cache := embcache.New(hash, nil, nil, logger)
	trustSvc := trustuc.New(&fakeFactors{}, time.Minute, nil, logger)
	searchSvc := searchuc.New(fixtureListings(), cache, logger)
	healthSvc := healthuc.New(&fakePinger{err: errors.New("refused")}, hash)
	srv := NewServer(searchSvc, trustSvc, healthSvc, Limits{Default: 10, Max: 50}, logger)

	rr := doRequest(t, srv, "GET", "/healthz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
