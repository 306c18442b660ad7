package marketrank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/db"
	dbRedis "github.com/goodshelf/marketrank/internal/db/redis"
	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
	"github.com/goodshelf/marketrank/internal/embedder"
	"github.com/goodshelf/marketrank/internal/repository/embcache"
	listingrepo "github.com/goodshelf/marketrank/internal/repository/listing"
	factorsrepo "github.com/goodshelf/marketrank/internal/repository/trustfactors"
	searchuc "github.com/goodshelf/marketrank/internal/usecase/search"
	trustuc "github.com/goodshelf/marketrank/internal/usecase/trust"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, query string, limit int, opts searchuc.Options) ([]searchuc.Result, error)
}

type trustUseCase interface {
	GetTrustScores(ctx context.Context, sellerIDs []string, opts domtrust.LookupOptions) (map[string]domtrust.Score, error)
	Stats() trustuc.Stats
	ResetStats()
}

type listingWriter interface {
	Put(ctx context.Context, l domain.Listing) error
}

type factorWriter interface {
	Put(ctx context.Context, sellerID string, f domtrust.Factors) error
}

// Client is the marketrank SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	trustSvc  trustUseCase
	listings  listingWriter
	factors   factorWriter
	obs       *observer
}

// New creates a marketrank Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("marketrank: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("marketrank: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("marketrank: database not ready: %w", err)
	}

	if cfg.keyPrefix != "" {
		domain.KeyPrefix = cfg.keyPrefix
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	nop := zap.NewNop()

	var domEmb domain.Embedder = embedder.NewHash()
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}
	cached := embcache.New(domEmb, store, nil, nop)

	listingRepo := listingrepo.New(store)
	factorRepo := factorsrepo.New(store)

	trustSvc := trustuc.New(factorRepo, cfg.trustTTL, nil, nop)
	searchSvc := searchuc.New(listingRepo, cached, nop).WithTrust(trustSvc)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		trustSvc:  trustSvc,
		listings:  listingRepo,
		factors:   factorRepo,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search runs a hybrid listing search.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (_ []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := c.searchSvc.Search(ctx, query, limit, searchuc.Options{
		IncludeTrust:     opts.IncludeTrust,
		BypassTrustCache: opts.FreshTrust,
	})
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			ListingID:      r.ListingID,
			SellerID:       r.SellerID,
			CompositeScore: r.CompositeScore,
			SemanticScore:  r.SemanticScore,
			LexicalScore:   r.LexicalScore,
			RankScore:      r.RankScore,
			Trust:          trustScoreOut(r.Trust),
		}
	}
	return out, nil
}

// Trust returns the seller trust service.
func (c *Client) Trust() *TrustService {
	return &TrustService{svc: c.trustSvc, obs: c.obs}
}

// Ingest returns the data ingest service.
func (c *Client) Ingest() *IngestService {
	return &IngestService{listings: c.listings, factors: c.factors, obs: c.obs}
}

func trustScoreOut(s *domtrust.Score) *TrustScore {
	if s == nil {
		return nil
	}
	return &TrustScore{Score: s.Value, Grade: s.Grade.String()}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
