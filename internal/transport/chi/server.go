// Package chi exposes the search and trust core over a thin HTTP surface:
// search, seller trust lookups, cache diagnostics, health, and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/domain"
	domtrust "github.com/goodshelf/marketrank/internal/domain/trust"
	"github.com/goodshelf/marketrank/internal/logger"
	"github.com/goodshelf/marketrank/internal/metrics"
	healthuc "github.com/goodshelf/marketrank/internal/usecase/health"
	searchuc "github.com/goodshelf/marketrank/internal/usecase/search"
	trustuc "github.com/goodshelf/marketrank/internal/usecase/trust"
)

// Limits holds result paging bounds from config.
type Limits struct {
	Default int
	Max     int
}

// Server handles the HTTP API.
type Server struct {
	search *searchuc.Service
	trust  *trustuc.Service
	health *healthuc.Service
	limits Limits
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	trust *trustuc.Service,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	return &Server{search: search, trust: trust, health: health, limits: limits, logger: logger}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/sellers/trust", s.handleTrustScores)
		r.Get("/trust/cache/stats", s.handleCacheStats)
		r.Delete("/trust/cache/stats", s.handleCacheStatsReset)
	})

	return r
}

// --- Search ---

type searchResultJSON struct {
	ListingID      string          `json:"listing_id"`
	SellerID       string          `json:"seller_id"`
	CompositeScore float64         `json:"composite_score"`
	SemanticScore  float64         `json:"semantic_score"`
	LexicalScore   float64         `json:"lexical_score"`
	RankScore      float64         `json:"rank_score"`
	Trust          *trustScoreJSON `json:"trust,omitempty"`
}

type trustScoreJSON struct {
	Score float64 `json:"score"`
	Grade string  `json:"grade"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := s.limits.Default
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}

	opts := searchuc.Options{
		IncludeTrust:     queryFlag(r, "trust"),
		BypassTrustCache: queryFlag(r, "fresh"),
	}

	start := time.Now()
	results, err := s.search.Search(r.Context(), query, limit, opts)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, r, err, "search failed")
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()

	out := make([]searchResultJSON, len(results))
	for i, res := range results {
		out[i] = searchResultJSON{
			ListingID:      res.ListingID,
			SellerID:       res.SellerID,
			CompositeScore: res.CompositeScore,
			SemanticScore:  res.SemanticScore,
			LexicalScore:   res.LexicalScore,
			RankScore:      res.RankScore,
			Trust:          trustToJSON(res.Trust),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// --- Trust ---

func (s *Server) handleTrustScores(w http.ResponseWriter, r *http.Request) {
	rawIDs := r.URL.Query().Get("ids")
	if rawIDs == "" {
		writeError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}

	var ids []string
	for _, id := range strings.Split(rawIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids query parameter is required")
		return
	}

	opts := domtrust.LookupOptions{BypassCache: queryFlag(r, "bypass")}
	scores, err := s.trust.GetTrustScores(r.Context(), ids, opts)
	if err != nil {
		s.handleDomainError(w, r, err, "trust lookup failed")
		return
	}

	out := make(map[string]trustScoreJSON, len(scores))
	for id, score := range scores {
		out[id] = trustScoreJSON{Score: score.Value, Grade: score.Grade.String()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sellers": out})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.trust.Stats())
}

func (s *Server) handleCacheStatsReset(w http.ResponseWriter, _ *http.Request) {
	s.trust.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func trustToJSON(score *domtrust.Score) *trustScoreJSON {
	if score == nil {
		return nil
	}
	return &trustScoreJSON{Score: score.Value, Grade: score.Grade.String()}
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// requestLogger attaches a request-scoped logger carrying the request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), reqLogger)))
	})
}

// handleDomainError maps sentinel errors to HTTP status codes.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrExternalService):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.FromContext(r.Context()).Error(msg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
