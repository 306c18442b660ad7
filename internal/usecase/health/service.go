// Package health reports readiness of the service's collaborators.
package health

import (
	"context"
	"fmt"

	"github.com/goodshelf/marketrank/internal/domain"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service checks readiness of the KV store and the embedding provider.
type Service struct {
	db       Pinger
	embedder domain.HealthChecker
}

// New creates a health service.
func New(db Pinger, embedder domain.HealthChecker) *Service {
	return &Service{db: db, embedder: embedder}
}

// Ready returns nil when every collaborator responds.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.embedder.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	return nil
}
