// Package trustfactors reads the per-seller activity aggregates that the
// external aggregation job writes to the KV backend.
package trustfactors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodshelf/marketrank/internal/db"
	"github.com/goodshelf/marketrank/internal/domain"
	"github.com/goodshelf/marketrank/internal/domain/trust"
)

// store is the consumer interface for the trust-factor repository (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/trust.FactorSource.
type Repo struct {
	store store
}

// New creates a trust-factor repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the aggregated factors for a seller.
// A seller the aggregation job has not seen yet maps to domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, sellerID string) (trust.Factors, error) {
	data, err := r.store.Get(ctx, factorsKey(sellerID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return trust.Factors{}, fmt.Errorf("factors for seller %s: %w", sellerID, domain.ErrNotFound)
		}
		return trust.Factors{}, fmt.Errorf("%w: get factors for seller %s: %w",
			domain.ErrExternalService, sellerID, err)
	}

	var f trust.Factors
	if err := json.Unmarshal(data, &f); err != nil {
		return trust.Factors{}, fmt.Errorf("unmarshal factors for seller %s: %w", sellerID, err)
	}
	return f, nil
}

// Put stores the aggregated factors for a seller.
func (r *Repo) Put(ctx context.Context, sellerID string, f trust.Factors) error {
	if sellerID == "" {
		return fmt.Errorf("%w: seller id is required", domain.ErrValidation)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal factors for seller %s: %w", sellerID, err)
	}
	if err := r.store.Set(ctx, factorsKey(sellerID), data); err != nil {
		return fmt.Errorf("%w: put factors for seller %s: %w", domain.ErrExternalService, sellerID, err)
	}
	return nil
}

func factorsKey(sellerID string) string {
	return domain.KeyPrefix + "trust_factors:" + sellerID
}
