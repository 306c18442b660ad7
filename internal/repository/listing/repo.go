// Package listing implements the listing store over the KV backend.
// The marketplace ingest path writes these records through Put; the search
// path reads them through ListAll and GetByID.
package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodshelf/marketrank/internal/db"
	"github.com/goodshelf/marketrank/internal/domain"
)

// store is the consumer interface for the listing repository (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/search.ListingStore.
type Repo struct {
	store store
}

// New creates a listing repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// listingRow is the JSON representation written by the marketplace ingest job.
type listingRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SellerID    string `json:"seller_id"`
}

// ListAll returns the search view of every listing.
// The store is eventually consistent; a key that vanishes between SCAN and GET
// is skipped, not an error.
func (r *Repo) ListAll(ctx context.Context) ([]domain.Listing, error) {
	keys, err := r.store.Scan(ctx, keyPattern())
	if err != nil {
		return nil, fmt.Errorf("%w: scan listings: %w", domain.ErrExternalService, err)
	}

	listings := make([]domain.Listing, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: get listing %s: %w", domain.ErrExternalService, key, err)
		}
		l, err := listingFromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", key, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// GetByID returns a single listing or domain.ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	data, err := r.store.Get(ctx, listingKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		return domain.Listing{}, fmt.Errorf("%w: get listing %s: %w", domain.ErrExternalService, id, err)
	}
	return listingFromJSON(data)
}

// Put stores a listing, overwriting any previous version.
func (r *Repo) Put(ctx context.Context, l domain.Listing) error {
	if l.ID == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrValidation)
	}
	data, err := json.Marshal(listingRow{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		SellerID:    l.SellerID,
	})
	if err != nil {
		return fmt.Errorf("marshal listing %s: %w", l.ID, err)
	}
	if err := r.store.Set(ctx, listingKey(l.ID), data); err != nil {
		return fmt.Errorf("%w: put listing %s: %w", domain.ErrExternalService, l.ID, err)
	}
	return nil
}

func listingFromJSON(data []byte) (domain.Listing, error) {
	var row listingRow
	if err := json.Unmarshal(data, &row); err != nil {
		return domain.Listing{}, fmt.Errorf("unmarshal listing: %w", err)
	}
	return domain.Listing{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		SellerID:    row.SellerID,
	}, nil
}

func listingKey(id string) string {
	return domain.KeyPrefix + "listing:" + id
}

func keyPattern() string {
	return domain.KeyPrefix + "listing:*"
}
