// Package embcache memoizes listing embeddings, keyed by listing id plus a
// content fingerprint so edits invalidate the cached vector. An in-process
// layer makes ensure-embeddings idempotent within a process; an optional KV
// layer persists vectors across restarts.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goodshelf/marketrank/internal/db"
	"github.com/goodshelf/marketrank/internal/domain"
)

// store is the consumer interface for the persisted embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type memEntry struct {
	fingerprint string
	vec         []float32
}

// CachedEmbedder wraps an embedder with per-listing memoization.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store // nil when no persisted store is configured
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	mu  sync.RWMutex
	mem map[string]memEntry
}

// New creates a caching decorator. s may be nil; the cache then lives only in
// process memory. cacheTotal is a counter vec with label "result" ("hit"/"miss").
func New(
	inner domain.Embedder,
	s store,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
		mem:        make(map[string]memEntry),
	}
}

// EmbedListing returns the embedding for a listing's search text, computing it
// only when the listing is new or its text changed since the last call.
func (c *CachedEmbedder) EmbedListing(ctx context.Context, l domain.Listing) ([]float32, error) {
	fp := Fingerprint(l)

	c.mu.RLock()
	entry, ok := c.mem[l.ID]
	c.mu.RUnlock()
	if ok && entry.fingerprint == fp {
		c.incCache("hit")
		return entry.vec, nil
	}

	if vec, ok := c.getPersisted(ctx, l.ID, fp); ok {
		c.remember(l.ID, fp, vec)
		c.incCache("hit")
		return vec, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, l.SearchText())
	if err != nil {
		return nil, fmt.Errorf("embed listing %s: %w", l.ID, err)
	}

	c.remember(l.ID, fp, result.Embedding)
	c.putPersisted(ctx, l.ID, fp, result.Embedding)
	return result.Embedding, nil
}

// EmbedQuery embeds ad-hoc query text without touching the listing cache.
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return result.Embedding, nil
}

// Fingerprint hashes the text a listing is embedded against. A changed title
// or description yields a new fingerprint and invalidates the cached vector.
func Fingerprint(l domain.Listing) string {
	h := sha256.New()
	h.Write([]byte(l.Title))
	h.Write([]byte{0})
	h.Write([]byte(l.Description))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *CachedEmbedder) remember(id, fp string, vec []float32) {
	c.mu.Lock()
	c.mem[id] = memEntry{fingerprint: fp, vec: vec}
	c.mu.Unlock()
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) getPersisted(ctx context.Context, id, fp string) ([]float32, bool) {
	if c.store == nil {
		return nil, false
	}

	data, err := c.store.Get(ctx, cacheKey(id, fp))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("listing_id", id), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("listing_id", id), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putPersisted(ctx context.Context, id, fp string, vec []float32) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, cacheKey(id, fp), vectorToCacheBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("listing_id", id), zap.Error(err))
	}
}

func cacheKey(id, fp string) string {
	return domain.KeyPrefix + "emb_cache:" + id + ":" + fp
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
