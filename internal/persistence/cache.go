// Package persistence contains helpers shared by activity source implementations.
package persistence

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anishjoni/predict-my-run/internal/domain"
	"github.com/anishjoni/predict-my-run/internal/observability"
)

const (
	// DefaultCacheTTL matches the dashboard's ten minute query cache.
	DefaultCacheTTL = 10 * time.Minute
	// DefaultLoadTimeout bounds a shared load once it no longer follows any caller's context.
	DefaultLoadTimeout = 30 * time.Second
)

// CachedSource memoises another source's dataset for a TTL. Concurrent misses
// share a single load, which runs detached from the caller that started it so
// one disconnecting client cannot fail the others.
type CachedSource struct {
	source      domain.ActivitySource
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	records    []domain.ActivityRecord
	loadedAt   time.Time
	generation uint64
}

// CacheOption configures a CachedSource.
type CacheOption func(*CachedSource)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedSource) {
		c.now = now
	}
}

// WithLoadTimeout bounds each upstream load. Non-positive values keep DefaultLoadTimeout.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(c *CachedSource) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// NewCachedSource wraps source. A non-positive ttl selects DefaultCacheTTL.
func NewCachedSource(source domain.ActivitySource, ttl time.Duration, opts ...CacheOption) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachedSource{source: source, ttl: ttl, loadTimeout: DefaultLoadTimeout, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActivities returns a copy of the cached dataset, loading it when absent or
// stale. Cancelling ctx abandons the wait, not the shared load.
func (c *CachedSource) ListActivities(ctx context.Context) ([]domain.ActivityRecord, error) {
	c.mu.RLock()
	if c.records != nil && c.now().Sub(c.loadedAt) < c.ttl {
		out := cloneRecords(c.records)
		c.mu.RUnlock()
		cacheHits.Inc()
		return out, nil
	}
	generation := c.generation
	c.mu.RUnlock()
	cacheMisses.Inc()

	ch := c.group.DoChan("activities", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		start := time.Now()
		records, err := c.source.ListActivities(loadCtx)
		loadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			loadErrors.Inc()
			return nil, err
		}
		if records == nil {
			records = []domain.ActivityRecord{}
		}
		observability.RecordDatasetSize(len(records))

		c.mu.Lock()
		// An invalidation during the load means the result may already be stale.
		if c.generation == generation {
			c.records = records
			c.loadedAt = c.now()
		}
		c.mu.Unlock()
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRecords(res.Val.([]domain.ActivityRecord)), nil
	}
}

// Invalidate drops the cached dataset so the next call reloads it.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.records = nil
	c.loadedAt = time.Time{}
	c.generation++
	c.mu.Unlock()
	cacheInvalidations.Inc()
}

func cloneRecords(in []domain.ActivityRecord) []domain.ActivityRecord {
	return append([]domain.ActivityRecord(nil), in...)
}
