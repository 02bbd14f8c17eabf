package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

type countingSource struct {
	calls   atomic.Int32
	records []domain.ActivityRecord
	err     error
	gate    chan struct{}
}

func (s *countingSource) ListActivities(ctx context.Context) ([]domain.ActivityRecord, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.ActivityRecord(nil), s.records...), nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sampleRecords() []domain.ActivityRecord {
	return []domain.ActivityRecord{
		{ActivityID: "1", SportType: "Run", StartDateLocal: time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC), DistanceKm: domain.Float(5)},
		{ActivityID: "2", SportType: "Ride", StartDateLocal: time.Date(2025, 3, 4, 6, 0, 0, 0, time.UTC), DistanceKm: domain.Float(40)},
	}
}

func TestCachedSourceServesWithinTTL(t *testing.T) {
	src := &countingSource{records: sampleRecords()}
	clock := &fakeClock{now: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)}
	cache := NewCachedSource(src, time.Minute, WithClock(clock.Now))

	ctx := context.Background()
	first, err := cache.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)

	clock.Advance(30 * time.Second)
	_, err = cache.ListActivities(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, src.calls.Load())

	clock.Advance(31 * time.Second)
	_, err = cache.ListActivities(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestCachedSourceInvalidateForcesReload(t *testing.T) {
	src := &countingSource{records: sampleRecords()}
	cache := NewCachedSource(src, time.Hour)

	ctx := context.Background()
	_, err := cache.ListActivities(ctx)
	require.NoError(t, err)

	cache.Invalidate()
	_, err = cache.ListActivities(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestCachedSourceReturnsCopies(t *testing.T) {
	src := &countingSource{records: sampleRecords()}
	cache := NewCachedSource(src, time.Hour)

	ctx := context.Background()
	first, err := cache.ListActivities(ctx)
	require.NoError(t, err)
	first[0].SportType = "Swim"

	second, err := cache.ListActivities(ctx)
	require.NoError(t, err)
	require.Equal(t, "Run", second[0].SportType)
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	cache := NewCachedSource(src, time.Hour)

	ctx := context.Background()
	_, err := cache.ListActivities(ctx)
	require.ErrorContains(t, err, "connection refused")

	src.err = nil
	src.records = sampleRecords()
	records, err := cache.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestCachedSourceCollapsesConcurrentMisses(t *testing.T) {
	src := &countingSource{records: sampleRecords(), gate: make(chan struct{})}
	cache := NewCachedSource(src, time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.ListActivities(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, src.calls.Load())
}

func TestCachedSourceCancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &countingSource{records: sampleRecords(), gate: make(chan struct{})}
	cache := NewCachedSource(src, time.Hour)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.ListActivities(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		records []domain.ActivityRecord
		err     error
	}
	second := make(chan result, 1)
	go func() {
		records, err := cache.ListActivities(context.Background())
		second <- result{records, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared load")
	}

	close(src.gate)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.Len(t, res.records, len(sampleRecords()))
	case <-time.After(time.Second):
		t.Fatal("live caller never received the shared load")
	}
	require.EqualValues(t, 1, src.calls.Load())

	// The detached load still populated the cache.
	_, err := cache.ListActivities(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, src.calls.Load())
}

func TestCachedSourceLoadTimeout(t *testing.T) {
	src := &countingSource{records: sampleRecords(), gate: make(chan struct{})}
	defer close(src.gate)
	cache := NewCachedSource(src, time.Hour, WithLoadTimeout(20*time.Millisecond))

	_, err := cache.ListActivities(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCachedSourceEmptyDatasetIsCached(t *testing.T) {
	src := &countingSource{}
	cache := NewCachedSource(src, time.Hour)

	ctx := context.Background()
	records, err := cache.ListActivities(ctx)
	require.NoError(t, err)
	require.Empty(t, records)

	_, err = cache.ListActivities(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, src.calls.Load())
}
