package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/trend"
)

func TestNextInterval(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 22, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), nextInterval(now, 15))

	onBoundary := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 45, 0, 0, time.UTC), nextInterval(onBoundary, 15))

	endOfHour := time.Date(2024, 5, 1, 8, 50, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), nextInterval(endOfHour, 15))
}

func TestNextDailyTrigger(t *testing.T) {
	before := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), nextDailyTrigger(before, 0))

	beforeHour := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), nextDailyTrigger(beforeHour, 9))

	afterHour := time.Date(2024, 5, 1, 9, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), nextDailyTrigger(afterHour, 9))
}

type memStore struct{ docs map[trend.Key]trend.Trend }

func newMemStore() *memStore { return &memStore{docs: make(map[trend.Key]trend.Trend)} }
func (m *memStore) UpsertTrend(ctx context.Context, t trend.Trend) error {
	m.docs[t.Key()] = t
	return nil
}
func (m *memStore) FindTrend(ctx context.Context, key trend.Key) (*trend.Trend, error) {
	if t, ok := m.docs[key]; ok {
		return &t, nil
	}
	return nil, nil
}
func (m *memStore) FindTrends(ctx context.Context, q store.Query) ([]trend.Trend, error) {
	return nil, nil
}

type memCache struct{ data map[string][]byte }

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }
func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) { return c.data[key], nil }
func (c *memCache) SetWithTTL(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error { delete(c.data, key); return nil }

// TestRunDailyOnceToleratesSlotFailures drives runDailyOnce against a
// Fetcher pointed at an unreachable host: every one of the 96 slot fetches
// fails, and the job must still complete (an empty AggregateDaily call)
// without panicking or returning an error up the call stack (§7, §4.7).
func TestRunDailyOnceToleratesSlotFailures(t *testing.T) {
	s := newMemStore()
	ag := aggregator.New(s, cache.Cache(newMemCache()), 50, 15)
	f := fetcher.New(fetcher.Config{GDELTBaseURL: "http://127.0.0.1:0", GDELTDailyBaseURL: "http://127.0.0.1:0"}, ag)

	sched := New(Config{RealtimeIntervalMin: 15, DailyHourUTC: 0}, f, ag)

	require.NotPanics(t, func() {
		sched.runDailyOnce(context.Background(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	})
}
