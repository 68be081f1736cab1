package fetcher_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/csvcollect"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/trend"
)

func TestBuildFilenames(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 22, 17, 0, time.UTC)
	assert.Equal(t, "20240501081500.gkg.csv.zip", fetcher.BuildRealtimeFilename(ts))
	assert.Equal(t, "20240501.gkg.csv.zip", fetcher.BuildDailyFilename(ts))
}

type memStore struct {
	docs map[trend.Key]trend.Trend
}

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
func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.data[key], nil
}
func (c *memCache) SetWithTTL(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.data[key] = value
	return nil
}
func (c *memCache) Del(ctx context.Context, key string) error { delete(c.data, key); return nil }

func zipOf(t *testing.T, tsv string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("data.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte(tsv))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TestFallbackLadder exercises S6: 15-min fetch 404s, daily-today 404s,
// daily-yesterday 200s. Only daily Trends for yesterday should be written.
func TestFallbackLadder(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 22, 17, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	yesterdayFile := "/" + fetcher.BuildDailyFilename(yesterday)

	fields := make([]string, 11)
	for i := range fields {
		fields[i] = "x"
	}
	fields[csvcollect.DefaultThemesIndex] = "TAX_POLITICAL"
	body := zipOf(t, fields[0]+"\t"+fields[1]+"\t"+fields[2]+"\t"+fields[3]+"\t"+fields[4]+"\t"+fields[5]+"\t"+fields[6]+"\t"+fields[7]+"\t"+fields[8]+"\t"+fields[9]+"\t"+fields[10]+"\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == yesterdayFile {
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newMemStore()
	ag := aggregator.New(s, cache.Cache(newMemCache()), 50, 15)
	f := fetcher.New(fetcher.Config{
		GDELTBaseURL:      srv.URL,
		GDELTDailyBaseURL: srv.URL,
		ColumnIndices:     csvcollect.NewColumnIndices(),
	}, ag)

	trends, err := f.FetchAndProcess(context.Background(), now)
	require.NoError(t, err)
	require.NotEmpty(t, trends)

	for _, tr := range trends {
		assert.Equal(t, trend.TypeDaily, tr.Type)
		assert.Equal(t, trend.ISODate(yesterday), tr.Date)
	}

	for _, key := range s.docs {
		assert.Equal(t, trend.TypeDaily, key.Type)
	}
}
