package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdelt-trends/api/handlers"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/trend"
)

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
	var out []trend.Trend
	for _, t := range m.docs {
		if t.Type != q.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func init() { gin.SetMode(gin.TestMode) }

func TestHealthOKWithoutPinger(t *testing.T) {
	deps := handlers.Deps{Store: newMemStore()}
	r := gin.New()
	r.GET("/health", handlers.Health(deps))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestDailySingleCategory(t *testing.T) {
	s := newMemStore()
	s.docs[trend.Key{Type: trend.TypeDaily, Date: "2024-05-01", Category: trend.CategoryThemes}] = trend.Trend{
		Type: trend.TypeDaily, Date: "2024-05-01", Category: trend.CategoryThemes,
		Keywords: []trend.Keyword{{Word: "x", Count: 5}},
	}
	deps := handlers.Deps{Store: s}
	r := gin.New()
	r.GET("/trends/daily", handlers.Daily(deps))

	req := httptest.NewRequest(http.MethodGet, "/trends/daily?date=2024-05-01&category=themes", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"word\":\"x\"")
}

func TestDocumentsReturnsEmptyListWhenAbsent(t *testing.T) {
	deps := handlers.Deps{Store: newMemStore()}
	r := gin.New()
	r.GET("/trends/documents", handlers.Documents(deps))

	req := httptest.NewRequest(http.MethodGet, "/trends/documents?date=2024-05-01", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"results\":[]")
}

func TestAdminFetchDailyRejectsBadDate(t *testing.T) {
	deps := handlers.Deps{Store: newMemStore()}
	r := gin.New()
	r.POST("/trends/admin/fetchDaily", handlers.AdminFetchDaily(deps))

	req := httptest.NewRequest(http.MethodPost, "/trends/admin/fetchDaily?date=not-a-date", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
