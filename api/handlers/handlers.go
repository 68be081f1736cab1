// Package handlers implements the HTTP query surface (C9, §6): read
// endpoints over Store/Cache and an admin re-fetch endpoint, grounded on the
// teacher's api/handlers/handlers.go gin.HandlerFunc-per-route shape
// generalized from post/blog listing to Trend queries.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/scorer"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/trend"
)

const topTTLSeconds = 600

// Deps bundles the collaborators every handler needs, mirroring the
// teacher's pattern of closing over a *services.XService per handler
// constructor.
type Deps struct {
	Store   store.Store
	Cache   cache.Cache
	Scorer  *scorer.Scorer
	Fetcher *fetcher.Fetcher
}

// Health pings the Store (when it supports it) and reports degraded status
// on failure, mirroring the teacher's /health handler.
func Health(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		pinger, ok := deps.Store.(store.Pinger)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err := pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Realtime serves GET /trends/realtime?date=&category=: up to 20 most
// recent realtime snapshots for the given category (or every category when
// category=all / omitted).
func Realtime(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		category := trend.Category(c.DefaultQuery("category", string(trend.CategoryAll)))

		trends, err := deps.Store.FindTrends(c.Request.Context(), store.Query{
			Type: trend.TypeRealtime, Category: category, DateFrom: date, DateTo: dateUpperBound(date), Limit: 20,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "category": category, "results": trends})
	}
}

// Daily serves GET /trends/daily?date=&category=: a single document when
// category names one entity class, or a list when category=all.
func Daily(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		category := trend.Category(c.DefaultQuery("category", string(trend.CategoryAll)))

		if category == trend.CategoryAll {
			trends, err := deps.Store.FindTrends(c.Request.Context(), store.Query{
				Type: trend.TypeDaily, Dates: []string{date},
			})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"date": date, "category": category, "results": trends})
			return
		}

		t, err := deps.Store.FindTrend(c.Request.Context(), trend.Key{Type: trend.TypeDaily, Date: date, Category: category})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "category": category, "results": t})
	}
}

// Documents serves GET /trends/documents?date=: the unique document IDs for
// that date's daily rollup.
func Documents(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		t, err := deps.Store.FindTrend(c.Request.Context(), trend.Key{Type: trend.TypeDaily, Date: date, Category: trend.CategoryDocuments})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ids := make([]string, 0)
		if t != nil {
			for _, k := range t.Keywords {
				ids = append(ids, k.Word)
			}
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "category": trend.CategoryDocuments, "results": ids})
	}
}

// Top serves GET /trends/top?date=&category=&window=&limit=&nocache=:
// invokes the Scorer behind a 600s cache, per §6.
func Top(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := c.Query("date")
		category := trend.Category(c.DefaultQuery("category", string(trend.CategoryThemes)))
		windowDays := parseWindow(c.Query("window"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		noCache := c.Query("nocache") == "1"

		key := fmt.Sprintf("top:%s:%s:%d:%d", date, category, windowDays, limit)
		ctx := c.Request.Context()

		if !noCache {
			if cached, ok := cache.GetOrMiss(ctx, deps.Cache, key); ok {
				var results []scorer.Result
				if err := json.Unmarshal(cached, &results); err == nil {
					c.JSON(http.StatusOK, gin.H{"date": date, "category": category, "results": results})
					return
				}
			}
		}

		results, err := deps.Scorer.ScoreTrends(ctx, scorer.Options{
			Date: date, Category: category, WindowDays: windowDays, TopN: limit,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if results == nil {
			results = []scorer.Result{}
		}

		if payload, err := json.Marshal(results); err == nil {
			cache.SetOrLog(ctx, deps.Cache, key, payload, topTTLSeconds)
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "category": category, "results": results})
	}
}

// AdminFetchDaily serves POST /trends/admin/fetchDaily?date=: forces a daily
// re-ingest and evicts the relevant cache keys (§6, SUPPLEMENTED FEATURES
// #2). A generated job ID is attached to this handler's start, failure and
// completion log lines and returned in the response; log lines emitted by
// the Fetcher, Collector and Aggregator during the re-ingest do not carry it.
func AdminFetchDaily(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		dateStr := c.Query("date")
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}

		jobID := uuid.New().String()
		ctx := c.Request.Context()
		logger.InfoWithFields("admin fetchDaily starting", logger.Fields{"job_id": jobID, "date": dateStr})

		trends, err := deps.Fetcher.FetchDaily(ctx, day)
		if err != nil {
			logger.WarnWithFields("admin fetchDaily failed", logger.Fields{"job_id": jobID, "date": dateStr, "error": err.Error()})
			c.JSON(http.StatusInternalServerError, gin.H{"job_id": jobID, "error": err.Error()})
			return
		}

		evictDailyCacheKeys(ctx, deps.Cache, dateStr)
		logger.InfoWithFields("admin fetchDaily complete", logger.Fields{"job_id": jobID, "date": dateStr, "trend_count": len(trends)})
		c.JSON(http.StatusOK, gin.H{"job_id": jobID, "date": dateStr, "trend_count": len(trends)})
	}
}

func evictDailyCacheKeys(ctx context.Context, c cache.Cache, date string) {
	for _, cat := range []string{"all", "themes", "persons", "orgs", "documents"} {
		cache.DelOrLog(ctx, c, fmt.Sprintf("daily:%s:%s", date, cat))
	}
}

// parseWindow implements the §6 window-string grammar: plain integer → days;
// Nd/Nm/Ny → N days / N·30 days / N·365 days; named presets; unknown → 7.
func parseWindow(w string) int {
	if w == "" {
		return 7
	}
	switch w {
	case "7d":
		return 7
	case "30d":
		return 30
	case "3m":
		return 90
	case "1y":
		return 365
	case "3y":
		return 1095
	}

	if n, err := strconv.Atoi(w); err == nil {
		return n
	}

	if len(w) >= 2 {
		n, err := strconv.Atoi(w[:len(w)-1])
		if err == nil {
			switch strings.ToLower(w[len(w)-1:]) {
			case "d":
				return n
			case "m":
				return n * 30
			case "y":
				return n * 365
			}
		}
	}

	return 7
}

// dateUpperBound returns the ISO date one day after date, for half-open
// range queries against a single calendar day.
func dateUpperBound(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, 1).Format("2006-01-02")
}
