// Package aggregator merges Collector output into realtime and daily Trend
// documents and upserts them to the store and cache (C5), grounded on the
// teacher's repositories.*Repository upsert-by-key pattern generalized from
// a single Mongo collection to the (store, cache) pair the spec requires.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/csvcollect"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/ranker"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/trend"
)

// Aggregator upserts ranked Trend documents to the Store and mirrors them
// into the Cache.
type Aggregator struct {
	Store               store.Store
	Cache                cache.Cache
	TopN                 int
	RealtimeIntervalMin  int
}

func New(s store.Store, c cache.Cache, topN, realtimeIntervalMin int) *Aggregator {
	if topN <= 0 {
		topN = 50
	}
	if realtimeIntervalMin <= 0 {
		realtimeIntervalMin = 15
	}
	return &Aggregator{Store: s, Cache: c, TopN: topN, RealtimeIntervalMin: realtimeIntervalMin}
}

const dailyTTLSeconds = 24 * 60 * 60

// AggregateFromFile ranks a single Collector's bags into Trend documents and
// upserts them. jobType is realtime for the primary 15-minute path and daily
// when the Fetcher's fallback ladder lands on a daily archive (§4.3). When
// category is CategoryAll, all three entity categories plus, if non-empty,
// a documents category Trend are produced.
func (a *Aggregator) AggregateFromFile(ctx context.Context, c *csvcollect.Collector, timestamp time.Time, jobType trend.Type, category trend.Category) ([]trend.Trend, error) {
	bags := map[trend.Category][]string{
		trend.CategoryThemes:  c.Themes,
		trend.CategoryPersons: c.Persons,
		trend.CategoryOrgs:    c.Orgs,
	}

	cats := categoriesFor(category)
	ttl := a.RealtimeIntervalMin * 60
	if jobType == trend.TypeDaily {
		ttl = dailyTTLSeconds
	}

	date := trend.ISODate(timestamp)
	var out []trend.Trend
	for _, cat := range cats {
		ranked := ranker.RankBag(bags[cat], a.TopN)
		t := trend.Trend{
			Timestamp: timestamp,
			Type:      jobType,
			Date:      date,
			Category:  cat,
			Keywords:  ranked,
		}
		if err := a.persist(ctx, t, ttl); err != nil {
			return out, err
		}
		out = append(out, t)
	}

	if len(c.DocumentIdentifiers) > 0 {
		docsTrend := documentsTrend(c.DocumentIdentifiers, timestamp, jobType, date, a.TopN)
		if err := a.persist(ctx, docsTrend, ttl); err != nil {
			return out, err
		}
		out = append(out, docsTrend)
	}

	return out, nil
}

// AggregateDaily concatenates the bags across the day's 15-minute Collectors
// (nominally 96: 24h × 15min) and upserts daily Trend documents with a
// 24-hour cache TTL.
func (a *Aggregator) AggregateDaily(ctx context.Context, collectors []*csvcollect.Collector, date string, category trend.Category) ([]trend.Trend, error) {
	var themes, persons, orgs, docIDs []string
	for _, c := range collectors {
		if c == nil {
			continue
		}
		themes = append(themes, c.Themes...)
		persons = append(persons, c.Persons...)
		orgs = append(orgs, c.Orgs...)
		docIDs = append(docIDs, c.DocumentIdentifiers...)
	}
	bags := map[trend.Category][]string{
		trend.CategoryThemes:  themes,
		trend.CategoryPersons: persons,
		trend.CategoryOrgs:    orgs,
	}

	timestamp := middayUTC(date)
	cats := categoriesFor(category)

	var out []trend.Trend
	for _, cat := range cats {
		ranked := ranker.RankBag(bags[cat], a.TopN)
		t := trend.Trend{
			Timestamp: timestamp,
			Type:      trend.TypeDaily,
			Date:      date,
			Category:  cat,
			Keywords:  ranked,
		}
		if err := a.persist(ctx, t, dailyTTLSeconds); err != nil {
			return out, err
		}
		out = append(out, t)
	}

	if len(docIDs) > 0 {
		docsTrend := documentsTrend(docIDs, timestamp, trend.TypeDaily, date, a.TopN)
		if err := a.persist(ctx, docsTrend, dailyTTLSeconds); err != nil {
			return out, err
		}
		out = append(out, docsTrend)
	}

	return out, nil
}

func categoriesFor(category trend.Category) []trend.Category {
	if category == trend.CategoryAll || category == "" {
		return trend.Categories
	}
	return []trend.Category{category}
}

// documentsTrend builds the documents-category Trend: deduplicated IDs, each
// with count 1 (invariant 5 of §3).
func documentsTrend(ids []string, timestamp time.Time, jobType trend.Type, date string, topN int) trend.Trend {
	seen := make(map[string]bool, len(ids))
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		// The ranker folds words case-insensitively, so dedup the same way
		// to keep every surviving ID at count 1.
		key := strings.ToLower(id)
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, id)
	}
	keywords := make([]trend.Keyword, 0, len(order))
	for _, id := range order {
		keywords = append(keywords, trend.Keyword{Word: id, Count: 1})
	}
	ranked := ranker.RankByCount(keywords, topN)
	return trend.Trend{
		Timestamp: timestamp,
		Type:      jobType,
		Date:      date,
		Category:  trend.CategoryDocuments,
		Keywords:  ranked,
	}
}

func middayUTC(date string) time.Time {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
}

// persist upserts t to the Store and, concurrently, mirrors it into the
// Cache. The store write is surfaced to the caller on failure; the cache
// write is best-effort (§7).
func (a *Aggregator) persist(ctx context.Context, t trend.Trend, ttlSeconds int) error {
	var wg sync.WaitGroup
	var storeErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		storeErr = a.Store.UpsertTrend(ctx, t)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		payload, err := json.Marshal(t)
		if err != nil {
			logger.WarnWithFields("failed to marshal trend for cache", logger.Fields{"error": err.Error()})
			return
		}
		cache.SetOrLog(ctx, a.Cache, cacheKey(t), payload, ttlSeconds)
	}()

	wg.Wait()
	if storeErr != nil {
		return fmt.Errorf("upsert trend %s/%s/%s: %w", t.Type, t.Date, t.Category, storeErr)
	}
	return nil
}

func cacheKey(t trend.Trend) string {
	return fmt.Sprintf("%s:%s:%s", t.Type, t.Date, t.Category)
}
