// Package scorer computes the composite novelty/volume score per keyword
// across a sliding baseline window, with graceful-degradation fallback
// tiers for noisy upstream data (C6).
package scorer

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/store"
	"gdelt-trends/internal/tokenizer"
	"gdelt-trends/internal/trend"
	"gdelt-trends/internal/workerpool"
)

const (
	defaultWindowDays       = 7
	defaultTopN             = 50
	maxParallelBaselineFetch = 31
)

// Options parameterizes a single ScoreTrends call.
type Options struct {
	Date       string // ISO YYYY-MM-DD
	Category   trend.Category
	WindowDays int
	TopN       int
}

func (o Options) withDefaults() Options {
	if o.Category == "" {
		o.Category = trend.CategoryThemes
	}
	if o.WindowDays <= 0 {
		o.WindowDays = defaultWindowDays
	}
	if o.TopN <= 0 {
		o.TopN = defaultTopN
	}
	return o
}

// Result is a single ranked-and-scored keyword.
type Result struct {
	Word  string
	Count int
	Score int
}

// Scorer implements C6.
type Scorer struct {
	Store   store.Store
	Fetcher *fetcher.Fetcher
	Pool    *workerpool.Pool
}

func New(s store.Store, f *fetcher.Fetcher, backgroundFetchCapacity int) *Scorer {
	return &Scorer{Store: s, Fetcher: f, Pool: workerpool.New(backgroundFetchCapacity)}
}

// ScoreTrends ensures baseline coverage, computes scores through the
// fallback tiers, persists a ranked Trend, and returns the ranked list.
func (s *Scorer) ScoreTrends(ctx context.Context, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	date, err := time.Parse("2006-01-02", opts.Date)
	if err != nil {
		return nil, err
	}
	date = date.UTC()

	windowDates := dateWindow(date, opts.WindowDays)
	s.ensureBaseline(ctx, windowDates, opts.Category)

	current, err := s.Store.FindTrend(ctx, trend.Key{Type: trend.TypeDaily, Date: opts.Date, Category: opts.Category})
	if err != nil {
		return nil, err
	}
	if current == nil || len(current.Keywords) == 0 {
		return nil, nil
	}

	baselineFrom := date.AddDate(0, 0, -opts.WindowDays).Format("2006-01-02")
	baselineTrends, err := s.Store.FindTrends(ctx, store.Query{
		Type: trend.TypeDaily, Category: opts.Category,
		DateFrom: baselineFrom, DateTo: opts.Date,
	})
	if err != nil {
		return nil, err
	}

	results := s.runTiers(current.Keywords, baselineTrends, opts.WindowDays, opts.TopN)
	if len(results) == 0 {
		return nil, nil
	}

	if err := s.persistRanked(ctx, results, date, opts.Category); err != nil {
		return nil, err
	}
	return results, nil
}

// runTiers attempts strict, loose, then volume-only scoring in order until
// one produces a non-empty result (Phase C, §4.6).
func (s *Scorer) runTiers(current []trend.Keyword, baselineTrends []trend.Trend, windowDays, topN int) []Result {
	// Tier 1: strict — filter noise from both sides.
	strictCurrent := tokenizer.FilterNoise(current)
	strictBaseline := baselineMap(filterBaselineKeywords(baselineTrends, tokenizer.FilterNoise))
	if r := scoreCore(strictCurrent, strictBaseline, windowDays, topN); len(r) > 0 {
		return r
	}

	// Tier 2: loose — drop only numeric-vector tokens.
	looseCurrent := tokenizer.FilterNumericVectors(current)
	looseBaseline := baselineMap(filterBaselineKeywords(baselineTrends, tokenizer.FilterNumericVectors))
	if r := scoreCore(looseCurrent, looseBaseline, windowDays, topN); len(r) > 0 {
		return r
	}

	// Tier 3: volume-only fallback — every non-noise current keyword,
	// sorted by raw count, score fixed at 100.
	volumeCurrent := tokenizer.FilterNoise(current)
	sort.SliceStable(volumeCurrent, func(i, j int) bool { return volumeCurrent[i].Count > volumeCurrent[j].Count })
	if len(volumeCurrent) > topN {
		volumeCurrent = volumeCurrent[:topN]
	}
	out := make([]Result, 0, len(volumeCurrent))
	for _, k := range volumeCurrent {
		out = append(out, Result{Word: k.Word, Count: k.Count, Score: 100})
	}
	return out
}

func filterBaselineKeywords(trends []trend.Trend, filter func([]trend.Keyword) []trend.Keyword) []trend.Keyword {
	var all []trend.Keyword
	for _, t := range trends {
		all = append(all, t.Keywords...)
	}
	return filter(all)
}

func baselineMap(keywords []trend.Keyword) map[string]int {
	m := make(map[string]int, len(keywords))
	for _, k := range keywords {
		m[k.Word] += k.Count
	}
	return m
}

// scoreCore computes the composite score for every current keyword against
// the baseline window total counts (§4.6 scoreCore).
func scoreCore(current []trend.Keyword, baselineMap map[string]int, windowDays, topN int) []Result {
	if len(current) == 0 {
		return nil
	}

	values := make([]float64, 0, len(baselineMap))
	for _, v := range baselineMap {
		values = append(values, float64(v))
	}
	if len(values) == 0 {
		values = []float64{0}
	}
	mu, sigma := meanStdDev(values)

	denomWindow := windowDays
	if denomWindow < 1 {
		denomWindow = 1
	}

	type scored struct {
		word  string
		count int
		raw   float64
	}
	order := make([]scored, 0, len(current))
	for _, k := range current {
		base := baselineMap[k.Word]
		volume := math.Log(1 + float64(k.Count))
		growth := (float64(k.Count) + 1) / (float64(base)/float64(denomWindow) + 1)
		z := 0.0
		if sigma > 0 {
			z = (float64(k.Count) - mu) / sigma
		}
		raw := 0.6*volume + 0.3*math.Log(1+growth) + 0.1*math.Max(0, z)
		order = append(order, scored{word: k.Word, count: k.Count, raw: raw})
	}

	maxRaw := order[0].raw
	for _, o := range order[1:] {
		if o.raw > maxRaw {
			maxRaw = o.raw
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].raw > order[j].raw })
	if len(order) > topN {
		order = order[:topN]
	}

	out := make([]Result, 0, len(order))
	for _, o := range order {
		score := 0
		if maxRaw > 0 {
			score = int(math.Round(o.raw / maxRaw * 100))
		}
		out = append(out, Result{Word: o.word, Count: o.count, Score: score})
	}
	return out
}

func meanStdDev(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mu := sum / float64(len(values))
	var sqSum float64
	for _, v := range values {
		d := v - mu
		sqSum += d * d
	}
	sigma := math.Sqrt(sqSum / float64(len(values)))
	return mu, sigma
}

func (s *Scorer) persistRanked(ctx context.Context, results []Result, date time.Time, category trend.Category) error {
	keywords := make([]trend.Keyword, len(results))
	for i, r := range results {
		score := r.Score
		keywords[i] = trend.Keyword{Word: r.Word, Count: r.Count, Score: &score}
	}
	t := trend.Trend{
		Timestamp: time.Now().UTC(),
		Type:      trend.TypeRanked,
		Date:      trend.ISODate(date),
		Category:  category,
		Keywords:  keywords,
	}
	return s.Store.UpsertTrend(ctx, t)
}

// dateWindow returns {date} ∪ {date-1, ..., date-windowDays} as ISO strings.
func dateWindow(date time.Time, windowDays int) []string {
	out := make([]string, 0, windowDays+1)
	for i := 0; i <= windowDays; i++ {
		out = append(out, date.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return out
}

// ensureBaseline guarantees the store has a daily Trend for as many of
// dates as practical before scoring proceeds. Up to maxParallelBaselineFetch
// missing days are fetched and awaited; the rest are handed to the bounded
// background pool with errors swallowed (§4.6 Phase A, §9).
func (s *Scorer) ensureBaseline(ctx context.Context, dates []string, category trend.Category) {
	present, err := s.Store.FindTrends(ctx, store.Query{Type: trend.TypeDaily, Category: category, Dates: dates})
	if err != nil {
		logger.WarnWithFields("baseline coverage check failed", logger.Fields{"error": err.Error()})
		return
	}
	have := make(map[string]bool, len(present))
	for _, t := range present {
		have[t.Date] = true
	}

	var missing []string
	for _, d := range dates {
		if !have[d] {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return
	}

	immediate := missing
	var background []string
	if len(missing) > maxParallelBaselineFetch {
		immediate = missing[:maxParallelBaselineFetch]
		background = missing[maxParallelBaselineFetch:]
	}

	var wg sync.WaitGroup
	for _, d := range immediate {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fetchBaselineDay(ctx, d)
		}()
	}
	wg.Wait()

	for _, d := range background {
		d := d
		submitted := s.Pool.TrySubmit(func() {
			// Background fetches are not cancellable and must not hold
			// request-scoped resources: use a fresh background context.
			s.fetchBaselineDay(context.Background(), d)
		})
		if !submitted {
			logger.WarnWithFields("baseline background fetch dropped, pool saturated", logger.Fields{"date": d})
		}
	}
}

func (s *Scorer) fetchBaselineDay(ctx context.Context, date string) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return
	}
	if _, err := s.Fetcher.FetchDaily(ctx, day); err != nil {
		logger.WarnWithFields("baseline day fetch failed", logger.Fields{"date": date, "error": err.Error()})
	}
}
