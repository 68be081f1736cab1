// Package fetcher locates, downloads, and decompresses a GDELT GKG archive
// by timestamp, then hands the decompressed record stream to the CSV
// Collector and the Aggregator (C3). It owns the 15-minute → daily → prior
// day fallback ladder described in §4.3.
package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/csvcollect"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/trend"
)

const (
	defaultRealtimeTimeout = 300 * time.Second
	defaultDailyTimeout    = 60 * time.Second
)

// Config holds the URL templates and column-index overrides the Fetcher
// needs; it does not interpret file contents beyond handing bytes to the
// Collector.
type Config struct {
	GDELTBaseURL      string
	GDELTDailyBaseURL string
	ColumnIndices     csvcollect.ColumnIndices
}

// Fetcher fetches and decompresses GKG archives and drives them through the
// Aggregator.
type Fetcher struct {
	cfg        Config
	aggregator *aggregator.Aggregator
	httpClient *http.Client
}

func New(cfg Config, ag *aggregator.Aggregator) *Fetcher {
	return &Fetcher{cfg: cfg, aggregator: ag, httpClient: &http.Client{}}
}

// BuildRealtimeFilename computes the 15-minute filename, minutes floored to
// the nearest multiple of 15 (S1).
func BuildRealtimeFilename(t time.Time) string {
	t = t.UTC()
	flooredMin := (t.Minute() / 15) * 15
	floored := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), flooredMin, 0, 0, time.UTC)
	return floored.Format("200601021504") + "00.gkg.csv.zip"
}

// BuildDailyFilename computes the daily rollup filename for the UTC
// calendar day of t (S1).
func BuildDailyFilename(t time.Time) string {
	return t.UTC().Format("20060102") + ".gkg.csv.zip"
}

// FetchAndProcess fetches the 15-minute archive for ts, processes it as a
// realtime Trend set, and — on any failure — falls back to the daily
// archive for ts's day, then the prior day (§4.3). It returns the Trends
// written on whichever attempt succeeded, or an error if every attempt
// failed.
func (f *Fetcher) FetchAndProcess(ctx context.Context, ts time.Time) ([]trend.Trend, error) {
	filename := BuildRealtimeFilename(ts)
	collector, err := f.fetchAndCollect(ctx, f.cfg.GDELTBaseURL, filename, defaultRealtimeTimeout)
	if err == nil {
		trends, aggErr := f.aggregator.AggregateFromFile(ctx, collector, ts, trend.TypeRealtime, trend.CategoryAll)
		if aggErr != nil {
			return nil, fmt.Errorf("aggregate realtime file %s: %w", filename, aggErr)
		}
		return trends, nil
	}
	logger.WarnWithFields("realtime fetch failed, falling back to daily archive", logger.Fields{
		"filename": filename, "error": err.Error(),
	})

	for offset := 0; offset <= 1; offset++ {
		day := ts.UTC().AddDate(0, 0, -offset)
		trends, fbErr := f.fetchDailyArchive(ctx, day)
		if fbErr == nil {
			return trends, nil
		}
		logger.WarnWithFields("daily fallback attempt failed", logger.Fields{
			"offset_days": offset, "error": fbErr.Error(),
		})
	}

	return nil, fmt.Errorf("all fetch attempts failed for %s", filename)
}

// FetchDaily fetches and collects the daily archive for day without falling
// back further; used directly by the admin re-fetch endpoint and the
// Scorer's baseline-ensure phase (§4.6 Phase A).
func (f *Fetcher) FetchDaily(ctx context.Context, day time.Time) ([]trend.Trend, error) {
	return f.fetchDailyArchive(ctx, day)
}

func (f *Fetcher) fetchDailyArchive(ctx context.Context, day time.Time) ([]trend.Trend, error) {
	filename := BuildDailyFilename(day)
	collector, err := f.fetchAndCollect(ctx, f.cfg.GDELTDailyBaseURL, filename, defaultRealtimeTimeout)
	if err != nil {
		return nil, fmt.Errorf("fetch daily archive %s: %w", filename, err)
	}
	trends, err := f.aggregator.AggregateFromFile(ctx, collector, middayUTC(day), trend.TypeDaily, trend.CategoryAll)
	if err != nil {
		return nil, fmt.Errorf("aggregate daily file %s: %w", filename, err)
	}
	return trends, nil
}

// FetchAndCollectSlot fetches a single 15-minute archive and returns its raw
// Collector without aggregating, for the Scheduler's daily rollup (§4.7),
// using the 60s per-file timeout reserved for that bulk path (§5).
func (f *Fetcher) FetchAndCollectSlot(ctx context.Context, slot time.Time) (*csvcollect.Collector, error) {
	filename := BuildRealtimeFilename(slot)
	return f.fetchAndCollect(ctx, f.cfg.GDELTBaseURL, filename, defaultDailyTimeout)
}

func (f *Fetcher) fetchAndCollect(ctx context.Context, baseURL, filename string, timeout time.Duration) (*csvcollect.Collector, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := baseURL + "/" + filename
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", url, err)
	}
	if len(reader.File) == 0 {
		return nil, fmt.Errorf("empty archive %s", url)
	}

	entry, err := reader.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry %s: %w", url, err)
	}
	defer entry.Close()

	return csvcollect.Collect(entry, f.cfg.ColumnIndices)
}

func middayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}
