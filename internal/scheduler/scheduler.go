// Package scheduler runs the two recurring ingestion jobs described in §4.7:
// a realtime job on a fixed-minute cadence and a daily rollup at a
// configured UTC hour. It is grounded on the teacher's cmd/aggregate/main.go
// run-once-then-sleep-until-next-trigger loop, generalized from a single
// Asia/Seoul-midnight job to two independently configured UTC jobs (C7).
package scheduler

import (
	"context"
	"time"

	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/csvcollect"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/trend"
)

// Config holds the job cadences; RealtimeIntervalMin must divide 60 evenly
// to line up with the GDELT 15-minute archive boundaries.
type Config struct {
	RealtimeIntervalMin int
	DailyHourUTC        int
}

func (c Config) withDefaults() Config {
	if c.RealtimeIntervalMin <= 0 {
		c.RealtimeIntervalMin = 15
	}
	if c.DailyHourUTC < 0 || c.DailyHourUTC > 23 {
		c.DailyHourUTC = 0
	}
	return c
}

// Scheduler drives the Fetcher/Aggregator pair on a timer.
type Scheduler struct {
	cfg        Config
	fetcher    *fetcher.Fetcher
	aggregator *aggregator.Aggregator
}

func New(cfg Config, f *fetcher.Fetcher, ag *aggregator.Aggregator) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), fetcher: f, aggregator: ag}
}

// RunRealtime blocks, running the realtime job once immediately and then
// every RealtimeIntervalMin minutes on the wall clock, until ctx is done.
// A single job failure is logged and does not stop the loop (§7).
func (s *Scheduler) RunRealtime(ctx context.Context) {
	s.runRealtimeOnce(ctx, time.Now().UTC())

	for {
		next := nextInterval(time.Now().UTC(), s.cfg.RealtimeIntervalMin)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			s.runRealtimeOnce(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) runRealtimeOnce(ctx context.Context, at time.Time) {
	logger.InfoWithFields("realtime job starting", logger.Fields{"at": at.Format(time.RFC3339)})
	if _, err := s.fetcher.FetchAndProcess(ctx, at); err != nil {
		logger.WarnWithFields("realtime job failed", logger.Fields{"at": at.Format(time.RFC3339), "error": err.Error()})
	}
}

// RunDaily blocks, running the daily rollup once immediately and then every
// day at DailyHourUTC, until ctx is done.
func (s *Scheduler) RunDaily(ctx context.Context) {
	s.runDailyOnce(ctx, time.Now().UTC())

	for {
		next := nextDailyTrigger(time.Now().UTC(), s.cfg.DailyHourUTC)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			s.runDailyOnce(ctx, now.UTC())
		}
	}
}

// runDailyOnce fetches and collects the last 96 fifteen-minute slots of the
// current UTC date sequentially (to bound memory, per §5) and hands the
// concatenated Collectors to AggregateDaily.
func (s *Scheduler) runDailyOnce(ctx context.Context, at time.Time) {
	date := trend.ISODate(at)
	logger.InfoWithFields("daily rollup starting", logger.Fields{"date": date})

	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	collectors := make([]*csvcollect.Collector, 0, 96)
	for i := 0; i < 96; i++ {
		slot := dayStart.Add(time.Duration(i) * 15 * time.Minute)
		c, err := s.fetcher.FetchAndCollectSlot(ctx, slot)
		if err != nil {
			logger.WarnWithFields("daily rollup slot fetch failed", logger.Fields{
				"date": date, "slot": slot.Format(time.RFC3339), "error": err.Error(),
			})
			continue
		}
		collectors = append(collectors, c)
	}

	if _, err := s.aggregator.AggregateDaily(ctx, collectors, date, trend.CategoryAll); err != nil {
		logger.WarnWithFields("daily rollup aggregate failed", logger.Fields{"date": date, "error": err.Error()})
	}
}

// nextInterval returns the next wall-clock instant that is an exact multiple
// of intervalMin minutes past the hour, strictly after now.
func nextInterval(now time.Time, intervalMin int) time.Time {
	hourStart := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	for t := hourStart; ; t = t.Add(time.Duration(intervalMin) * time.Minute) {
		if t.After(now) {
			return t
		}
	}
}

// nextDailyTrigger returns the next UTC instant at hourUTC:00:00, strictly
// after now.
func nextDailyTrigger(now time.Time, hourUTC int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if today.After(now) {
		return today
	}
	return today.AddDate(0, 0, 1)
}
