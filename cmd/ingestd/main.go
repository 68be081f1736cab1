// Command ingestd runs the realtime and daily ingestion jobs (C7),
// grounded on the teacher's cmd/aggregate/main.go entrypoint shape:
// load config, connect the store, run forever.
package main

import (
	"context"
	"os"

	"gdelt-trends/config"
	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/scheduler"
	"gdelt-trends/internal/store"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.InitFromEnv("LOG_LEVEL")

	ctx := context.Background()

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.ErrorWithFields("failed to connect to store", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	mongoStore := store.NewMongoStore(db)
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		logger.ErrorWithFields("failed to ensure store indexes", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	redisCache := cache.NewRedisCache(redisClient)

	ag := aggregator.New(mongoStore, redisCache, cfg.TopN, cfg.RealtimeIntervalMin)
	f := fetcher.New(fetcher.Config{
		GDELTBaseURL:      cfg.GDELTBaseURL,
		GDELTDailyBaseURL: cfg.GDELTDailyBaseURL,
		ColumnIndices:     cfg.ColumnIndices.ToCollectorIndices(),
	}, ag)

	sched := scheduler.New(scheduler.Config{
		RealtimeIntervalMin: cfg.RealtimeIntervalMin,
		DailyHourUTC:        cfg.DailyHourUTC,
	}, f, ag)

	logger.InfoWithFields("ingestd starting", logger.Fields{
		"realtime_interval_min": cfg.RealtimeIntervalMin, "daily_hour_utc": cfg.DailyHourUTC,
	})

	done := make(chan struct{})
	go func() {
		sched.RunRealtime(ctx)
		close(done)
	}()
	sched.RunDaily(ctx)
	<-done
}
