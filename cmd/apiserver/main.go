// Command apiserver serves the HTTP query surface (C9), grounded on the
// teacher's cmd/api/main.go entrypoint shape: load config, connect the
// store, wire the router, listen.
package main

import (
	"context"
	"net/http"
	"os"

	"gdelt-trends/api/router"
	"gdelt-trends/config"
	"gdelt-trends/internal/aggregator"
	"gdelt-trends/internal/cache"
	"gdelt-trends/internal/fetcher"
	"gdelt-trends/internal/logger"
	"gdelt-trends/internal/scorer"
	"gdelt-trends/internal/store"

	"gdelt-trends/api/handlers"
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

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	redisCache := cache.NewRedisCache(redisClient)

	ag := aggregator.New(mongoStore, redisCache, cfg.TopN, cfg.RealtimeIntervalMin)
	f := fetcher.New(fetcher.Config{
		GDELTBaseURL:      cfg.GDELTBaseURL,
		GDELTDailyBaseURL: cfg.GDELTDailyBaseURL,
		ColumnIndices:     cfg.ColumnIndices.ToCollectorIndices(),
	}, ag)
	sc := scorer.New(mongoStore, f, 8)

	deps := handlers.Deps{Store: mongoStore, Cache: redisCache, Scorer: sc, Fetcher: f}
	engine := router.New(deps)

	logger.InfoWithFields("apiserver listening", logger.Fields{"port": cfg.Port})
	if err := http.ListenAndServe(":"+cfg.Port, router.WithCORS(engine)); err != nil && err != http.ErrServerClosed {
		logger.ErrorWithFields("apiserver exited", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
}
