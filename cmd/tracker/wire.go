package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/investracker/tracker/internal/config"
	"github.com/investracker/tracker/internal/database"
	"github.com/investracker/tracker/internal/external"
	"github.com/investracker/tracker/internal/holding"
	"github.com/investracker/tracker/internal/portfolio"
	"github.com/investracker/tracker/internal/price"
)

// newPriceService wires the upstream clients into the price adapters.
func newPriceService(cfg config.Config) *price.Service {
	coingecko := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoTimeout)
	alphaVantage := external.NewAlphaVantageClient(cfg.AlphaVantageURL, cfg.AlphaVantageTimeout, cfg.AlphaVantageCallsPerMinute)
	metals := external.NewMetalsClient(cfg.MetalsURL, cfg.MetalsTimeout)
	rates := external.NewExchangeRateClient(cfg.FXURL, cfg.FXTimeout)

	fx := price.NewConverter(rates, cfg.FXFallbackRate)

	return price.NewService(
		price.NewCryptoAdapter(coingecko, fx, cfg.TargetCurrency),
		price.NewEquityAdapter(alphaVantage, fx, cfg.TargetCurrency, cfg.EquityDefaultExchange, cfg.AlphaVantageAPIKey),
		price.NewMetalAdapter(metals, coingecko, fx, cfg.TargetCurrency, cfg.GoldFallbackPrice),
		cfg.TargetCurrency,
	)
}

// openRepository connects to the configured storage backend. The returned
// function releases the connection.
func openRepository(ctx context.Context, cfg config.Config) (holding.Repository, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the %s backend", cfg.StorageBackend)
		}
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, database.PostgresMigrations()); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		return holding.NewPgRepository(pool), pool.Close, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return holding.NewSQLiteRepository(db), func() { _ = db.Close() }, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return holding.NewRedisRepository(client), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// newHoldingService opens storage and builds the holding service on top of it.
func newHoldingService(ctx context.Context, cfg config.Config, prices *price.Service) (*holding.Service, func(), error) {
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	refresher := portfolio.NewRefresher(prices, cfg.RefreshConcurrency)
	return holding.NewService(repo, refresher), closeRepo, nil
}
