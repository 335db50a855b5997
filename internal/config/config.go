package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/investracker/tracker/internal/domain"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Fallbacks used when the FX and metals sources are unreachable. Both are
// INR figures: 83 INR per USD and 5300 INR per gram of gold.
var (
	defaultFXFallbackRate    = decimal.NewFromInt(83)
	defaultGoldFallbackPrice = decimal.NewFromInt(5300)
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort    string
	AdminAPIKey string

	StorageBackend string
	DatabaseURL    string
	SQLitePath     string
	RedisURL       string

	TargetCurrency string

	FXURL          string
	FXTimeout      time.Duration
	FXFallbackRate decimal.Decimal

	CoinGeckoURL     string
	CoinGeckoTimeout time.Duration

	AlphaVantageURL            string
	AlphaVantageTimeout        time.Duration
	AlphaVantageAPIKey         string
	AlphaVantageCallsPerMinute int
	EquityDefaultExchange      string

	MetalsURL         string
	MetalsTimeout     time.Duration
	GoldFallbackPrice decimal.Decimal

	RefreshConcurrency    int
	RefreshWorkerInterval time.Duration

	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	databaseURL := envOrDefault("DATABASE_URL", "")
	defaultBackend := BackendSQLite
	if databaseURL != "" {
		defaultBackend = BackendPostgres
	}

	cfg := Config{
		HTTPPort:    envOrDefault("HTTP_PORT", "5000"),
		AdminAPIKey: envOrDefault("ADMIN_API_KEY", ""),

		StorageBackend: envOrDefaultBackend("STORAGE_BACKEND", defaultBackend),
		DatabaseURL:    databaseURL,
		SQLitePath:     envOrDefault("SQLITE_PATH", "tracker.db"),
		RedisURL:       envOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		TargetCurrency: envOrDefaultCurrency("TARGET_CURRENCY", "INR"),

		FXURL:          envOrDefault("FX_URL", "https://api.exchangerate-api.com/v4"),
		FXTimeout:      envOrDefaultDuration("FX_TIMEOUT", 5*time.Second),
		FXFallbackRate: envOrDefaultDecimal("FX_FALLBACK_RATE", defaultFXFallbackRate),

		CoinGeckoURL:     envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoTimeout: envOrDefaultDuration("COINGECKO_TIMEOUT", 10*time.Second),

		AlphaVantageURL:            envOrDefault("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query"),
		AlphaVantageTimeout:        envOrDefaultDuration("ALPHA_VANTAGE_TIMEOUT", 10*time.Second),
		AlphaVantageAPIKey:         envOrDefaultWarn("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageCallsPerMinute: envOrDefaultInt("ALPHA_VANTAGE_CALLS_PER_MINUTE", 5),
		EquityDefaultExchange:      strings.ToUpper(envOrDefault("EQUITY_DEFAULT_EXCHANGE", "NSE")),

		MetalsURL:         envOrDefault("METALS_URL", "https://api.metals.live/v1"),
		MetalsTimeout:     envOrDefaultDuration("METALS_TIMEOUT", 5*time.Second),
		GoldFallbackPrice: envOrDefaultDecimal("GOLD_FALLBACK_PRICE", defaultGoldFallbackPrice),

		RefreshConcurrency:    envOrDefaultInt("REFRESH_CONCURRENCY", 1),
		RefreshWorkerInterval: envOrDefaultDuration("REFRESH_WORKER_INTERVAL", 0),

		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}

	for _, key := range inrOnlyDefaults(cfg) {
		slog.Warn("fallback default assumes INR, set it for the target currency",
			"key", key, "target_currency", cfg.TargetCurrency)
	}
	return cfg
}

// inrOnlyDefaults lists the fallback settings still at their INR defaults
// while the target currency is something else.
func inrOnlyDefaults(cfg Config) []string {
	if cfg.TargetCurrency == "INR" {
		return nil
	}
	var keys []string
	if cfg.FXFallbackRate.Equal(defaultFXFallbackRate) {
		keys = append(keys, "FX_FALLBACK_RATE")
	}
	if cfg.GoldFallbackPrice.Equal(defaultGoldFallbackPrice) {
		keys = append(keys, "GOLD_FALLBACK_PRICE")
	}
	return keys
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultDecimal accepts only positive amounts.
func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, ok := domain.ParsePositive(v)
		if !ok {
			slog.Warn("invalid positive decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultCurrency(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		code, err := domain.NormalizeCurrency(v)
		if err != nil {
			slog.Warn("invalid currency env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return code
	}
	return defaultVal
}

func envOrDefaultBackend(key, defaultVal string) string {
	v := strings.ToLower(envOrDefault(key, defaultVal))
	switch v {
	case BackendPostgres, BackendSQLite, BackendRedis:
		return v
	default:
		slog.Warn("unknown storage backend, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
}
