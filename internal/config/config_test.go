package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might affect defaults
	for _, key := range []string{
		"HTTP_PORT", "DATABASE_URL", "STORAGE_BACKEND", "TARGET_CURRENCY", "FX_FALLBACK_RATE",
		"COINGECKO_URL", "ALPHA_VANTAGE_CALLS_PER_MINUTE", "EQUITY_DEFAULT_EXCHANGE",
		"GOLD_FALLBACK_PRICE", "REFRESH_CONCURRENCY", "REFRESH_WORKER_INTERVAL", "FX_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.HTTPPort != "5000" {
		t.Errorf("HTTPPort = %q, want 5000", cfg.HTTPPort)
	}
	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("StorageBackend = %q, want sqlite without DATABASE_URL", cfg.StorageBackend)
	}
	if cfg.TargetCurrency != "INR" {
		t.Errorf("TargetCurrency = %q, want INR", cfg.TargetCurrency)
	}
	if cfg.FXFallbackRate.String() != "83" {
		t.Errorf("FXFallbackRate = %s, want 83", cfg.FXFallbackRate)
	}
	if cfg.GoldFallbackPrice.String() != "5300" {
		t.Errorf("GoldFallbackPrice = %s, want 5300", cfg.GoldFallbackPrice)
	}
	if cfg.CoinGeckoURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("CoinGeckoURL = %q, want default", cfg.CoinGeckoURL)
	}
	if cfg.AlphaVantageCallsPerMinute != 5 {
		t.Errorf("AlphaVantageCallsPerMinute = %d, want 5", cfg.AlphaVantageCallsPerMinute)
	}
	if cfg.EquityDefaultExchange != "NSE" {
		t.Errorf("EquityDefaultExchange = %q, want NSE", cfg.EquityDefaultExchange)
	}
	if cfg.FXTimeout != 5*time.Second {
		t.Errorf("FXTimeout = %v, want 5s", cfg.FXTimeout)
	}
	if cfg.RefreshConcurrency != 1 || cfg.RefreshWorkerInterval != 0 {
		t.Errorf("refresh = %d/%v, want 1/0", cfg.RefreshConcurrency, cfg.RefreshWorkerInterval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/testdb")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("TARGET_CURRENCY", "usd")
	t.Setenv("FX_FALLBACK_RATE", "0.92")
	t.Setenv("EQUITY_DEFAULT_EXCHANGE", "bse")
	t.Setenv("REFRESH_WORKER_INTERVAL", "15m")

	cfg := Load()

	if cfg.StorageBackend != BackendPostgres {
		t.Errorf("StorageBackend = %q, want postgres when DATABASE_URL is set", cfg.StorageBackend)
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
	if cfg.TargetCurrency != "USD" {
		t.Errorf("TargetCurrency = %q, want USD", cfg.TargetCurrency)
	}
	if cfg.FXFallbackRate.String() != "0.92" {
		t.Errorf("FXFallbackRate = %s, want 0.92", cfg.FXFallbackRate)
	}
	if cfg.EquityDefaultExchange != "BSE" {
		t.Errorf("EquityDefaultExchange = %q, want BSE", cfg.EquityDefaultExchange)
	}
	if cfg.RefreshWorkerInterval != 15*time.Minute {
		t.Errorf("RefreshWorkerInterval = %v, want 15m", cfg.RefreshWorkerInterval)
	}
}

func TestLoadInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("ALPHA_VANTAGE_CALLS_PER_MINUTE", "not-a-number")
	t.Setenv("FX_TIMEOUT", "invalid-duration")
	t.Setenv("TARGET_CURRENCY", "XXQ")
	t.Setenv("GOLD_FALLBACK_PRICE", "-1")
	t.Setenv("STORAGE_BACKEND", "mongodb")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()

	if cfg.AlphaVantageCallsPerMinute != 5 {
		t.Errorf("AlphaVantageCallsPerMinute = %d, want default 5 on invalid input", cfg.AlphaVantageCallsPerMinute)
	}
	if cfg.FXTimeout != 5*time.Second {
		t.Errorf("FXTimeout = %v, want default 5s on invalid input", cfg.FXTimeout)
	}
	if cfg.TargetCurrency != "INR" {
		t.Errorf("TargetCurrency = %q, want default INR on invalid input", cfg.TargetCurrency)
	}
	if cfg.GoldFallbackPrice.String() != "5300" {
		t.Errorf("GoldFallbackPrice = %s, want default 5300 on invalid input", cfg.GoldFallbackPrice)
	}
	if cfg.StorageBackend != BackendSQLite {
		t.Errorf("StorageBackend = %q, want default sqlite on invalid input", cfg.StorageBackend)
	}
}

func TestINROnlyDefaults(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"INR target", map[string]string{"TARGET_CURRENCY": "INR"}, nil},
		{"EUR target with defaults", map[string]string{"TARGET_CURRENCY": "EUR"}, []string{"FX_FALLBACK_RATE", "GOLD_FALLBACK_PRICE"}},
		{"EUR target with fx set", map[string]string{"TARGET_CURRENCY": "EUR", "FX_FALLBACK_RATE": "0.92"}, []string{"GOLD_FALLBACK_PRICE"}},
		{"EUR target with both set", map[string]string{"TARGET_CURRENCY": "EUR", "FX_FALLBACK_RATE": "0.92", "GOLD_FALLBACK_PRICE": "60"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TARGET_CURRENCY", "FX_FALLBACK_RATE", "GOLD_FALLBACK_PRICE"} {
				t.Setenv(key, tt.env[key])
			}

			if got := inrOnlyDefaults(Load()); !slices.Equal(got, tt.want) {
				t.Errorf("inrOnlyDefaults = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ALPHA_VANTAGE_API_KEY=from-file\nHTTP_PORT=7000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ALPHA_VANTAGE_API_KEY", "")
	os.Unsetenv("ALPHA_VANTAGE_API_KEY")
	t.Setenv("HTTP_PORT", "6000")

	LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("ALPHA_VANTAGE_API_KEY"); got != "from-file" {
		t.Errorf("ALPHA_VANTAGE_API_KEY = %q, want from-file", got)
	}
	if got := os.Getenv("HTTP_PORT"); got != "6000" {
		t.Errorf("HTTP_PORT = %q, want existing value kept", got)
	}
	os.Unsetenv("ALPHA_VANTAGE_API_KEY")
}
