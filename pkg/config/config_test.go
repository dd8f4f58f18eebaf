package config

import (
	"os"
	"testing"
	"time"
)

func clearExchangeCreds(t *testing.T) {
	t.Helper()
	os.Setenv("EXCHANGE_API_KEY", "key")
	os.Setenv("EXCHANGE_API_SECRET", "secret")
	os.Setenv("EXCHANGE_API_PASSPHRASE", "passphrase")
	t.Cleanup(func() {
		os.Unsetenv("EXCHANGE_API_KEY")
		os.Unsetenv("EXCHANGE_API_SECRET")
		os.Unsetenv("EXCHANGE_API_PASSPHRASE")
	})
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearExchangeCreds(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.BaseAsset != "BTC" {
		t.Errorf("expected default BaseAsset BTC, got %q", cfg.BaseAsset)
	}
	if len(cfg.QuoteAssets) != 2 || cfg.QuoteAssets[0] != "BTC" || cfg.QuoteAssets[1] != "USDT" {
		t.Errorf("expected default QuoteAssets [BTC USDT], got %v", cfg.QuoteAssets)
	}
	if cfg.DispatchRetryCount != 2 {
		t.Errorf("expected default DispatchRetryCount 2, got %d", cfg.DispatchRetryCount)
	}
	if cfg.MonitorSampleInterval != 10*time.Second {
		t.Errorf("expected default MonitorSampleInterval 10s, got %v", cfg.MonitorSampleInterval)
	}
	if cfg.StorageMode != "console" {
		t.Errorf("expected default StorageMode console, got %q", cfg.StorageMode)
	}
}

func TestLoadFromEnv_QuoteAssetsOverride(t *testing.T) {
	clearExchangeCreds(t)

	os.Setenv("QUOTE_ASSETS", "BTC, USDT, ETH")
	t.Cleanup(func() { os.Unsetenv("QUOTE_ASSETS") })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []string{"BTC", "USDT", "ETH"}
	if len(cfg.QuoteAssets) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.QuoteAssets)
	}
	for i, q := range want {
		if cfg.QuoteAssets[i] != q {
			t.Errorf("expected QuoteAssets[%d] = %q, got %q", i, q, cfg.QuoteAssets[i])
		}
	}
}

func TestLoadFromEnv_MissingCredentialsRejected(t *testing.T) {
	os.Unsetenv("EXCHANGE_API_KEY")
	os.Unsetenv("EXCHANGE_API_SECRET")
	os.Unsetenv("EXCHANGE_API_PASSPHRASE")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error when exchange credentials are missing, got nil")
	}
}

func TestValidate_ProfitThresholdNegativeRejected(t *testing.T) {
	cfg := validBaseConfig()
	cfg.ProfitThresholdBPS = getDecimalOrDefault("__MISSING__", "-1")

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for negative profit threshold, got nil")
	}
}

func TestValidate_NotionalCeilingMustBePositive(t *testing.T) {
	cfg := validBaseConfig()
	cfg.NotionalCeiling = getDecimalOrDefault("__MISSING__", "0")

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for zero notional ceiling, got nil")
	}
}

func TestValidate_GlobalBudgetMustBePositive(t *testing.T) {
	cfg := validBaseConfig()
	cfg.GlobalBudget = getDecimalOrDefault("__MISSING__", "0")

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for zero global budget, got nil")
	}
}

func TestValidate_ForcedEvictionMultiplierMustBeAtLeastOne(t *testing.T) {
	cfg := validBaseConfig()
	cfg.ForcedEvictionMultiplier = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for forced eviction multiplier 0, got nil")
	}
}

func TestValidate_StorageModeMustBeRecognized(t *testing.T) {
	cfg := validBaseConfig()
	cfg.StorageMode = "mongo"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unrecognized storage mode, got nil")
	}
}

func TestValidate_QuoteAssetsRequiresAtLeastTwo(t *testing.T) {
	cfg := validBaseConfig()
	cfg.QuoteAssets = []string{"BTC"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for a single quote asset, got nil")
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	cfg := validBaseConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func validBaseConfig() *Config {
	return &Config{
		HTTPPort:                 "8080",
		RESTBaseURL:              "https://api.exchange.example",
		WSPublicURL:              "wss://ws.exchange.example/public",
		WSPrivateURL:             "wss://ws.exchange.example/private",
		ExchangeAPIKey:           "key",
		ExchangeSecret:           "secret",
		ExchangePassphrase:       "passphrase",
		WSDialTimeout:            10 * time.Second,
		WSPongTimeout:            15 * time.Second,
		WSPingInterval:           10 * time.Second,
		WSReconnectInitialDelay:  time.Second,
		WSReconnectMaxDelay:      30 * time.Second,
		WSReconnectBackoffMult:   2.0,
		WSMessageBufferSize:      10000,
		BaseAsset:                "BTC",
		QuoteAssets:              []string{"BTC", "USDT"},
		SnapshotDepth:            100,
		SynchronizerWorkers:      4,
		SnapshotInitialBackoff:   250 * time.Millisecond,
		SnapshotMaxBackoff:       30 * time.Second,
		SubscriptionBatchSize:    100,
		ProfitThresholdBPS:       getDecimalOrDefault("__MISSING__", "10"),
		NotionalCeiling:          getDecimalOrDefault("__MISSING__", "1000"),
		FeeRate:                  getDecimalOrDefault("__MISSING__", "0.001"),
		GlobalBudget:             getDecimalOrDefault("__MISSING__", "5000"),
		FreshnessWindow:          500 * time.Millisecond,
		Cooldown:                 time.Second,
		AckTimeout:               10 * time.Second,
		ForcedEvictionMultiplier: 10,
		DispatchRetryCount:       2,
		DispatchRetryBackoff:     50 * time.Millisecond,
		MonitorSampleInterval:    10 * time.Second,
		StorageMode:              "console",
	}
}
