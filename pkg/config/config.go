package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Exchange transport
	RESTBaseURL        string
	WSPublicURL        string
	WSPrivateURL       string
	ExchangeAPIKey     string
	ExchangeSecret     string
	ExchangePassphrase string

	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Symbol universe
	BaseAsset   string   // default "BTC"
	QuoteAssets []string // default ["BTC", "USDT"]

	// Synchronizer
	SnapshotDepth           int
	SynchronizerWorkers     int
	SnapshotInitialBackoff  time.Duration
	SnapshotMaxBackoff      time.Duration
	SubscriptionBatchSize   int

	// Detector
	ProfitThresholdBPS decimal.Decimal
	NotionalCeiling    decimal.Decimal
	FeeRate            decimal.Decimal

	// Gatekeeper
	GlobalBudget             decimal.Decimal
	FreshnessWindow          time.Duration
	Cooldown                 time.Duration
	AckTimeout               time.Duration
	ForcedEvictionMultiplier int64

	// Dispatcher
	DispatchRetryCount   int
	DispatchRetryBackoff time.Duration

	// Monitoring
	MonitorSampleInterval time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		RESTBaseURL:        getEnvOrDefault("EXCHANGE_REST_URL", "https://api.exchange.example"),
		WSPublicURL:        getEnvOrDefault("EXCHANGE_WS_PUBLIC_URL", "wss://ws.exchange.example/public"),
		WSPrivateURL:       getEnvOrDefault("EXCHANGE_WS_PRIVATE_URL", "wss://ws.exchange.example/private"),
		ExchangeAPIKey:     os.Getenv("EXCHANGE_API_KEY"),
		ExchangeSecret:     os.Getenv("EXCHANGE_API_SECRET"),
		ExchangePassphrase: os.Getenv("EXCHANGE_API_PASSPHRASE"),

		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		BaseAsset:   getEnvOrDefault("BASE_ASSET", "BTC"),
		QuoteAssets: getStringSliceOrDefault("QUOTE_ASSETS", []string{"BTC", "USDT"}),

		SnapshotDepth:          getIntOrDefault("SNAPSHOT_DEPTH", 100),
		SynchronizerWorkers:    getIntOrDefault("SYNCHRONIZER_WORKERS", 4),
		SnapshotInitialBackoff: getDurationOrDefault("SNAPSHOT_INITIAL_BACKOFF", 250*time.Millisecond),
		SnapshotMaxBackoff:     getDurationOrDefault("SNAPSHOT_MAX_BACKOFF", 30*time.Second),
		SubscriptionBatchSize:  getIntOrDefault("SUBSCRIPTION_BATCH_SIZE", 100),

		ProfitThresholdBPS: getDecimalOrDefault("PROFIT_THRESHOLD_BPS", "10"),
		NotionalCeiling:    getDecimalOrDefault("NOTIONAL_CEILING", "1000"),
		FeeRate:            getDecimalOrDefault("FEE_RATE", "0.001"),

		GlobalBudget:             getDecimalOrDefault("GLOBAL_BUDGET", "5000"),
		FreshnessWindow:          getDurationOrDefault("FRESHNESS_WINDOW", 500*time.Millisecond),
		Cooldown:                 getDurationOrDefault("COOLDOWN", time.Second),
		AckTimeout:               getDurationOrDefault("ACK_TIMEOUT", 10*time.Second),
		ForcedEvictionMultiplier: int64(getIntOrDefault("FORCED_EVICTION_MULTIPLIER", 10)),

		DispatchRetryCount:   getIntOrDefault("DISPATCH_RETRY_COUNT", 2),
		DispatchRetryBackoff: getDurationOrDefault("DISPATCH_RETRY_BACKOFF", 50*time.Millisecond),

		MonitorSampleInterval: getDurationOrDefault("MONITOR_SAMPLE_INTERVAL", 10*time.Second),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "triarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "triarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "triarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.RESTBaseURL == "" {
		return errors.New("EXCHANGE_REST_URL cannot be empty")
	}
	if c.WSPublicURL == "" {
		return errors.New("EXCHANGE_WS_PUBLIC_URL cannot be empty")
	}
	if c.WSPrivateURL == "" {
		return errors.New("EXCHANGE_WS_PRIVATE_URL cannot be empty")
	}
	if c.ExchangeAPIKey == "" || c.ExchangeSecret == "" || c.ExchangePassphrase == "" {
		return errors.New("exchange credentials (key, secret, passphrase) must all be set")
	}

	if c.BaseAsset == "" {
		return errors.New("BASE_ASSET cannot be empty")
	}
	if len(c.QuoteAssets) < 2 {
		return errors.New("QUOTE_ASSETS must list at least the base asset and one settlement asset")
	}

	if c.ProfitThresholdBPS.IsNegative() {
		return fmt.Errorf("PROFIT_THRESHOLD_BPS must be non-negative, got %s", c.ProfitThresholdBPS)
	}
	if !c.NotionalCeiling.IsPositive() {
		return fmt.Errorf("NOTIONAL_CEILING must be positive, got %s", c.NotionalCeiling)
	}
	if c.FeeRate.IsNegative() {
		return fmt.Errorf("FEE_RATE must be non-negative, got %s", c.FeeRate)
	}

	if !c.GlobalBudget.IsPositive() {
		return fmt.Errorf("GLOBAL_BUDGET must be positive, got %s", c.GlobalBudget)
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("FRESHNESS_WINDOW must be positive, got %s", c.FreshnessWindow)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("COOLDOWN must be positive, got %s", c.Cooldown)
	}
	if c.AckTimeout <= 0 {
		return fmt.Errorf("ACK_TIMEOUT must be positive, got %s", c.AckTimeout)
	}
	if c.ForcedEvictionMultiplier < 1 {
		return fmt.Errorf("FORCED_EVICTION_MULTIPLIER must be at least 1, got %d", c.ForcedEvictionMultiplier)
	}

	if c.SnapshotDepth < 1 {
		return fmt.Errorf("SNAPSHOT_DEPTH must be at least 1, got %d", c.SnapshotDepth)
	}
	if c.SynchronizerWorkers < 1 {
		return fmt.Errorf("SYNCHRONIZER_WORKERS must be at least 1, got %d", c.SynchronizerWorkers)
	}
	if c.SubscriptionBatchSize < 1 {
		return fmt.Errorf("SUBSCRIPTION_BATCH_SIZE must be at least 1, got %d", c.SubscriptionBatchSize)
	}
	if c.WSMessageBufferSize < 1 {
		return fmt.Errorf("WS_MESSAGE_BUFFER_SIZE must be at least 1, got %d", c.WSMessageBufferSize)
	}

	if c.DispatchRetryCount < 0 {
		return fmt.Errorf("DISPATCH_RETRY_COUNT must be non-negative, got %d", c.DispatchRetryCount)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getDecimalOrDefault(key string, defaultValue string) decimal.Decimal {
	def, err := decimal.NewFromString(defaultValue)
	if err != nil {
		panic(err)
	}

	value := os.Getenv(key)
	if value == "" {
		return def
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return def
	}
	return d
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
