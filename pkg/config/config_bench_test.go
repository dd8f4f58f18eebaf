package config

import (
	"os"
	"testing"
)

// BenchmarkConfig_Validate benchmarks configuration validation
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := validBaseConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}

// BenchmarkConfig_LoadFromEnv benchmarks environment variable loading
func BenchmarkConfig_LoadFromEnv(b *testing.B) {
	os.Setenv("EXCHANGE_API_KEY", "key")
	os.Setenv("EXCHANGE_API_SECRET", "secret")
	os.Setenv("EXCHANGE_API_PASSPHRASE", "passphrase")
	os.Setenv("PROFIT_THRESHOLD_BPS", "10")
	os.Setenv("NOTIONAL_CEILING", "1000")
	defer func() {
		os.Unsetenv("EXCHANGE_API_KEY")
		os.Unsetenv("EXCHANGE_API_SECRET")
		os.Unsetenv("EXCHANGE_API_PASSPHRASE")
		os.Unsetenv("PROFIT_THRESHOLD_BPS")
		os.Unsetenv("NOTIONAL_CEILING")
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = LoadFromEnv()
	}
}
