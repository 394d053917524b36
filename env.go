package goToken

import (
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the environment representation of [Config].
type EnvConfig struct {
	Secret            string `env:"TOKEN_SECRET"`
	ExpiryDurationMs  int64  `env:"TOKEN_EXPIRY_MS" envDefault:"0"`
	MetricsEnabled    bool   `env:"TOKEN_METRICS_ENABLED" envDefault:"false"`
	LatencyHistograms bool   `env:"TOKEN_METRICS_LATENCY" envDefault:"false"`
}

// Config converts e into a Config. A zero or negative TOKEN_EXPIRY_MS leaves
// the expiry to the 24 hour default.
func (e EnvConfig) Config() Config {
	cfg := defaultConfig()
	cfg.Secret = e.Secret
	cfg.ExpiryDuration = time.Duration(e.ExpiryDurationMs) * time.Millisecond
	cfg.Metrics.Enabled = e.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = e.LatencyHistograms
	return cfg
}

// LoadConfigFromEnv reads TOKEN_* variables from the process environment.
// It fails when a variable is present but cannot be parsed, or when
// TOKEN_EXPIRY_MS does not fit in a time.Duration.
func LoadConfigFromEnv() (Config, error) {
	return loadConfig(env.Options{})
}

// maxExpiryMs is the largest millisecond count a time.Duration can hold.
const maxExpiryMs = math.MaxInt64 / int64(time.Millisecond)

func loadConfig(opts env.Options) (Config, error) {
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return Config{}, fmt.Errorf("parse token env config: %w", err)
	}
	if ec.ExpiryDurationMs > maxExpiryMs || ec.ExpiryDurationMs < -maxExpiryMs {
		return Config{}, fmt.Errorf("parse token env config: %w: TOKEN_EXPIRY_MS=%d outside ±%d",
			ErrExpiryOutOfRange, ec.ExpiryDurationMs, maxExpiryMs)
	}
	return ec.Config(), nil
}
