package goToken

import "time"

// DefaultExpiry is the validity window used when Config.ExpiryDuration is not positive.
const DefaultExpiry = 24 * time.Hour

// Config defines the construction parameters of a [TokenService].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Secret is raw key material or a passphrase. Secrets shorter than 32
	// characters are replaced by a development-only fallback.
	Secret string
	// ExpiryDuration is the validity window of issued tokens.
	ExpiryDuration time.Duration
	// DefaultExpiry replaces ExpiryDuration when it is zero or negative.
	DefaultExpiry time.Duration
	Metrics       MetricsConfig
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process metric collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		ExpiryDuration: DefaultExpiry,
		DefaultExpiry:  DefaultExpiry,
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration: 24 hour tokens, metrics off.
// Secret is left empty and must be supplied by the caller.
func DefaultConfig() Config {
	return defaultConfig()
}

// ShortLivedConfig returns a configuration for short access tokens with
// metrics and latency histograms enabled.
func ShortLivedConfig(secret string) Config {
	cfg := defaultConfig()
	cfg.Secret = secret
	cfg.ExpiryDuration = 15 * time.Minute
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// effectiveExpiry applies the ExpiryDuration -> DefaultExpiry -> 24h fallback chain.
func (c Config) effectiveExpiry() time.Duration {
	if c.ExpiryDuration > 0 {
		return c.ExpiryDuration
	}
	if c.DefaultExpiry > 0 {
		return c.DefaultExpiry
	}
	return DefaultExpiry
}
