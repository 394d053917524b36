package goToken

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/goToken/internal/security"
	"github.com/MrEthical07/goToken/jwt"
)

// Builder assembles a [TokenService]. It is the composition-root entry point:
// configuration is passed in explicitly rather than read from globals.
type Builder struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithLogger sets the logger used for construction diagnostics and rejected
// tokens. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock sets the time source for issuing and verifying. Defaults to time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Verify latency histogram. It has no
// effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build returns the configured TokenService.
//
// Build does not fail. A missing or short secret is replaced by a
// development-only secret; the substitution is logged at WARN and
// reported by [TokenService.Insecure] and [TokenService.SecurityReport].
// A zero or negative expiry falls back to DefaultExpiry.
func (b *Builder) Build() *TokenService {
	cfg := b.config
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	secret, insecure := security.ResolveSecret(cfg.Secret)
	cfg.Secret = ""
	expiry := cfg.effectiveExpiry()

	// The derived key is never empty and effectiveExpiry is always positive.
	manager := jwt.MustNewManager(jwt.Config{
		Key: security.MustDeriveKey(secret),
		TTL: expiry,
		Now: b.now,
	})

	metrics := NewMetrics(cfg.Metrics)
	if insecure {
		metrics.Inc(MetricInsecureSecret)
		logger.Warn("insecure development signing secret in use",
			"min_secret_length", security.MinSecretLength,
			"reason", "secret missing or too short",
		)
	}
	if cfg.ExpiryDuration <= 0 {
		logger.Debug("token expiry not configured, using default", "expiry", expiry)
	}

	return &TokenService{
		expiry:   expiry,
		insecure: insecure,
		config:   cfg,
		manager:  manager,
		metrics:  metrics,
		logger:   logger,
	}
}
