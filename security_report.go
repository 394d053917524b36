package goToken

import (
	"time"

	"github.com/MrEthical07/goToken/internal/security"
)

// SecurityReport summarizes the security-relevant configuration of a
// TokenService. It never includes key material.
type SecurityReport struct {
	SigningAlgorithm string
	KeySize          int
	ExpiryDuration   time.Duration
	ExpiryDefaulted  bool
	// InsecureSecret is true when the development fallback secret is in use.
	InsecureSecret bool
	MetricsEnabled bool
	LatencyMetrics bool
	// Warnings lists stable codes: "insecure_secret", "expiry_defaulted", "expiry_long".
	Warnings []string
}

func (s *TokenService) SecurityReport() SecurityReport {
	if s == nil || s.manager == nil {
		return SecurityReport{}
	}

	r := security.BuildReport(security.ReportInput{
		SigningAlgorithm:  s.manager.Algorithm(),
		KeySize:           security.KeySize,
		ConfiguredExpiry:  s.config.ExpiryDuration,
		EffectiveExpiry:   s.expiry,
		InsecureSecret:    s.insecure,
		MetricsEnabled:    s.config.Metrics.Enabled,
		LatencyHistograms: s.config.Metrics.EnableLatencyHistograms,
	})

	return SecurityReport{
		SigningAlgorithm: r.SigningAlgorithm,
		KeySize:          r.KeySize,
		ExpiryDuration:   r.ExpiryDuration,
		ExpiryDefaulted:  r.ExpiryDefaulted,
		InsecureSecret:   r.InsecureSecret,
		MetricsEnabled:   r.MetricsEnabled,
		LatencyMetrics:   r.LatencyMetrics,
		Warnings:         r.Warnings,
	}
}
