package security

import "time"

type Report struct {
	SigningAlgorithm string
	KeySize          int
	ExpiryDuration   time.Duration
	ExpiryDefaulted  bool
	InsecureSecret   bool
	MetricsEnabled   bool
	LatencyMetrics   bool
	Warnings         []string
}

type ReportInput struct {
	SigningAlgorithm  string
	KeySize           int
	ConfiguredExpiry  time.Duration
	EffectiveExpiry   time.Duration
	InsecureSecret    bool
	MetricsEnabled    bool
	LatencyHistograms bool
}

// Warning codes attached to a Report.
const (
	WarnInsecureSecret  = "insecure_secret"
	WarnExpiryDefaulted = "expiry_defaulted"
	WarnExpiryLong      = "expiry_long"
)

// LongExpiryThreshold marks expiry windows that deserve an operator's attention.
const LongExpiryThreshold = 7 * 24 * time.Hour

func BuildReport(input ReportInput) Report {
	var warnings []string
	if input.InsecureSecret {
		warnings = append(warnings, WarnInsecureSecret)
	}
	defaulted := input.ConfiguredExpiry <= 0
	if defaulted {
		warnings = append(warnings, WarnExpiryDefaulted)
	}
	if input.EffectiveExpiry > LongExpiryThreshold {
		warnings = append(warnings, WarnExpiryLong)
	}

	return Report{
		SigningAlgorithm: input.SigningAlgorithm,
		KeySize:          input.KeySize,
		ExpiryDuration:   input.EffectiveExpiry,
		ExpiryDefaulted:  defaulted,
		InsecureSecret:   input.InsecureSecret,
		MetricsEnabled:   input.MetricsEnabled,
		LatencyMetrics:   input.MetricsEnabled && input.LatencyHistograms,
		Warnings:         warnings,
	}
}
