package otel

import (
	"context"
	"errors"
	"fmt"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goToken.MetricsSnapshot
	Insecure() bool
}

// OTelExporter publishes a TokenService's metrics through an OTel Meter
// until Close is called.
//
// Verify outcomes are one counter carrying a "result" attribute. OTel has no
// asynchronous histogram, so Verify latency is published as a cumulative
// bucket gauge carrying an "le" attribute, a sample count and a sum in
// seconds.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	issued        metric.Int64ObservableCounter
	verifications metric.Int64ObservableCounter
	latencyBucket metric.Int64ObservableGauge
	latencyCount  metric.Int64ObservableCounter
	latencySum    metric.Float64ObservableCounter
	insecure      metric.Int64ObservableGauge

	resultOpts []metric.ObserveOption
	bucketOpts []metric.ObserveOption
}

// NewOTelExporter registers goToken instruments on meter, reading from svc.
func NewOTelExporter(meter metric.Meter, svc *goToken.TokenService) (*OTelExporter, error) {
	if svc == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, svc)
}

// NewOTelExporterFromSource registers goToken instruments on meter, reading
// from any value exposing MetricsSnapshot and Insecure.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var err error

	if e.issued, err = meter.Int64ObservableCounter(internaldefs.Issued.OTel,
		metric.WithDescription(internaldefs.Issued.Help), metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.Issued.OTel, err)
	}
	if e.verifications, err = meter.Int64ObservableCounter(internaldefs.Verifications.OTel,
		metric.WithDescription(internaldefs.Verifications.Help), metric.WithUnit("{token}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.Verifications.OTel, err)
	}

	latency := internaldefs.VerifyDuration
	if e.latencyBucket, err = meter.Int64ObservableGauge(latency.OTel+".bucket",
		metric.WithDescription(latency.Help+" Cumulative count per upper bound.")); err != nil {
		return nil, fmt.Errorf("create %s.bucket: %w", latency.OTel, err)
	}
	if e.latencyCount, err = meter.Int64ObservableCounter(latency.OTel+".count",
		metric.WithDescription(latency.Help+" Sample count.")); err != nil {
		return nil, fmt.Errorf("create %s.count: %w", latency.OTel, err)
	}
	if e.latencySum, err = meter.Float64ObservableCounter(latency.OTel+".sum",
		metric.WithDescription(latency.Help+" Total."), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create %s.sum: %w", latency.OTel, err)
	}

	if e.insecure, err = meter.Int64ObservableGauge(internaldefs.InsecureSecret.OTel,
		metric.WithDescription(internaldefs.InsecureSecret.Help)); err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.InsecureSecret.OTel, err)
	}

	for _, r := range internaldefs.VerifyResults {
		e.resultOpts = append(e.resultOpts, metric.WithAttributes(attribute.String(internaldefs.ResultLabel, r.Label)))
	}
	for _, le := range internaldefs.LatencyBucketLabels() {
		e.bucketOpts = append(e.bucketOpts, metric.WithAttributes(attribute.String("le", le)))
	}

	e.registration, err = meter.RegisterCallback(e.observe,
		e.issued, e.verifications, e.latencyBucket, e.latencyCount, e.latencySum, e.insecure)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	o.ObserveInt64(e.issued, int64(snap.Counters[goToken.MetricTokenIssued]))
	for i, r := range internaldefs.VerifyResults {
		o.ObserveInt64(e.verifications, int64(snap.Counters[r.Counter]), e.resultOpts[i])
	}

	if _, ok := snap.Histograms[goToken.MetricVerifyLatency]; ok {
		lat := internaldefs.VerifyLatency(snap)
		for i, n := range lat.Cumulative {
			o.ObserveInt64(e.latencyBucket, int64(n), e.bucketOpts[i])
		}
		o.ObserveInt64(e.latencyCount, int64(lat.Count))
		o.ObserveFloat64(e.latencySum, lat.SumSeconds)
	}

	var insecure int64
	if e.source.Insecure() {
		insecure = 1
	}
	o.ObserveInt64(e.insecure, insecure)
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
