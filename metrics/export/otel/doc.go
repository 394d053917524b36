// Package otel binds goToken metrics to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers, on a caller-supplied Meter:
//
//	gotoken.tokens.issued              counter
//	gotoken.token.verifications        counter, attribute result=valid|expired|rejected
//	gotoken.verify.duration.bucket     gauge, attribute le, cumulative counts
//	gotoken.verify.duration.count      counter
//	gotoken.verify.duration.sum        counter, seconds
//	gotoken.signing_secret.insecure    gauge, 1 on the development fallback secret
//
// A single callback reads [goToken.TokenService.MetricsSnapshot] on each
// collection cycle. The latency instruments report only while latency
// collection is enabled on the service.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate service state.
package otel
