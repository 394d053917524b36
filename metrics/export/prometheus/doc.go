// Package prometheus renders goToken metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [goToken.TokenService] and exposes an
// [http.Handler] that callers mount themselves. The exposition contains:
//
//	gotoken_tokens_issued_total                 counter
//	gotoken_token_verifications_total{result}   counter, result is valid|expired|rejected
//	gotoken_verify_duration_seconds             histogram, when latency collection is on
//	gotoken_insecure_signing_secret             gauge, 1 on the development fallback secret
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry.
//   - Mutate service state.
package prometheus
