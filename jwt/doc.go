// Package jwt encodes and verifies compact HS256 tokens carrying a subject, an
// issued-at time, and an expiry.
//
// Timestamps are written as RFC 7519 NumericDates with millisecond fractional
// precision so that expiry windows shorter than a second behave as configured.
// Tokens remain decodable by any standards-compliant JWT library.
//
// # What this package must NOT do
//
//   - Derive or store key material. Callers hand [Manager] a ready key.
//   - Accept any algorithm other than HS256, including "none".
package jwt
