// Package security holds the key material policy for goToken: secret
// sanitizing, the development fallback secret, HKDF key derivation, and the
// configuration report surfaced through [goToken.TokenService.SecurityReport].
//
// # What this package must NOT do
//
//   - Log or return secrets or derived keys outside the returned values.
//   - Fail on weak input. Weak secrets are replaced and flagged, never rejected.
package security
