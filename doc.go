// Package goToken issues and verifies symmetric-key bearer tokens.
//
// A [TokenService] turns an identity string into a compact HS256 JWT carrying
// sub, iat and exp, and turns such a token back into the identity if, and only
// if, its MAC verifies under the service's key and the current time is
// strictly before exp. Every verification failure collapses into a single
// "invalid" outcome.
//
//	svc := goToken.NewTokenService(goToken.Config{
//		Secret:         os.Getenv("TOKEN_SECRET"),
//		ExpiryDuration: time.Hour,
//	})
//
//	token, _ := svc.Issue("alice")
//	if user, ok := svc.Verify(token); ok {
//		// user == "alice"
//	}
//
// # Architecture boundaries
//
// goToken is the public surface: [TokenService], [Builder], [Config] and
// metric value types. Token encoding lives in the jwt sub-package and key
// policy in internal/security. Metric exporters live under metrics/export.
//
// # What this package must NOT do
//
//   - Store tokens, sessions or revocation state. The token is the entire state.
//   - Perform I/O other than reading the clock and writing log records.
//   - Fail construction on a weak secret. It substitutes a development secret
//     and flags the service as insecure instead.
//
// # Concurrency
//
// A TokenService never changes after [Builder.Build]. Issue and Verify take
// no locks and may run in parallel without coordination.
package goToken
