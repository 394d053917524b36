package goToken

import "errors"

var (
	// ErrTokenInvalid is the single failure outcome of token verification. It
	// covers malformed tokens, unsupported algorithms, MAC mismatches, and expiry.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrInvalidIdentity is returned by Issue for an identity that is not valid
	// UTF-8. JSON encoding would replace the invalid bytes with U+FFFD, so
	// distinct identities could verify as the same subject.
	ErrInvalidIdentity = errors.New("identity is not valid UTF-8")
	// ErrExpiryOutOfRange is returned by LoadConfigFromEnv when TOKEN_EXPIRY_MS
	// would overflow a time.Duration.
	ErrExpiryOutOfRange = errors.New("token expiry out of range")
	// ErrServiceNotReady is returned when a method is called on a nil TokenService.
	ErrServiceNotReady = errors.New("token service not initialized")
)
