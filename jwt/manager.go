package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config defines the signing parameters of a [Manager].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Key is the HMAC-SHA256 key. It is copied by NewManager.
	Key []byte
	// TTL is the validity window of issued tokens. Values below one
	// millisecond are raised to one millisecond.
	TTL time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Manager signs and verifies HS256 tokens. It is safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager bound to it.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Key) == 0 {
		return nil, errors.New("hs256 requires signing key")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.TTL < time.Millisecond {
		cfg.TTL = time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)
	cfg.Key = key

	return &Manager{config: cfg}, nil
}

// MustNewManager is like NewManager but panics if cfg is invalid. It is meant
// for callers that construct cfg themselves and already guarantee a non-empty
// key and a positive TTL.
func MustNewManager(cfg Config) *Manager {
	m, err := NewManager(cfg)
	if err != nil {
		panic("jwt: " + err.Error())
	}
	return m
}

// TTL reports the validity window applied by Sign.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Algorithm reports the JWS algorithm name written to token headers.
func (m *Manager) Algorithm() string {
	return jwt.SigningMethodHS256.Alg()
}

// Sign issues a token for subject, valid from now until now+TTL.
func (m *Manager) Sign(subject string) (string, error) {
	issuedAt := NewTimestamp(m.config.Now())
	claims := Claims{
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: NewTimestamp(issuedAt.Add(m.config.TTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.Key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns its claims.
//
// A token is accepted only when it is an HS256 JWS whose MAC verifies under
// the manager's key and whose exp is strictly after the current time. The
// returned error wraps the golang-jwt error describing the failure.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Now),
		// Reject non-canonical base64 so no two signature strings decode to the same MAC.
		jwt.WithStrictDecoding(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", t.Header["alg"])
		}
		return m.config.Key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// IsExpired reports whether err was caused by a token whose exp has passed.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
