package security

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"
)

const (
	// MinSecretLength is the shortest accepted secret, counted in Unicode code
	// points after trimming surrounding whitespace. A character outside the
	// Basic Multilingual Plane counts once, not as two UTF-16 units.
	MinSecretLength = 32

	// DevelopmentSecret replaces secrets shorter than MinSecretLength.
	// It is public knowledge; tokens signed under it can be forged.
	DevelopmentSecret = "insecure-development-only-secret-replace-before-production"

	// KeySize is the length of derived HMAC-SHA256 keys.
	KeySize = sha256.Size
)

var (
	keySalt = []byte("goToken/hs256/v1")
	keyInfo = []byte("goToken token signing key")
)

// ResolveSecret returns the secret to derive the signing key from. Short or
// missing secrets are replaced with DevelopmentSecret and insecure is true.
func ResolveSecret(secret string) (resolved string, insecure bool) {
	if utf8.RuneCountInString(strings.TrimSpace(secret)) < MinSecretLength {
		return DevelopmentSecret, true
	}
	return secret, false
}

// DeriveKey derives a KeySize HMAC key from the raw bytes of secret with
// HKDF-SHA256. The derivation is deterministic and one-way.
func DeriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), keySalt, keyInfo)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return key, nil
}

// MustDeriveKey is like DeriveKey but panics on error. HKDF-SHA256 yields up
// to 255*32 bytes, so a KeySize read never fails.
func MustDeriveKey(secret string) []byte {
	key, err := DeriveKey(secret)
	if err != nil {
		panic("security: " + err.Error())
	}
	return key
}
