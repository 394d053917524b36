package jwt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Timestamp is a NumericDate with millisecond precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns t truncated to the millisecond.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.Truncate(time.Millisecond)}
}

// MarshalJSON writes seconds since the epoch, with a three digit fraction when
// the timestamp is not on a whole second.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	ms := t.UnixMilli()
	if ms < 0 {
		return strconv.AppendFloat(nil, float64(ms)/1e3, 'f', 3, 64), nil
	}
	sec, frac := ms/1000, ms%1000
	if frac == 0 {
		return strconv.AppendInt(nil, sec, 10), nil
	}
	return fmt.Appendf(nil, "%d.%03d", sec, frac), nil
}

// UnmarshalJSON accepts integer or fractional seconds. Fractions are rounded
// to the nearest millisecond.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var number json.Number
	if err := json.Unmarshal(b, &number); err != nil {
		return fmt.Errorf("parse numeric date: %w", err)
	}
	f, err := number.Float64()
	if err != nil {
		return fmt.Errorf("parse numeric date %q: %w", number, err)
	}
	if math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/1e3 {
		return fmt.Errorf("numeric date out of range: %s", number)
	}

	sec, frac := math.Modf(f)
	t.Time = time.Unix(int64(sec), 0).Add(time.Duration(math.Round(frac*1e3)) * time.Millisecond)
	return nil
}

// Claims is the payload of an issued token.
//
// Subject is always serialized, including when empty, so that a token issued
// for an empty identity round-trips as a valid token with an empty subject.
type Claims struct {
	Subject   string     `json:"sub"`
	IssuedAt  *Timestamp `json:"iat,omitempty"`
	ExpiresAt *Timestamp `json:"exp,omitempty"`
}

var _ jwt.Claims = Claims{}

// GetExpirationTime implements the jwt.Claims interface.
func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return numericDate(c.ExpiresAt), nil
}

// GetIssuedAt implements the jwt.Claims interface.
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return numericDate(c.IssuedAt), nil
}

// GetNotBefore implements the jwt.Claims interface. Tokens carry no nbf.
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements the jwt.Claims interface. Tokens carry no iss.
func (c Claims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements the jwt.Claims interface.
func (c Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements the jwt.Claims interface. Tokens carry no aud.
func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// numericDate converts without going through jwt.NewNumericDate, which would
// truncate to jwt.TimePrecision (one second by default).
func numericDate(t *Timestamp) *jwt.NumericDate {
	if t == nil {
		return nil
	}
	return &jwt.NumericDate{Time: t.Time}
}
