package goToken

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goToken/jwt"
)

// TokenService issues and verifies signed, time-bounded identity tokens.
//
// A TokenService is immutable once built and safe for concurrent use by any
// number of goroutines. It keeps no per-token state: the token is the whole
// credential.
type TokenService struct {
	expiry   time.Duration
	insecure bool
	config   Config
	manager  *jwt.Manager
	metrics  *Metrics
	logger   *slog.Logger
}

// NewTokenService builds a TokenService from cfg with the default logger and
// the system clock. It never fails; see [Builder.Build].
func NewTokenService(cfg Config) *TokenService {
	return New().WithConfig(cfg).Build()
}

// Issue returns a token asserting identity, valid from now until now plus
// the configured expiry.
//
// identity must be valid UTF-8 and is otherwise passed through unchanged; an
// empty identity yields a token with an empty subject. Issue fails with
// ErrInvalidIdentity for invalid UTF-8 and ErrServiceNotReady for a nil
// receiver. HS256 signing with a derived key does not fail.
func (s *TokenService) Issue(identity string) (string, error) {
	if s == nil || s.manager == nil {
		return "", ErrServiceNotReady
	}
	if !utf8.ValidString(identity) {
		return "", ErrInvalidIdentity
	}

	token, err := s.manager.Sign(identity)
	if err != nil {
		s.logger.Error("token signing failed", "reason", err)
		return "", err
	}
	s.metrics.Inc(MetricTokenIssued)
	return token, nil
}

// Verify returns the subject of token and true when token carries a valid
// signature under this service's key and has not expired. Any other input,
// including malformed strings, yields "" and false.
//
// A valid token issued for an empty identity returns "" and true.
func (s *TokenService) Verify(token string) (string, bool) {
	claims, err := s.VerifyClaims(token)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// VerifyClaims is Verify returning the full claims. Every failure is reported
// as ErrTokenInvalid.
func (s *TokenService) VerifyClaims(token string) (*jwt.Claims, error) {
	if s == nil || s.manager == nil {
		return nil, ErrTokenInvalid
	}

	var start time.Time
	if s.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := s.manager.Parse(token)

	if s.metrics.LatencyEnabled() {
		s.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		if jwt.IsExpired(err) {
			s.metrics.Inc(MetricTokenExpired)
		} else {
			s.metrics.Inc(MetricTokenRejected)
		}
		s.logger.Debug("token rejected", "reason", err)
		return nil, ErrTokenInvalid
	}

	s.metrics.Inc(MetricTokenVerified)
	return claims, nil
}

// Insecure reports whether the service signs with the development fallback
// secret because the configured one was missing or too short.
func (s *TokenService) Insecure() bool {
	return s != nil && s.insecure
}

// Expiry reports the validity window applied to issued tokens.
func (s *TokenService) Expiry() time.Duration {
	if s == nil {
		return 0
	}
	return s.expiry
}

// MetricsSnapshot returns the current metric values. It is empty when
// metrics are disabled.
func (s *TokenService) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return s.metrics.Snapshot()
}
