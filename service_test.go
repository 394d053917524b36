package goToken

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secretA = "secret-a-0123456789-0123456789-0123456789"
	secretB = "secret-b-0123456789-0123456789-0123456789"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1760870400, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newClockedService(t *testing.T, cfg Config, clock *testClock) *TokenService {
	t.Helper()
	svc := New().WithConfig(cfg).WithLogger(quietLogger()).WithClock(clock.Now).Build()
	require.NotNil(t, svc)
	return svc
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	for _, identity := range []string{"alice", "bob@example.com", "用户", "a.b.c", strings.Repeat("x", 4096)} {
		token, err := svc.Issue(identity)
		require.NoError(t, err)
		require.Equal(t, 2, strings.Count(token, "."), "compact token must have three segments")

		got, ok := svc.Verify(token)
		require.True(t, ok, "identity %q", identity)
		assert.Equal(t, identity, got)
	}
}

func TestRoundTripForShortExpiries(t *testing.T) {
	clock := newTestClock()
	for _, d := range []time.Duration{time.Millisecond, 10 * time.Millisecond, time.Second, 48 * time.Hour} {
		t.Run(d.String(), func(t *testing.T) {
			svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: d}, clock)
			token, err := svc.Issue("alice")
			require.NoError(t, err)

			clock.Advance(d - time.Millisecond)
			got, ok := svc.Verify(token)
			require.True(t, ok)
			assert.Equal(t, "alice", got)

			clock.Advance(time.Millisecond)
			_, ok = svc.Verify(token)
			assert.False(t, ok, "token must be invalid once exp is reached")
		})
	}
}

func TestVerifyRejectsExpiredTokenWallClock(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Millisecond}).WithLogger(quietLogger()).Build()

	token, err := svc.Issue("alice")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	got, ok := svc.Verify(token)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestExpiryIsMonotonic(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Minute}, clock)

	token, err := svc.Issue("alice")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	for i := 0; i < 3; i++ {
		_, ok := svc.Verify(token)
		require.False(t, ok)
		clock.Advance(time.Hour)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	token, err := svc.Issue("alice")
	require.NoError(t, err)

	sigStart := strings.LastIndex(token, ".") + 1
	require.Greater(t, len(token), sigStart)

	for i := sigStart; i < len(token); i++ {
		for _, repl := range []byte{'A', 'B', '-', '*'} {
			if token[i] == repl {
				continue
			}
			tampered := token[:i] + string(repl) + token[i+1:]
			_, ok := svc.Verify(tampered)
			require.False(t, ok, "flipping signature index %d to %q must invalidate", i-sigStart, repl)
		}
	}

	_, ok := svc.Verify(token[:len(token)-1])
	assert.False(t, ok, "truncated signature must be invalid")
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["sub"] = "mallory"
	forged, err := json.Marshal(payload)
	require.NoError(t, err)

	parts[1] = base64.RawURLEncoding.EncodeToString(forged)
	_, ok := svc.Verify(strings.Join(parts, "."))
	assert.False(t, ok)
}

func TestVerifyIsKeySensitive(t *testing.T) {
	a := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()
	b := New().WithConfig(Config{Secret: secretB, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	token, err := a.Issue("alice")
	require.NoError(t, err)

	_, ok := b.Verify(token)
	assert.False(t, ok)

	got, ok := a.Verify(token)
	assert.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestSameSecretVerifiesAcrossInstances(t *testing.T) {
	a := NewTokenService(Config{Secret: secretA, ExpiryDuration: time.Hour})
	b := NewTokenService(Config{Secret: secretA, ExpiryDuration: time.Minute})

	token, err := a.Issue("alice")
	require.NoError(t, err)

	got, ok := b.Verify(token)
	assert.True(t, ok, "key derivation must be deterministic across instances")
	assert.Equal(t, "alice", got)
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	inputs := []string{
		"",
		"not-a-token",
		".",
		"..",
		"a.b.c",
		"a.b.c.d",
		"eyJhbGciOiJIUzI1NiJ9..",
		"eyJhbGciOiJIUzI1NiJ9.bm90LWpzb24.c2ln",
		"\x00\xff\xfe",
		strings.Repeat(".", 1024),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got, ok := svc.Verify(in)
			assert.False(t, ok, "input %q", in)
			assert.Empty(t, got)
		})
	}
}

func TestVerifyRejectsForeignAlgorithms(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Hour}, clock)

	claims := gjwt.MapClaims{
		"sub": "alice",
		"iat": clock.Now().Unix(),
		"exp": clock.Now().Add(time.Hour).Unix(),
	}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok := svc.Verify(none)
	assert.False(t, ok, "alg none must be rejected")

	hs384, err := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims).SignedString([]byte(secretA))
	require.NoError(t, err)
	_, ok = svc.Verify(hs384)
	assert.False(t, ok, "HS384 must be rejected")
}

func TestVerifyRejectsRawSecretSignedToken(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Hour}, clock)

	claims := gjwt.MapClaims{"sub": "alice", "exp": clock.Now().Add(time.Hour).Unix()}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(secretA))
	require.NoError(t, err)

	_, ok := svc.Verify(token)
	assert.False(t, ok, "signing key is derived, the raw secret must not verify")
}

func TestVerifyClaimsExposesTimestamps(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Hour}, clock)

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	claims, err := svc.VerifyClaims(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.True(t, clock.Now().Add(time.Hour).Equal(claims.ExpiresAt.Time))
	assert.True(t, clock.Now().Equal(claims.IssuedAt.Time))
}

func TestVerifyEmptySubjectDistinctFromInvalid(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	token, err := svc.Issue("")
	require.NoError(t, err)

	got, ok := svc.Verify(token)
	assert.True(t, ok)
	assert.Equal(t, "", got)

	got, ok = svc.Verify("garbage")
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestVerifyClaimsCollapsesErrors(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Minute}, clock)

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	clock.Advance(time.Hour)

	for _, in := range []string{"", "not-a-token", token} {
		claims, err := svc.VerifyClaims(in)
		assert.Nil(t, claims)
		assert.Equal(t, ErrTokenInvalid, err, "input %q", in)
		assert.NotErrorIs(t, err, gjwt.ErrTokenExpired, "expiry must not be surfaced as a distinct error")
	}
}

func TestIssueIsDeterministicAtSameInstant(t *testing.T) {
	clock := newTestClock()
	svc := newClockedService(t, Config{Secret: secretA, ExpiryDuration: time.Hour}, clock)

	a, err := svc.Issue("alice")
	require.NoError(t, err)
	b, err := svc.Issue("alice")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	clock.Advance(time.Millisecond)
	c, err := svc.Issue("alice")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFallbackSecret(t *testing.T) {
	for _, secret := range []string{"", "short", "   padded-but-still-short   "} {
		t.Run(fmt.Sprintf("%q", secret), func(t *testing.T) {
			var svc *TokenService
			require.NotPanics(t, func() {
				svc = New().WithConfig(Config{Secret: secret, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()
			})
			require.NotNil(t, svc)
			assert.True(t, svc.Insecure())
			assert.True(t, svc.SecurityReport().InsecureSecret)

			token, err := svc.Issue("alice")
			require.NoError(t, err)
			got, ok := svc.Verify(token)
			require.True(t, ok)
			assert.Equal(t, "alice", got)
		})
	}
}

func TestFallbackSecretIsShared(t *testing.T) {
	a := New().WithConfig(Config{Secret: "abc"}).WithLogger(quietLogger()).Build()
	b := New().WithConfig(Config{Secret: "xyz"}).WithLogger(quietLogger()).Build()

	token, err := a.Issue("alice")
	require.NoError(t, err)
	_, ok := b.Verify(token)
	assert.True(t, ok, "every weak secret maps to the same development key")
}

func TestStrongSecretIsNotFlagged(t *testing.T) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()
	assert.False(t, svc.Insecure())
	assert.Empty(t, svc.SecurityReport().Warnings)
}

func TestBuildLogsInsecureSecretWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	New().WithConfig(Config{Secret: "tiny-secret", ExpiryDuration: time.Hour}).WithLogger(logger).Build()

	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, "insecure development signing secret in use")
	assert.NotContains(t, out, "tiny-secret", "secrets must never be logged")

	buf.Reset()
	New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(logger).Build()
	assert.Empty(t, buf.String())
}

func TestVerifyLogsRejectionAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(logger).Build()

	_, ok := svc.Verify("not-a-token")
	require.False(t, ok)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "token rejected")
}

func TestExpiryDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{name: "configured", cfg: Config{Secret: secretA, ExpiryDuration: 5 * time.Minute}, want: 5 * time.Minute},
		{name: "zero uses default expiry", cfg: Config{Secret: secretA, DefaultExpiry: time.Hour}, want: time.Hour},
		{name: "negative uses default expiry", cfg: Config{Secret: secretA, ExpiryDuration: -time.Second, DefaultExpiry: time.Hour}, want: time.Hour},
		{name: "no default falls back to 24h", cfg: Config{Secret: secretA}, want: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newTestClock()
			svc := newClockedService(t, tt.cfg, clock)
			assert.Equal(t, tt.want, svc.Expiry())

			token, err := svc.Issue("alice")
			require.NoError(t, err)
			claims, err := svc.VerifyClaims(token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

			report := svc.SecurityReport()
			assert.Equal(t, tt.cfg.ExpiryDuration <= 0, report.ExpiryDefaulted)
		})
	}
}

func TestSecurityReport(t *testing.T) {
	svc := New().
		WithConfig(Config{Secret: "weak", ExpiryDuration: 30 * 24 * time.Hour}).
		WithLogger(quietLogger()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()

	report := svc.SecurityReport()
	assert.Equal(t, "HS256", report.SigningAlgorithm)
	assert.Equal(t, 32, report.KeySize)
	assert.Equal(t, 30*24*time.Hour, report.ExpiryDuration)
	assert.True(t, report.InsecureSecret)
	assert.True(t, report.MetricsEnabled)
	assert.True(t, report.LatencyMetrics)
	assert.Equal(t, []string{"insecure_secret", "expiry_long"}, report.Warnings)
}

func TestServiceMetrics(t *testing.T) {
	clock := newTestClock()
	svc := New().
		WithConfig(Config{Secret: secretA, ExpiryDuration: time.Minute}).
		WithLogger(quietLogger()).
		WithClock(clock.Now).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()

	token, err := svc.Issue("alice")
	require.NoError(t, err)
	_, err = svc.Issue("bob")
	require.NoError(t, err)

	_, ok := svc.Verify(token)
	require.True(t, ok)
	_, ok = svc.Verify("not-a-token")
	require.False(t, ok)

	clock.Advance(time.Hour)
	_, ok = svc.Verify(token)
	require.False(t, ok)

	snap := svc.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.Counters[MetricTokenIssued])
	assert.Equal(t, uint64(1), snap.Counters[MetricTokenVerified])
	assert.Equal(t, uint64(1), snap.Counters[MetricTokenRejected])
	assert.Equal(t, uint64(1), snap.Counters[MetricTokenExpired])
	assert.Equal(t, uint64(0), snap.Counters[MetricInsecureSecret])

	var observed uint64
	for _, v := range snap.Histograms[MetricVerifyLatency] {
		observed += v
	}
	assert.Equal(t, uint64(3), observed)
}

func TestServiceMetricsCountsInsecureBuild(t *testing.T) {
	svc := New().WithConfig(Config{Secret: "weak"}).WithLogger(quietLogger()).WithMetricsEnabled(true).Build()
	assert.Equal(t, uint64(1), svc.MetricsSnapshot().Counters[MetricInsecureSecret])
}

func TestIssueRejectsInvalidUTF8Identity(t *testing.T) {
	svc := New().
		WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).
		WithLogger(quietLogger()).
		WithMetricsEnabled(true).
		Build()

	for _, identity := range []string{"\xff", "\xfe", "alice\xc3", "\xed\xa0\x80"} {
		token, err := svc.Issue(identity)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "identity %q", identity)
		assert.Empty(t, token)
	}
	assert.Zero(t, svc.MetricsSnapshot().Counters[MetricTokenIssued])

	// U+FFFD itself is valid and round-trips as written.
	token, err := svc.Issue("\uFFFD")
	require.NoError(t, err)
	got, ok := svc.Verify(token)
	require.True(t, ok)
	assert.Equal(t, "\uFFFD", got)
}

func TestNilServiceIsTotal(t *testing.T) {
	var svc *TokenService

	_, err := svc.Issue("alice")
	assert.ErrorIs(t, err, ErrServiceNotReady)

	got, ok := svc.Verify("anything")
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.False(t, svc.Insecure())
	assert.Zero(t, svc.Expiry())
	assert.Empty(t, svc.MetricsSnapshot().Counters)
	assert.Equal(t, SecurityReport{}, svc.SecurityReport())
}

func TestConcurrentIssueVerify(t *testing.T) {
	svc := New().
		WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).
		WithLogger(quietLogger()).
		WithMetricsEnabled(true).
		Build()

	const goroutines = 32
	const perG = 200

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				identity := fmt.Sprintf("user-%d-%d", g, i)
				token, err := svc.Issue(identity)
				if err != nil {
					errs <- err
					return
				}
				got, ok := svc.Verify(token)
				if !ok || got != identity {
					errs <- fmt.Errorf("round trip %q: got %q ok=%v", identity, got, ok)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	snap := svc.MetricsSnapshot()
	assert.Equal(t, uint64(goroutines*perG), snap.Counters[MetricTokenIssued])
	assert.Equal(t, uint64(goroutines*perG), snap.Counters[MetricTokenVerified])
}

func FuzzVerify(f *testing.F) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()
	token, err := svc.Issue("seed")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(token)
	f.Add("")
	f.Add("not-a-token")
	f.Add("a.b.c")

	f.Fuzz(func(t *testing.T, input string) {
		got, ok := svc.Verify(input)
		if !ok && got != "" {
			t.Fatalf("invalid token returned subject %q", got)
		}
	})
}

func FuzzIssueVerifyRoundTrip(f *testing.F) {
	svc := New().WithConfig(Config{Secret: secretA, ExpiryDuration: time.Hour}).WithLogger(quietLogger()).Build()

	f.Add("alice")
	f.Add("")
	f.Add("\xff")
	f.Add("用户")

	f.Fuzz(func(t *testing.T, identity string) {
		token, err := svc.Issue(identity)
		if !utf8.ValidString(identity) {
			if !errors.Is(err, ErrInvalidIdentity) {
				t.Fatalf("invalid identity %q: expected ErrInvalidIdentity, got %v", identity, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("issue %q: %v", identity, err)
		}
		got, ok := svc.Verify(token)
		if !ok || got != identity {
			t.Fatalf("round trip %q: got %q ok=%v", identity, got, ok)
		}
	})
}
