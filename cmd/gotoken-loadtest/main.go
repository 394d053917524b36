package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/metrics/export/prometheus"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type identityState struct {
	subject string
	token   string
}

func main() {
	var (
		identities  = flag.Int("identities", 10000, "number of distinct identities to issue tokens for")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (issue + verify)")
		envFile     = flag.String("env-file", ".env", "optional dotenv file with TOKEN_* variables")
		showMetrics = flag.Bool("metrics", false, "print Prometheus metrics after the run")
		showReport  = flag.Bool("report", false, "print the security report as JSON")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := goToken.LoadConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	svc := goToken.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithMetricsEnabled(cfg.Metrics.Enabled || *showMetrics).
		WithLatencyHistograms(cfg.Metrics.EnableLatencyHistograms || *showMetrics).
		Build()

	fmt.Printf("token expiry %s, insecure secret %v\n", svc.Expiry(), svc.Insecure())

	states := make([]identityState, *identities)
	for i := range states {
		states[i].subject = uuid.NewString()
	}

	issueStats := runIssuePhase(svc, states, *ops, *concurrency)
	verifyStats := runVerifyPhase(svc, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("verify", verifyStats)

	if *showMetrics {
		fmt.Println("---- metrics ----")
		fmt.Print(prometheus.NewPrometheusExporter(svc).Render())
	}
	if *showReport {
		fmt.Println("---- security report ----")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(svc.SecurityReport()); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			os.Exit(1)
		}
	}
}

// runIssuePhase issues tokens for random identities. The last token written
// for each identity is kept for the verify phase.
func runIssuePhase(svc *goToken.TokenService, states []identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
		stateMu   = make([]sync.Mutex, len(states))
	)

	// Every identity gets at least one token so verify never sees an empty slot.
	for i := range states {
		token, err := svc.Issue(states[i].subject)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i].token = token
	}

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				token, err := svc.Issue(states[idx].subject)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					stateMu[idx].Lock()
					states[idx].token = token
					stateMu[idx].Unlock()
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runVerifyPhase verifies stored tokens and counts a failure whenever the
// token is rejected or resolves to the wrong identity.
func runVerifyPhase(svc *goToken.TokenService, states []identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				subject, ok := svc.Verify(state.token)
				d := time.Since(t0)
				if !ok || subject != state.subject {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
