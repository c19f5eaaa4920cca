package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	authsess "github.com/lumora-app/authsess"
	"github.com/lumora-app/authsess/api"
	"github.com/lumora-app/authsess/authtest"
)

func main() {
	var (
		apiURL    = flag.String("api-url", "", "backend base URL; if empty, API_URL env or an in-process stub is used")
		workers   = flag.Int("workers", 64, "number of concurrent workers")
		rounds    = flag.Int("rounds", 2000, "Token() calls per worker and phase")
		email     = flag.String("email", "probe@example.com", "login email")
		password  = flag.String("password", "probe-password", "login password")
		accessTTL = flag.Duration("access-ttl", -time.Second, "stub access token TTL; negative mints already-expired tokens")
	)
	flag.Parse()

	if *workers <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "workers and rounds must be > 0")
		os.Exit(2)
	}

	// A .env next to the binary can carry API_URL and credentials for
	// probing a real deployment. Missing files are fine.
	_ = godotenv.Load()

	ctx := context.Background()

	baseURL := *apiURL
	if baseURL == "" {
		baseURL = os.Getenv("API_URL")
	}

	var (
		cleanup func()
		backend *authtest.Backend
	)
	if baseURL == "" {
		backend = authtest.NewBackend()
		backend.AddUser(authtest.User{
			ID:       "probe-user",
			Email:    *email,
			Password: *password,
			Role:     "student",
			SchoolID: "probe-school",
		})
		baseURL = backend.URL()
		cleanup = backend.Close
		fmt.Printf("using stub backend at %s\n", baseURL)
	} else {
		cleanup = func() {}
		fmt.Printf("using backend at %s\n", baseURL)
	}
	defer cleanup()

	repo, err := api.New(baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad backend URL: %v\n", err)
		os.Exit(1)
	}

	client, err := authsess.New().
		WithRepository(repo).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := client.Login(ctx, authsess.Credentials{Email: *email, Password: *password}); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	ops := *workers * *rounds

	// Phase 1: fresh token, every read should come from cache.
	warmStats := runTokenPhase(ctx, client, ops, *workers)

	// Phase 2: stub only. Expired tokens force a refresh flight on every
	// read, so concurrent workers pile onto shared flights.
	var refreshStats phaseStats
	if backend != nil {
		backend.SetAccessTTL(*accessTTL)
		if _, err := client.ForceRefresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "priming refresh failed: %v\n", err)
			os.Exit(1)
		}
		before := backend.RefreshCalls()
		refreshStats = runTokenPhase(ctx, client, ops, *workers)
		flights := backend.RefreshCalls() - before
		fmt.Printf("refresh phase: %d Token() calls collapsed into %d backend refreshes\n", ops, flights)
	}

	fmt.Println("---- results ----")
	printStats("warm", warmStats)
	if backend != nil {
		printStats("refresh", refreshStats)
	}

	snap := client.MetricsSnapshot()
	fmt.Println("---- client counters ----")
	for _, row := range []struct {
		name string
		id   authsess.MetricID
	}{
		{"token_from_cache", authsess.MetricTokenFromCache},
		{"refresh_success", authsess.MetricRefreshSuccess},
		{"refresh_failure", authsess.MetricRefreshFailure},
		{"refresh_coalesced", authsess.MetricRefreshCoalesced},
	} {
		fmt.Printf("%s=%d\n", row.name, snap.Counters[row.id])
	}
}

func runTokenPhase(ctx context.Context, client *authsess.Client, ops, concurrency int) phaseStats {
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
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.Token(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
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
