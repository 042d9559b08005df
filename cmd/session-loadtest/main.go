package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/registry"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		users       = flag.Int("users", 200, "number of distinct users")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		logins      = flag.Int("logins", 20000, "login operations in the race phase")
		checks      = flag.Int("checks", 100000, "authenticate operations in the guard phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *logins <= 0 || *checks <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, logins, and checks must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.Ticket.PrivateKey = []byte("loadtest-ticket-key-loadtest-ticket-key")
	cfg.Guard.FailOpenOnInfraError = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithRegistry(registry.NewMemory()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	userIDs := make([]string, *users)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("user-%d", i)
	}

	tickets, loginStats := runLoginPhase(ctx, engine, userIDs, *logins, *concurrency)
	guardStats, accepted := runGuardPhase(ctx, engine, tickets, *checks, *concurrency)
	violations := checkSlots(ctx, engine, userIDs, tickets)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("authenticate", guardStats)
	fmt.Printf("issued tickets=%d accepted checks=%d slot violations=%d\n", len(tickets), accepted, violations)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: created=%d evicted=%d invalidated=%d ledger_hits=%d\n",
		snap.Counters[goSession.MetricSessionCreated],
		snap.Counters[goSession.MetricSessionEvicted],
		snap.Counters[goSession.MetricGuardInvalidated],
		snap.Counters[goSession.MetricGuardLedgerHit],
	)

	if violations > 0 {
		os.Exit(1)
	}
}

type issued struct {
	userID   string
	platform goSession.Platform
	ticket   string
}

// runLoginPhase races logins for a small set of users on both platforms so
// that many workers contend for the same slot.
func runLoginPhase(ctx context.Context, engine *goSession.Engine, userIDs []string, ops, concurrency int) ([]issued, phaseStats) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		tickets   = make([]issued, 0, ops)
		mu        sync.Mutex
	)

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
				userID := userIDs[r.Intn(len(userIDs))]
				platform := goSession.PlatformWeb
				if r.Intn(2) == 1 {
					platform = goSession.PlatformApp
				}
				t0 := time.Now()
				res, err := engine.CreateSession(ctx, userID, goSession.DeviceInfo{Platform: platform, DeviceName: "loadtest"})
				d := time.Since(t0)
				mu.Lock()
				latencies = append(latencies, d)
				if err == nil {
					tickets = append(tickets, issued{userID: userID, platform: platform, ticket: res.Ticket})
				}
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	return tickets, computeStats(time.Since(start), latencies, failures)
}

func runGuardPhase(ctx context.Context, engine *goSession.Engine, tickets []issued, ops, concurrency int) (phaseStats, int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		accepted  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)
	if len(tickets) == 0 {
		return phaseStats{}, 0
	}

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
				t0 := time.Now()
				_, err := engine.Authenticate(ctx, tickets[r.Intn(len(tickets))].ticket)
				d := time.Since(t0)
				if err == nil {
					atomic.AddInt64(&accepted, 1)
				} else if !isRejection(err) {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), accepted
}

func isRejection(err error) bool {
	return errors.Is(err, goSession.ErrSessionInvalidated)
}

// checkSlots counts (user, platform) pairs with more than one registry
// record or more than one ticket that still authenticates.
func checkSlots(ctx context.Context, engine *goSession.Engine, userIDs []string, tickets []issued) int {
	type slot struct {
		userID   string
		platform goSession.Platform
	}
	live := make(map[slot]int)
	for _, t := range tickets {
		if _, err := engine.Authenticate(ctx, t.ticket); err == nil {
			live[slot{t.userID, t.platform}]++
		}
	}

	violations := 0
	for s, n := range live {
		if n > 1 {
			fmt.Printf("slot %s/%s has %d live tickets\n", s.userID, s.platform, n)
			violations++
		}
	}
	for _, userID := range userIDs {
		n, err := engine.CountUserSessions(ctx, userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "count %s: %v\n", userID, err)
			violations++
			continue
		}
		if n > 2 {
			fmt.Printf("user %s has %d records\n", userID, n)
			violations++
		}
	}
	return violations
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
	return samples[(len(samples)-1)*p/100]
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
