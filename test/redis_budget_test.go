//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/registry"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis Hook that counts network round trips: one per
// single command and one per pipeline, regardless of its length.
type cmdCounter struct {
	singles   atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.singles.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.singles.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) RoundTrips() int64 { return h.singles.Load() + h.pipelines.Load() }

// newCountedEngine returns an engine on miniredis with a counter installed.
// Every Lua script is loaded by a warm-up pass so EVALSHA never falls back
// to EVAL during a measured call.
func newCountedEngine(t *testing.T) (*goSession.Engine, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close(); mr.Close() })

	counter := &cmdCounter{}
	rdb.AddHook(counter)

	engine := newEngine(t, rdb, registry.NewMemory(), func(cfg *goSession.Config) {
		cfg.Guard.TouchActivity = false
		cfg.Guard.RollingExpiry = false
	})

	ctx := context.Background()
	warm, err := engine.CreateSession(ctx, "warmup", device(goSession.PlatformWeb))
	if err != nil {
		t.Fatalf("warmup create: %v", err)
	}
	if _, err := engine.DeleteSession(ctx, warm.SessionID); err != nil {
		t.Fatalf("warmup delete: %v", err)
	}
	counter.Reset()
	return engine, counter
}

func TestRedisBudgetAuthenticate(t *testing.T) {
	engine, counter := newCountedEngine(t)
	ctx := context.Background()

	res, err := engine.CreateSession(ctx, "U1", device(goSession.PlatformWeb))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	counter.Reset()
	if _, err := engine.Authenticate(ctx, res.Ticket); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	// ledger EXISTS + blob GET
	if got := counter.RoundTrips(); got != 2 {
		t.Fatalf("authenticate round trips = %d, want 2", got)
	}

	if _, err := engine.DeleteSession(ctx, res.SessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	counter.Reset()
	if _, err := engine.Authenticate(ctx, res.Ticket); !errors.Is(err, goSession.ErrSessionInvalidated) {
		t.Fatalf("expected ErrSessionInvalidated, got %v", err)
	}
	// The ledger answers alone.
	if got := counter.RoundTrips(); got != 1 {
		t.Fatalf("ledger rejection round trips = %d, want 1", got)
	}

	counter.Reset()
	if _, err := engine.Authenticate(ctx, "not-a-ticket"); !errors.Is(err, goSession.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if got := counter.RoundTrips(); got != 0 {
		t.Fatalf("malformed ticket round trips = %d, want 0", got)
	}
}

func TestRedisBudgetCreate(t *testing.T) {
	engine, counter := newCountedEngine(t)
	ctx := context.Background()

	if _, err := engine.CreateSession(ctx, "U1", device(goSession.PlatformWeb)); err != nil {
		t.Fatalf("create: %v", err)
	}
	// blob save only
	if got := counter.RoundTrips(); got != 1 {
		t.Fatalf("first login round trips = %d, want 1", got)
	}

	counter.Reset()
	res, err := engine.CreateSession(ctx, "U1", device(goSession.PlatformWeb))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Evicted) != 1 {
		t.Fatalf("evicted = %d, want 1", len(res.Evicted))
	}
	// marker pipeline + blob delete pipeline + blob save
	if got := counter.RoundTrips(); got != 3 {
		t.Fatalf("evicting login round trips = %d, want 3", got)
	}
}

func TestRedisBudgetDelete(t *testing.T) {
	engine, counter := newCountedEngine(t)
	ctx := context.Background()

	res, err := engine.CreateSession(ctx, "U1", device(goSession.PlatformWeb))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	counter.Reset()
	if _, err := engine.DeleteSession(ctx, res.SessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// marker pipeline + blob GET + delete script
	if got := counter.RoundTrips(); got != 3 {
		t.Fatalf("logout round trips = %d, want 3", got)
	}
}
