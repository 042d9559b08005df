package cleanup

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/registry"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeCleaner struct {
	calls   atomic.Int32
	removed int
	err     error
	swept   chan struct{}
}

func (f *fakeCleaner) CleanExpiredSessions(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.swept != nil {
		select {
		case f.swept <- struct{}{}:
		default:
		}
	}
	return f.removed, f.err
}

func waitSweep(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
}

func TestRunOnceCounts(t *testing.T) {
	f := &fakeCleaner{removed: 3}
	s := New(f, goSession.CleanupConfig{Interval: time.Minute, Timeout: time.Second}, zerolog.Nop())

	n, err := s.RunOnce(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("RunOnce = %d, %v", n, err)
	}

	f.err = errors.New("mongo down")
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected sweep error")
	}

	st := s.Stats()
	if st.Runs != 2 || st.Failures != 1 || st.Removed != 3 || st.LastRun.IsZero() {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestRunSweepsOnStartAndTicks(t *testing.T) {
	f := &fakeCleaner{swept: make(chan struct{}, 1)}
	s := New(f, goSession.CleanupConfig{Interval: 20 * time.Millisecond, Timeout: time.Second, RunOnStart: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitSweep(t, f.swept)
	waitSweep(t, f.swept)
	waitSweep(t, f.swept)

	if err := s.Run(ctx); err == nil {
		t.Fatal("expected second Run to be refused")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	calls := f.calls.Load()
	time.Sleep(60 * time.Millisecond)
	if f.calls.Load() != calls {
		t.Fatal("scheduler kept sweeping after cancellation")
	}
}

func TestRunWithoutRunOnStartWaitsForTick(t *testing.T) {
	f := &fakeCleaner{}
	s := New(f, goSession.CleanupConfig{Interval: time.Hour, Timeout: time.Second}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("expected no sweep before first tick, got %d", f.calls.Load())
	}
}

func TestSweepAgainstEngine(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	now := time.Now().UTC()

	cfg := goSession.DefaultConfig()
	cfg.Ticket.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	engine, err := goSession.New().WithConfig(cfg).WithRedis(rdb).WithRegistry(registry.NewMemory()).WithClock(func() time.Time { return now }).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	for _, u := range []string{"u1", "u2"} {
		if _, err := engine.CreateSession(context.Background(), u, goSession.DeviceInfo{Platform: goSession.PlatformWeb}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	now = now.Add(48 * time.Hour)

	s := New(engine, cfg.Cleanup, zerolog.Nop())
	if n, err := s.RunOnce(context.Background()); err != nil || n != 2 {
		t.Fatalf("first sweep = %d, %v", n, err)
	}
	if n, err := s.RunOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v", n, err)
	}
}
