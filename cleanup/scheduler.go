package cleanup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/rs/zerolog"
)

// Cleaner removes expired sessions and reports how many were removed.
// *goSession.Engine satisfies it.
type Cleaner interface {
	CleanExpiredSessions(ctx context.Context) (int, error)
}

// Stats summarizes the sweeps a Scheduler has run.
type Stats struct {
	Runs     uint64
	Failures uint64
	Removed  uint64
	LastRun  time.Time
}

// Scheduler sweeps expired sessions on a fixed interval.
type Scheduler struct {
	cleaner Cleaner
	cfg     goSession.CleanupConfig
	logger  zerolog.Logger

	mu      sync.Mutex
	lastRun time.Time

	runs     atomic.Uint64
	failures atomic.Uint64
	removed  atomic.Uint64
	running  atomic.Bool
}

// New returns a Scheduler for cleaner. A zero Interval or Timeout falls
// back to the defaults of goSession.DefaultConfig.
func New(cleaner Cleaner, cfg goSession.CleanupConfig, logger zerolog.Logger) *Scheduler {
	defaults := goSession.DefaultConfig().Cleanup
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Scheduler{
		cleaner: cleaner,
		cfg:     cfg,
		logger:  logger.With().Str("component", "session_cleanup").Logger(),
	}
}

// RunOnce performs a single sweep bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	if s == nil || s.cleaner == nil {
		return 0, errors.New("cleanup scheduler has no cleaner")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.cleaner.CleanExpiredSessions(ctx)
	s.runs.Add(1)
	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()

	if err != nil {
		s.failures.Add(1)
		s.logger.Error().Err(err).Dur("took", time.Since(start)).Msg("expired session sweep failed")
		return 0, err
	}
	s.removed.Add(uint64(n))
	if n > 0 {
		s.logger.Info().Int("removed", n).Dur("took", time.Since(start)).Msg("expired sessions removed")
	} else {
		s.logger.Debug().Dur("took", time.Since(start)).Msg("no expired sessions")
	}
	return n, nil
}

// Run sweeps on every tick until ctx is done. With RunOnStart set it sweeps
// once before the first tick. Run returns ctx.Err() on shutdown and an
// error if the scheduler is already running.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("cleanup scheduler already running")
	}
	defer s.running.Store(false)

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("session cleanup started")

	if s.cfg.RunOnStart {
		_, _ = s.RunOnce(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("session cleanup stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		_, _ = s.RunOnce(ctx)
	}
}

// Stats returns counters for the sweeps run so far.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	last := s.lastRun
	s.mu.Unlock()
	return Stats{
		Runs:     s.runs.Load(),
		Failures: s.failures.Load(),
		Removed:  s.removed.Load(),
		LastRun:  last,
	}
}
