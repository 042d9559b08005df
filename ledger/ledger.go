package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or command failure.
var ErrRedisUnavailable = errors.New("ledger redis unavailable")

// Ledger writes and checks invalidation markers.
type Ledger struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New returns a [Ledger] whose markers live for ttl.
func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Ledger {
	return &Ledger{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (l *Ledger) key(sessionID string) string {
	return l.prefix + ":" + sessionID
}

// TTL returns the marker lifetime.
func (l *Ledger) TTL() time.Duration {
	return l.ttl
}

// Mark writes a marker for every id in one MULTI/EXEC. Marking an id twice
// refreshes its TTL.
func (l *Ledger) Mark(ctx context.Context, sessionIDs ...string) error {
	if len(sessionIDs) == 0 {
		return nil
	}

	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range sessionIDs {
			pipe.Set(ctx, l.key(id), "1", l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsInvalidated reports whether a live marker exists for sessionID.
//
//	Performance: 1 Redis EXISTS.
func (l *Ledger) IsInvalidated(ctx context.Context, sessionID string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
