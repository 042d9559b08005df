package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport or command failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no live blob exists for a session id.
var ErrSessionNotFound = errors.New("session blob not found")

// ErrBlobTooLarge is returned by Save when the encoded blob exceeds the
// configured size cap.
var ErrBlobTooLarge = errors.New("session blob too large")

// saveSessionScript writes the blob and keeps the per-user index alive for
// at least as long as its longest-lived member.
const saveSessionScript = `
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
local ttl = tonumber(ARGV[2])
local current = redis.call("PTTL", KEYS[2])
if current < ttl then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`

var saveSessionLua = redis.NewScript(saveSessionScript)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is the Redis-backed ephemeral session store. Each blob lives under
// "<prefix>:s:<sessionID>" with its own TTL; "<prefix>:u:<userID>" indexes
// the ids a user has written so bulk logout can reach blobs whose registry
// record is already gone.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	maxBlobSize int
	now         func() time.Time
}

// NewStore creates a [Store] on the given client. maxBlobSize <= 0 disables
// the size cap.
func NewStore(rdb redis.UniversalClient, prefix string, maxBlobSize int) *Store {
	return &Store{
		redis:       rdb,
		prefix:      prefix,
		maxBlobSize: maxBlobSize,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for blob expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Save writes b under its session id with the given TTL.
//
//	Performance: 1 Lua EVALSHA.
func (s *Store) Save(ctx context.Context, b *Blob, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("session ttl must be > 0")
	}
	data, err := Encode(b)
	if err != nil {
		return err
	}
	if s.maxBlobSize > 0 && len(data) > s.maxBlobSize {
		return ErrBlobTooLarge
	}

	_, err = saveSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(b.SessionID), s.userKey(b.UserID)},
		data,
		ttl.Milliseconds(),
		b.SessionID,
	).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the live blob for sessionID, or ErrSessionNotFound.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Blob, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	b, err := Decode(data)
	if err != nil {
		return nil, err
	}
	b.SessionID = sessionID
	if s.now().Unix() >= b.ExpiresAt {
		return nil, ErrSessionNotFound
	}
	return b, nil
}

// Delete removes the blob for sessionID and reports whether it existed.
// Deleting a missing blob is not an error.
//
//	Performance: 1 GET + 1 Lua EVALSHA.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Undecodable blobs are still removed; there is no index entry to clear.
	userKey := s.prefix + ":u:"
	if b, decErr := Decode(data); decErr == nil {
		userKey = s.userKey(b.UserID)
	}

	existed, err := deleteSessionLua.Run(ctx, s.redis, []string{key, userKey}, sessionID).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// DeleteMany removes every listed blob and clears them from userID's index.
// It returns the number of blobs that existed.
//
//	Performance: 1 MULTI/EXEC pipeline.
func (s *Store) DeleteMany(ctx context.Context, userID string, sessionIDs []string) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(sessionIDs))
	members := make([]interface{}, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, s.key(id))
		members = append(members, id)
	}

	var delCmd *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, s.userKey(userID), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// SessionIDsForUser returns the ids recorded in userID's index. The index
// may list ids whose blobs already expired.
func (s *Store) SessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// TTL returns the remaining Redis TTL of the blob, or ErrSessionNotFound.
func (s *Store) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.key(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, ErrSessionNotFound
	}
	return ttl, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
