package goSession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/registry"
)

// FindBySessionID returns the registry record for sessionID, expired or not.
func (e *Engine) FindBySessionID(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	rec, err := e.registry.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, registryErr(err)
	}
	out := recordFromRegistry(*rec)
	return &out, nil
}

// FindByUserID returns every registry record of userID, newest first,
// including expired records not yet swept.
func (e *Engine) FindByUserID(ctx context.Context, userID string) ([]SessionRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	recs, err := e.registry.FindByUserID(ctx, userID)
	if err != nil {
		return nil, registryErr(err)
	}
	out := make([]SessionRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordFromRegistry(rec))
	}
	return out, nil
}

// CountUserSessions counts userID's non-expired sessions. It is at most 2.
func (e *Engine) CountUserSessions(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrInvalidUserID
	}
	return e.flows.CountActive(ctx, userID)
}

// ListActiveSessions returns the "my devices" read model for userID. The
// entry for currentSessionID has IsCurrent set. Raw session ids are never
// exposed.
func (e *Engine) ListActiveSessions(ctx context.Context, userID, currentSessionID string) ([]ActiveSession, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	recs, err := e.flows.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ActiveSession, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ActiveSession{
			Handle:         SessionHandle(rec.SessionID),
			Platform:       Platform(rec.Platform),
			DeviceName:     rec.DeviceName,
			CreatedAt:      rec.CreatedAt,
			LastActivityAt: rec.LastActivityAt,
			ExpiresAt:      rec.ExpiresAt,
			IsCurrent:      currentSessionID != "" && rec.SessionID == currentSessionID,
		})
	}
	return out, nil
}

// RevokeSessionByHandle logs out one of userID's sessions addressed by its
// read-model handle. It returns false when no session of userID has that
// handle.
func (e *Engine) RevokeSessionByHandle(ctx context.Context, userID, handle string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	if userID == "" {
		return false, ErrInvalidUserID
	}
	if handle == "" {
		return false, nil
	}

	sessionID, err := e.flows.ResolveHandle(ctx, userID, handle)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.DeleteSession(ctx, sessionID)
}

// Health pings Redis and the registry.
func (e *Engine) Health(ctx context.Context) HealthReport {
	if !e.ready() {
		return HealthReport{}
	}

	redisLatency, redisErr := e.store.Ping(ctx)

	start := time.Now()
	registryErr := e.registry.Ping(ctx)
	registryLatency := time.Since(start)

	return HealthReport{
		RedisAvailable:    redisErr == nil,
		RedisLatency:      redisLatency,
		RegistryAvailable: registryErr == nil,
		RegistryLatency:   registryLatency,
	}
}

func registryErr(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return ErrSessionNotFound
	}
	return fmt.Errorf("%w: %w", ErrInfraUnavailable, err)
}
