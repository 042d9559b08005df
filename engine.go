package goSession

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/ledger"
	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ticket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Engine is the session lifecycle manager and per-request guard.
//
// It is safe for concurrent use once built. Construct it with [New].
type Engine struct {
	config   Config
	redis    redis.UniversalClient
	registry registry.Registry
	store    *session.Store
	ledger   *ledger.Ledger
	signer   *ticket.Signer
	flows    flows.Service
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func (e *Engine) initFlows(newID func() (string, error)) {
	b := flows.Backends{
		Registry: e.registry,
		Store:    e.store,
		Ledger:   e.ledger,
		Now:      e.clock,
		InfraErr: ErrInfraUnavailable,
	}
	ttlFor := func(platform string) (time.Duration, error) {
		return e.config.TTLFor(Platform(platform))
	}

	e.flows = flows.New(flows.Deps{
		Create: flows.CreateDeps{
			Backends:     b,
			TTLFor:       ttlFor,
			NewSessionID: newID,
			IssueTicket:  e.signer.Issue,
			ExpiredErr:   ErrSessionExpiredBeforeStore,
		},
		Delete: flows.DeleteDeps{Backends: b},
		Guard: flows.GuardDeps{
			Backends:      b,
			ParseTicket:   e.signer.Parse,
			LookupTimeout: e.config.Guard.LookupTimeout,
			FailOpen:      e.config.Guard.FailOpenOnInfraError,
			CheckStore:    e.config.Guard.CheckStore,
		},
		Activity: flows.ActivityDeps{
			Backends:      b,
			TTLFor:        ttlFor,
			RollingExpiry: e.config.Guard.RollingExpiry,
			NotFoundErr:   ErrSessionNotFound,
		},
		Maintain: flows.MaintainDeps{
			Backends: b,
			Handle:   SessionHandle,
		},
	})
}

// clock returns the engine time in UTC at millisecond precision, the
// resolution the registry stores.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
		if dropped := e.audit.DroppedByType(); len(dropped) > 0 {
			ev := zerolog.Dict()
			for eventType, n := range dropped {
				ev.Uint64(eventType, n)
			}
			e.logger.Warn().
				Uint64("dropped", e.audit.Dropped()).
				Dict("dropped_by_type", ev).
				Msg("audit events dropped on full buffer")
		}
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks [Engine.AuditDropped] down by audit event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// TTLFor returns the session lifetime for platform. The cookie Max-Age and
// the registry expiresAt are both derived from it.
func (e *Engine) TTLFor(platform Platform) (time.Duration, error) {
	return e.config.TTLFor(platform)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CreateSession installs a new session for userID on device.Platform,
// evicting the user's existing session on that platform.
//
// The previous session is marked in the invalidation ledger and its blob is
// dropped before the registry slot is replaced, so in-flight requests
// carrying it are rejected from that point on. Any backend write failure is
// returned wrapped in [ErrInfraUnavailable].
//
//	Performance: 1 registry find, 1 find-one-and-replace, 1-3 Redis round trips.
func (e *Engine) CreateSession(ctx context.Context, userID string, device DeviceInfo) (*CreateResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || len(userID) > 255 {
		return nil, ErrInvalidUserID
	}
	if !device.Platform.Valid() {
		return nil, ErrInvalidPlatform
	}

	out, err := e.flows.Create(ctx, flows.CreateInput{
		UserID:     userID,
		Platform:   device.Platform.String(),
		DeviceName: device.DeviceName,
	})
	if err != nil {
		e.writeFailed(ctx, "create_session", userID, "", err)
		e.emitAudit(ctx, auditEventSessionCreated, false, userID, "", device.Platform, err, nil)
		return nil, err
	}

	evicted := make([]string, 0, len(out.Evicted))
	for _, rec := range out.Evicted {
		evicted = append(evicted, rec.SessionID)
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(ctx, auditEventSessionEvicted, true, userID, rec.SessionID, device.Platform, nil, func() map[string]string {
			return map[string]string{"replaced_by": out.Record.SessionID}
		})
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, userID, out.Record.SessionID, device.Platform, nil, func() map[string]string {
		return map[string]string{
			"device_name": out.Record.DeviceName,
			"evicted":     strconv.Itoa(len(evicted)),
		}
	})
	e.logger.Debug().
		Str("operation", "create_session").
		Str("user_id", userID).
		Str("session_id", out.Record.SessionID).
		Str("platform", device.Platform.String()).
		Int("evicted", len(evicted)).
		Msg("session created")

	return &CreateResult{
		SessionID: out.Record.SessionID,
		Ticket:    out.Ticket,
		UserID:    userID,
		Platform:  device.Platform,
		ExpiresAt: out.Record.ExpiresAt,
		MaxAge:    out.TTL,
		Evicted:   evicted,
	}, nil
}

// DeleteSession destroys one session. It returns true when a registry record
// was removed and false when the session was already gone; a missing session
// is not an error.
//
//	Performance: 1 registry find, 1 ledger SET, 1-2 Redis blob ops, 1 registry delete.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	if !e.ready() {
		return false, ErrEngineNotReady
	}
	if sessionID == "" {
		return false, ErrInvalidSessionID
	}

	out, err := e.flows.Delete(ctx, sessionID)
	if err != nil {
		e.writeFailed(ctx, "delete_session", "", sessionID, err)
		e.emitAudit(ctx, auditEventSessionDeleted, false, "", sessionID, "", err, nil)
		return false, err
	}

	var userID string
	var platform Platform
	if out.Record != nil {
		userID = out.Record.UserID
		platform = Platform(out.Record.Platform)
	}
	if out.Removed {
		e.metricInc(MetricSessionDeleted)
	}
	e.emitAudit(ctx, auditEventSessionDeleted, true, userID, sessionID, platform, nil, func() map[string]string {
		return map[string]string{"removed": strconv.FormatBool(out.Removed)}
	})
	return out.Removed, nil
}

// DeleteAllUserSessions destroys every session of userID and returns the
// number of registry records removed. Sessions created concurrently with
// the call may survive it.
func (e *Engine) DeleteAllUserSessions(ctx context.Context, userID string) (int, error) {
	n, err := e.deleteMany(ctx, "delete_all_sessions", userID, "")
	if err == nil {
		e.metricInc(MetricSessionsDeletedAll)
	}
	return n, err
}

// DeleteOtherSessions destroys every session of userID except
// currentSessionID and returns the number of registry records removed.
func (e *Engine) DeleteOtherSessions(ctx context.Context, userID, currentSessionID string) (int, error) {
	if currentSessionID == "" {
		return 0, ErrInvalidSessionID
	}
	n, err := e.deleteMany(ctx, "delete_other_sessions", userID, currentSessionID)
	if err == nil {
		e.metricInc(MetricSessionsDeletedOthers)
	}
	return n, err
}

func (e *Engine) deleteMany(ctx context.Context, operation, userID, except string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidUserID
	}

	eventType := auditEventSessionsDeletedAll
	if except != "" {
		eventType = auditEventSessionsDeletedOthers
	}

	out, err := e.flows.DeleteAll(ctx, userID, except)
	if err != nil {
		e.writeFailed(ctx, operation, userID, except, err)
		e.emitAudit(ctx, eventType, false, userID, except, "", err, nil)
		return 0, err
	}

	e.emitAudit(ctx, eventType, true, userID, except, "", nil, func() map[string]string {
		return map[string]string{
			"removed":     strconv.Itoa(out.Removed),
			"invalidated": strconv.Itoa(len(out.SessionIDs)),
		}
	})
	return out.Removed, nil
}

// CleanExpiredSessions removes registry records whose expiresAt has passed
// and returns how many were removed. It backstops the native TTL index and
// is safe to run from several instances at once.
func (e *Engine) CleanExpiredSessions(ctx context.Context) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.flows.CleanExpired(ctx)
	if err != nil {
		e.writeFailed(ctx, "clean_expired_sessions", "", "", err)
		return 0, err
	}
	if n > 0 {
		e.metrics.Add(MetricCleanupRemoved, uint64(n))
		e.emitAudit(ctx, auditEventSessionsCleaned, true, "", "", "", nil, func() map[string]string {
			return map[string]string{"removed": strconv.Itoa(n)}
		})
	}
	return n, nil
}

// UpdateActivity sets lastActivityAt on sessionID. With rolling expiry
// enabled it also extends expiresAt by the platform TTL and re-applies the
// same expiry to the blob.
func (e *Engine) UpdateActivity(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}
	rec, err := e.flows.UpdateActivity(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			e.writeFailed(ctx, "update_activity", "", sessionID, err)
		}
		return nil, err
	}
	e.metricInc(MetricActivityTouched)
	out := recordFromRegistry(*rec)
	return &out, nil
}

// writeFailed logs a write-path failure with enough context to diagnose it.
func (e *Engine) writeFailed(ctx context.Context, operation, userID, sessionID string, err error) {
	level := zerolog.WarnLevel
	if errors.Is(err, ErrInfraUnavailable) {
		e.metricInc(MetricSessionWriteFailure)
		level = zerolog.ErrorLevel
	}
	if errors.Is(err, context.Canceled) {
		level = zerolog.DebugLevel
	}
	e.logger.WithLevel(level).
		Err(err).
		Str("operation", operation).
		Str("user_id", userID).
		Str("session_id", sessionID).
		Msg("session write failed")
}

func recordFromRegistry(r registry.Record) SessionRecord {
	return SessionRecord{
		SessionID:      r.SessionID,
		UserID:         r.UserID,
		Platform:       Platform(r.Platform),
		DeviceName:     r.DeviceName,
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		ExpiresAt:      r.ExpiresAt,
	}
}
