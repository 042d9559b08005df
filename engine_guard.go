package goSession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticate checks the session ticket presented by a request.
//
// It returns [ErrUnauthenticated] when token is empty or fails signature or
// expiry checks, [ErrSessionInvalidated] when the session is known to be dead
// (ledger marker, missing or expired registry record, destroyed blob), and
// an error wrapping [ErrInfraUnavailable] when a backend could not answer and
// the guard is configured fail-closed. Under the default fail-open policy a
// backend failure yields a result with Degraded set instead.
//
// Every backend lookup is bounded by Guard.LookupTimeout. The guard never
// retries.
//
//	Performance: 1 ledger EXISTS, 1 registry find, 1 Redis GET.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricGuardLatency, time.Since(start))
		}
	}()

	res := e.flows.Guard(ctx, strings.TrimSpace(token))
	switch res.Failure {
	case flows.GuardFailureUnauthenticated:
		e.metricInc(MetricGuardUnauthenticated)
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, res.Err)
		}
		return nil, ErrUnauthenticated

	case flows.GuardFailureInvalidated:
		e.metricInc(MetricGuardInvalidated)
		reason := res.Reason
		if res.LedgerHit {
			e.metricInc(MetricGuardLedgerHit)
		}
		e.logger.Debug().
			Str("operation", "authenticate").
			Str("session_id", res.Claims.SID).
			Str("user_id", res.Claims.UID).
			Str("reason", reason).
			Bool("stale_blob_deleted", res.StaleBlobDeleted).
			Msg("session invalidated")
		e.emitAudit(ctx, auditEventSessionRejected, false, res.Claims.UID, res.Claims.SID, Platform(res.Claims.Platform), ErrSessionInvalidated, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, ErrSessionInvalidated

	case flows.GuardFailureInfra:
		e.metricInc(MetricGuardInfraRejected)
		e.logger.Warn().
			Err(res.Err).
			Str("operation", "authenticate").
			Str("session_id", res.Claims.SID).
			Str("user_id", res.Claims.UID).
			Msg("session check failed closed")
		e.emitAudit(ctx, auditEventSessionRejected, false, res.Claims.UID, res.Claims.SID, Platform(res.Claims.Platform), res.Err, func() map[string]string {
			return map[string]string{"reason": "infra"}
		})
		return nil, res.Err
	}

	out := &AuthResult{
		UserID:    res.Claims.UID,
		SessionID: res.Claims.SID,
		Platform:  Platform(res.Claims.Platform),
		Degraded:  res.Degraded(),
	}
	if res.Record != nil {
		out.ExpiresAt = res.Record.ExpiresAt
	} else if res.Claims.ExpiresAt != nil {
		out.ExpiresAt = res.Claims.ExpiresAt.Time.UTC()
	}

	if out.Degraded {
		e.metricInc(MetricGuardDegraded)
		e.logger.Warn().
			Str("operation", "authenticate").
			Str("session_id", out.SessionID).
			Str("user_id", out.UserID).
			Strs("skipped", res.DegradedSteps).
			Msg("session check degraded, proceeding fail-open")
	}
	e.metricInc(MetricGuardAccepted)

	if e.config.Guard.TouchActivity && res.Record != nil &&
		e.clock().Sub(res.Record.LastActivityAt) >= e.config.Guard.ActivityThrottle {
		if rec, err := e.UpdateActivity(ctx, out.SessionID); err == nil {
			out.ExpiresAt = rec.ExpiresAt
			if e.config.Guard.RollingExpiry {
				e.renewTicket(out, res.Claims.ExpiresAt)
			}
		}
	}

	return out, nil
}

// renewTicket reissues the ticket when the record's expiry rolled past the
// presented ticket's exp. A signing failure leaves the old ticket in place;
// it stays valid until its own expiry.
func (e *Engine) renewTicket(out *AuthResult, ticketExp *jwt.NumericDate) {
	expiresAt := out.ExpiresAt.Truncate(time.Second)
	if ticketExp != nil && !expiresAt.After(ticketExp.Time) {
		return
	}
	now := e.clock()
	tok, err := e.signer.Issue(out.SessionID, out.UserID, out.Platform.String(), now, out.ExpiresAt)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("operation", "authenticate").
			Str("session_id", out.SessionID).
			Msg("ticket renewal failed")
		return
	}
	out.RenewedTicket = tok
	out.MaxAge = out.ExpiresAt.Sub(now)
	e.logger.Debug().
		Str("operation", "authenticate").
		Str("session_id", out.SessionID).
		Time("expires_at", out.ExpiresAt).
		Msg("session ticket renewed")
}
