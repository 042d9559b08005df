package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/ticket"
)

// GuardFailureKind classifies guard rejections for root-level mapping.
type GuardFailureKind int

const (
	GuardFailureNone GuardFailureKind = iota
	GuardFailureUnauthenticated
	GuardFailureInvalidated
	GuardFailureInfra
)

// GuardDeps captures per-request session check dependencies.
type GuardDeps struct {
	Backends
	ParseTicket   func(string) (*ticket.Claims, error)
	LookupTimeout time.Duration
	FailOpen      bool
	CheckStore    bool
}

type GuardResult struct {
	Failure GuardFailureKind
	Err     error
	Claims  *ticket.Claims
	// Record is nil when the registry could not answer and the guard
	// continued fail-open.
	Record *registry.Record
	// LedgerHit is set when the rejection came from an invalidation marker.
	LedgerHit bool
	// Reason names the check that rejected an invalidated session.
	Reason string
	// DegradedSteps names the checks skipped under the fail-open policy.
	DegradedSteps []string
	// StaleBlobDeleted is set when a blob without a live record was removed.
	StaleBlobDeleted bool
}

func (r GuardResult) Degraded() bool {
	return len(r.DegradedSteps) > 0
}

// RunGuard decides whether a request presenting token may proceed.
//
// Checks run in order ticket, ledger, registry, store. A negative answer from
// any of them rejects. A backend error rejects with GuardFailureInfra unless
// FailOpen is set, in which case the identity from the signed ticket is
// trusted for that step and the result is marked degraded.
func RunGuard(ctx context.Context, token string, deps GuardDeps) GuardResult {
	b := deps.Backends

	if token == "" {
		return GuardResult{Failure: GuardFailureUnauthenticated}
	}
	claims, err := deps.ParseTicket(token)
	if errors.Is(err, ticket.ErrTicketExpired) {
		// Authentic but past its expiry: a known session that ended.
		return GuardResult{Failure: GuardFailureInvalidated, Claims: claims, Reason: "ticket_expired"}
	}
	if err != nil {
		return GuardResult{Failure: GuardFailureUnauthenticated, Err: err}
	}
	res := GuardResult{Claims: claims}

	// Ledger: a marker means the session is being destroyed right now, even
	// if the registry delete has not landed yet.
	hit, err := withTimeout(ctx, deps.LookupTimeout, func(ctx context.Context) (bool, error) {
		return b.Ledger.IsInvalidated(ctx, claims.SID)
	})
	if err != nil {
		if !deps.FailOpen {
			return infraFailure(res, b, "ledger lookup", err)
		}
		res.DegradedSteps = append(res.DegradedSteps, "ledger")
	} else if hit {
		res.Failure = GuardFailureInvalidated
		res.LedgerHit = true
		res.Reason = "ledger"
		return res
	}

	rec, err := withTimeout(ctx, deps.LookupTimeout, func(ctx context.Context) (*registry.Record, error) {
		return b.Registry.FindBySessionID(ctx, claims.SID)
	})
	switch {
	case errors.Is(err, registry.ErrNotFound):
		res.Failure = GuardFailureInvalidated
		res.Reason = "registry_missing"
		res.StaleBlobDeleted = dropStaleBlob(ctx, deps, claims.SID)
		return res
	case err != nil:
		if !deps.FailOpen {
			return infraFailure(res, b, "registry lookup", err)
		}
		res.DegradedSteps = append(res.DegradedSteps, "registry")
	case rec.Expired(b.now()) || rec.UserID != claims.UID || rec.Platform != claims.Platform:
		res.Failure = GuardFailureInvalidated
		res.Reason = "registry_expired"
		if !rec.Expired(b.now()) {
			res.Reason = "registry_mismatch"
		}
		res.Record = rec
		res.StaleBlobDeleted = dropStaleBlob(ctx, deps, claims.SID)
		return res
	default:
		res.Record = rec
	}

	if deps.CheckStore {
		blob, err := withTimeout(ctx, deps.LookupTimeout, func(ctx context.Context) (*session.Blob, error) {
			return b.Store.Get(ctx, claims.SID)
		})
		switch {
		case err == nil:
			if blob.UserID != claims.UID {
				res.Failure = GuardFailureInvalidated
				res.Reason = "store_mismatch"
				return res
			}
		case errors.Is(err, session.ErrRedisUnavailable), isTimeout(err):
			if !deps.FailOpen {
				return infraFailure(res, b, "store lookup", err)
			}
			res.DegradedSteps = append(res.DegradedSteps, "store")
		default:
			// Missing or undecodable blob: the session was destroyed.
			res.Failure = GuardFailureInvalidated
			res.Reason = "store_missing"
			return res
		}
	}

	return res
}

func infraFailure(res GuardResult, b Backends, step string, err error) GuardResult {
	res.Failure = GuardFailureInfra
	res.Err = stepErr(b, step, err)
	return res
}

// dropStaleBlob removes a blob whose registry record is gone or expired. It
// is best effort; the blob expires on its own TTL otherwise.
func dropStaleBlob(ctx context.Context, deps GuardDeps, sessionID string) bool {
	removed, err := withTimeout(ctx, deps.LookupTimeout, func(ctx context.Context) (bool, error) {
		return deps.Store.Delete(ctx, sessionID)
	})
	return err == nil && removed
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
