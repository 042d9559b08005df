package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
)

// ActivityDeps captures updateActivity dependencies.
type ActivityDeps struct {
	Backends
	TTLFor        func(platform string) (time.Duration, error)
	RollingExpiry bool
	NotFoundErr   error
}

// RunUpdateActivity sets lastActivityAt to now. With RollingExpiry it also
// moves expiresAt to now + ttlFor(platform) and rewrites the blob with the
// same expiry, so the store TTL never exceeds the record's.
func RunUpdateActivity(ctx context.Context, sessionID string, deps ActivityDeps) (*registry.Record, error) {
	b := deps.Backends

	rec, err := b.Registry.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, deps.NotFoundErr
		}
		return nil, stepErr(b, "registry find", err)
	}

	now := b.now()
	if rec.Expired(now) {
		return nil, deps.NotFoundErr
	}

	var expiresAt time.Time
	if deps.RollingExpiry {
		ttl, err := deps.TTLFor(rec.Platform)
		if err != nil {
			return nil, err
		}
		expiresAt = now.Add(ttl)
	}

	if err := b.Registry.Touch(ctx, sessionID, now, expiresAt); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, deps.NotFoundErr
		}
		return nil, stepErr(b, "registry touch", err)
	}
	rec.LastActivityAt = now

	if expiresAt.IsZero() {
		return rec, nil
	}
	rec.ExpiresAt = expiresAt

	blob, err := b.Store.Get(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		// The blob is gone; the guard will reject this session. Do not
		// resurrect it.
		return rec, nil
	case err != nil:
		return nil, stepErr(b, "store get", err)
	}
	blob.ExpiresAt = expiresAt.Unix()
	if err := b.Store.Save(ctx, blob, expiresAt.Sub(b.now())); err != nil {
		return nil, stepErr(b, "store save", err)
	}
	return rec, nil
}
