package flows

import (
	"context"
	"sort"

	"github.com/MrEthical07/goSession/registry"
)

// MaintainDeps captures read-model and cleanup dependencies.
type MaintainDeps struct {
	Backends
	// Handle maps a session id to its opaque read-model handle.
	Handle func(sessionID string) string
}

// RunCleanExpired deletes registry records whose expiresAt has passed and
// returns how many were removed. Running it twice in a row returns 0 the
// second time.
func RunCleanExpired(ctx context.Context, deps MaintainDeps) (int, error) {
	b := deps.Backends
	n, err := b.Registry.DeleteExpired(ctx, b.now())
	if err != nil {
		return 0, stepErr(b, "registry delete expired", err)
	}
	return n, nil
}

// RunListActive returns userID's non-expired records, newest first.
func RunListActive(ctx context.Context, userID string, deps MaintainDeps) ([]registry.Record, error) {
	b := deps.Backends
	recs, err := b.Registry.FindByUserID(ctx, userID)
	if err != nil {
		return nil, stepErr(b, "registry find", err)
	}

	now := b.now()
	live := recs[:0]
	for _, rec := range recs {
		if !rec.Expired(now) {
			live = append(live, rec)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return live, nil
}

// RunCountActive counts userID's non-expired records.
func RunCountActive(ctx context.Context, userID string, deps MaintainDeps) (int, error) {
	b := deps.Backends
	n, err := b.Registry.CountActive(ctx, userID, b.now())
	if err != nil {
		return 0, stepErr(b, "registry count", err)
	}
	return n, nil
}

// ResolveHandle finds the session id of userID's session whose handle is
// handle. It returns registry.ErrNotFound when none matches, so one user
// cannot address another user's sessions.
func ResolveHandle(ctx context.Context, userID, handle string, deps MaintainDeps) (string, error) {
	b := deps.Backends
	recs, err := b.Registry.FindByUserID(ctx, userID)
	if err != nil {
		return "", stepErr(b, "registry find", err)
	}
	for _, rec := range recs {
		if deps.Handle(rec.SessionID) == handle {
			return rec.SessionID, nil
		}
	}
	return "", registry.ErrNotFound
}
