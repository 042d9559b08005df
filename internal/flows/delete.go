package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/registry"
)

// DeleteDeps captures logout dependencies.
type DeleteDeps struct {
	Backends
}

type DeleteOutput struct {
	// Removed is true when a registry record was deleted by this call.
	Removed bool
	// Record is the registry record as it was before deletion, if any.
	Record *registry.Record
}

// RunDelete destroys one session: ledger marker, blob, then registry record.
// A session that is already gone is not an error.
func RunDelete(ctx context.Context, sessionID string, deps DeleteDeps) (*DeleteOutput, error) {
	b := deps.Backends

	out := &DeleteOutput{}
	rec, err := b.Registry.FindBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		out.Record = rec
	case errors.Is(err, registry.ErrNotFound):
	default:
		return nil, stepErr(b, "registry find", err)
	}

	if err := b.Ledger.Mark(ctx, sessionID); err != nil {
		return nil, stepErr(b, "ledger mark", err)
	}
	if _, err := b.Store.Delete(ctx, sessionID); err != nil {
		return nil, stepErr(b, "store delete", err)
	}
	removed, err := b.Registry.Delete(ctx, sessionID)
	if err != nil {
		return nil, stepErr(b, "registry delete", err)
	}
	out.Removed = removed
	return out, nil
}

type DeleteManyOutput struct {
	// Removed counts registry records deleted.
	Removed int
	// SessionIDs lists every id that was invalidated, including ids known
	// only to the blob store index.
	SessionIDs []string
}

// RunDeleteAll destroys every session of userID except exceptSessionID
// (empty means none are kept).
//
// Sessions created after the initial read are not captured.
func RunDeleteAll(ctx context.Context, userID, exceptSessionID string, deps DeleteDeps) (*DeleteManyOutput, error) {
	b := deps.Backends

	recs, err := b.Registry.FindByUserID(ctx, userID)
	if err != nil {
		return nil, stepErr(b, "registry find", err)
	}
	indexed, err := b.Store.SessionIDsForUser(ctx, userID)
	if err != nil {
		return nil, stepErr(b, "store index", err)
	}

	seen := make(map[string]struct{}, len(recs)+len(indexed))
	ids := make([]string, 0, len(recs)+len(indexed))
	add := func(id string) {
		if id == "" || id == exceptSessionID {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, rec := range recs {
		add(rec.SessionID)
	}
	for _, id := range indexed {
		add(id)
	}

	out := &DeleteManyOutput{SessionIDs: ids}
	if len(ids) == 0 {
		return out, nil
	}

	if err := invalidate(ctx, b, userID, ids); err != nil {
		return nil, err
	}
	n, err := b.Registry.DeleteMany(ctx, ids)
	if err != nil {
		return nil, stepErr(b, "registry delete", err)
	}
	out.Removed = n
	return out, nil
}
