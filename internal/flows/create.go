package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
)

// CreateDeps captures createSession dependencies.
type CreateDeps struct {
	Backends
	TTLFor       func(platform string) (time.Duration, error)
	NewSessionID func() (string, error)
	IssueTicket  func(sessionID, userID, platform string, issuedAt, expiresAt time.Time) (string, error)
	ExpiredErr   error
}

type CreateInput struct {
	UserID     string
	Platform   string
	DeviceName string
}

type CreateOutput struct {
	Record  registry.Record
	Ticket  string
	TTL     time.Duration
	Evicted []registry.Record
}

// RunCreate evicts the caller's existing session on the same platform and
// installs a new one.
//
// Order: mark and drop the blobs of known same-platform sessions, replace the
// (user, platform) registry slot, mark and drop whatever the replace
// displaced, then save the new blob with TTL = expiresAt - now. Every write
// failure is returned; an eviction is never skipped.
func RunCreate(ctx context.Context, in CreateInput, deps CreateDeps) (*CreateOutput, error) {
	b := deps.Backends

	existing, err := b.Registry.FindByUserID(ctx, in.UserID)
	if err != nil {
		return nil, stepErr(b, "registry find", err)
	}

	out := &CreateOutput{}
	handled := make(map[string]struct{})
	var ids []string
	for _, rec := range existing {
		if rec.Platform != in.Platform {
			continue
		}
		ids = append(ids, rec.SessionID)
		handled[rec.SessionID] = struct{}{}
		out.Evicted = append(out.Evicted, rec)
	}
	if err := invalidate(ctx, b, in.UserID, ids); err != nil {
		return nil, err
	}

	ttl, err := deps.TTLFor(in.Platform)
	if err != nil {
		return nil, err
	}
	sessionID, err := deps.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := b.now()
	rec := registry.Record{
		SessionID:      sessionID,
		UserID:         in.UserID,
		Platform:       in.Platform,
		DeviceName:     in.DeviceName,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}

	// Signed before the registry write so a signing failure leaves no record.
	token, err := deps.IssueTicket(sessionID, in.UserID, in.Platform, now, rec.ExpiresAt)
	if err != nil {
		return nil, err
	}

	prev, err := b.Registry.ReplaceSlot(ctx, rec)
	if err != nil {
		return nil, stepErr(b, "registry replace", err)
	}
	if prev != nil {
		if _, ok := handled[prev.SessionID]; !ok {
			// A concurrent login took the slot after our lookup.
			if err := invalidate(ctx, b, in.UserID, []string{prev.SessionID}); err != nil {
				return nil, err
			}
			out.Evicted = append(out.Evicted, *prev)
		}
	}

	storeTTL := rec.ExpiresAt.Sub(b.now())
	if storeTTL <= 0 {
		_, _ = b.Registry.Delete(context.WithoutCancel(ctx), sessionID)
		if deps.ExpiredErr != nil {
			return nil, deps.ExpiredErr
		}
		return nil, ErrExpiredBeforeStore
	}
	blob := &session.Blob{
		SchemaVersion: session.CurrentSchemaVersion,
		SessionID:     sessionID,
		UserID:        in.UserID,
		Platform:      in.Platform,
		CreatedAt:     now.Unix(),
		ExpiresAt:     rec.ExpiresAt.Unix(),
	}
	if err := b.Store.Save(ctx, blob, storeTTL); err != nil {
		// Without a blob the guard rejects the session anyway; drop the
		// record so the slot does not list a dead device.
		_, _ = b.Registry.Delete(context.WithoutCancel(ctx), sessionID)
		return nil, stepErr(b, "store save", err)
	}

	out.Record = rec
	out.Ticket = token
	out.TTL = ttl
	return out, nil
}

// invalidate writes ledger markers for ids and then drops their blobs.
func invalidate(ctx context.Context, b Backends, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.Ledger.Mark(ctx, ids...); err != nil {
		return stepErr(b, "ledger mark", err)
	}
	if _, err := b.Store.DeleteMany(ctx, userID, ids); err != nil {
		return stepErr(b, "store delete", err)
	}
	return nil
}
