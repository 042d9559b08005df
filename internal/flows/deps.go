package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/session"
)

// BlobStore is the subset of session.Store used by flows.
type BlobStore interface {
	Save(ctx context.Context, b *session.Blob, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*session.Blob, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	DeleteMany(ctx context.Context, userID string, sessionIDs []string) (int, error)
	SessionIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// Ledger is the subset of ledger.Ledger used by flows.
type Ledger interface {
	Mark(ctx context.Context, sessionIDs ...string) error
	IsInvalidated(ctx context.Context, sessionID string) (bool, error)
}

// Backends groups the three stores every flow talks to.
type Backends struct {
	Registry registry.Registry
	Store    BlobStore
	Ledger   Ledger
	Now      func() time.Time
	// InfraErr is wrapped around every backend failure returned by a flow.
	InfraErr error
}

func (b Backends) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// Deps groups flow dependency sets. The root engine builds this once.
type Deps struct {
	Create   CreateDeps
	Delete   DeleteDeps
	Guard    GuardDeps
	Activity ActivityDeps
	Maintain MaintainDeps
}
