package registry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("registry: record not found")
	// ErrUnavailable wraps driver and network failures.
	ErrUnavailable = errors.New("registry unavailable")
	// ErrSlotConflict is returned when a concurrent writer kept winning the
	// (userId, platform) slot.
	ErrSlotConflict = errors.New("registry: session slot conflict")
)

// Record is one device session.
type Record struct {
	SessionID      string    `bson:"sessionId"`
	UserID         string    `bson:"userId"`
	Platform       string    `bson:"platform"`
	DeviceName     string    `bson:"deviceName,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
	LastActivityAt time.Time `bson:"lastActivityAt"`
	ExpiresAt      time.Time `bson:"expiresAt"`
}

// Expired reports whether the record is past expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Registry is the storage contract used by the session engine.
type Registry interface {
	// ReplaceSlot stores rec as the only record for (rec.UserID, rec.Platform)
	// and returns the record it displaced, or nil when the slot was empty.
	ReplaceSlot(ctx context.Context, rec Record) (*Record, error)
	// FindBySessionID returns ErrNotFound when sessionID has no record.
	FindBySessionID(ctx context.Context, sessionID string) (*Record, error)
	// FindByUserID returns all records for userID, newest first, including
	// expired ones not yet swept.
	FindByUserID(ctx context.Context, userID string) ([]Record, error)
	// Touch sets lastActivityAt and, when expiresAt is non-zero, expiresAt.
	// It returns ErrNotFound when sessionID has no record.
	Touch(ctx context.Context, sessionID string, at, expiresAt time.Time) error
	// Delete removes sessionID and reports whether a record was removed.
	Delete(ctx context.Context, sessionID string) (bool, error)
	// DeleteMany removes every listed id and returns how many were removed.
	DeleteMany(ctx context.Context, sessionIDs []string) (int, error)
	// DeleteExpired removes records with expiresAt < now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// CountActive counts records for userID with expiresAt > now.
	CountActive(ctx context.Context, userID string, now time.Time) (int, error)
	Ping(ctx context.Context) error
}

func slotKey(userID, platform string) string {
	return userID + "\x00" + platform
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
