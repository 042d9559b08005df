package goSession

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"
)

// Platform classifies the requesting client. Each user may hold at most one
// live session per platform.
type Platform string

const (
	// PlatformWeb is a browser client.
	PlatformWeb Platform = "web"
	// PlatformApp is a native mobile or desktop client.
	PlatformApp Platform = "app"
)

// ParsePlatform normalizes s into a [Platform].
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPlatform
	}
	return p, nil
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	return p == PlatformWeb || p == PlatformApp
}

func (p Platform) String() string {
	return string(p)
}

// DeviceInfo is the classifier output consumed by [Engine.CreateSession].
type DeviceInfo struct {
	Platform   Platform
	DeviceName string
}

// CreateResult is returned by [Engine.CreateSession].
//
// Ticket is the signed cookie value. MaxAge and ExpiresAt come from the same
// TTL lookup, so the cookie never outlives the registry record.
type CreateResult struct {
	SessionID string
	Ticket    string
	UserID    string
	Platform  Platform
	ExpiresAt time.Time
	MaxAge    time.Duration
	// Evicted lists the ids of same-platform sessions removed by this login.
	Evicted []string
}

// SessionRecord is the registry view returned by lookups.
type SessionRecord struct {
	SessionID      string
	UserID         string
	Platform       Platform
	DeviceName     string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ActiveSession is the self-service read model for "my devices" screens.
// It never carries the raw session id; Handle is an opaque digest that can be
// passed back to [Engine.RevokeSessionByHandle].
type ActiveSession struct {
	Handle         string    `json:"id"`
	Platform       Platform  `json:"platform"`
	DeviceName     string    `json:"deviceName"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	IsCurrent      bool      `json:"isCurrent"`
}

// AuthResult is attached to the request context by the guard.
type AuthResult struct {
	UserID    string
	SessionID string
	Platform  Platform
	ExpiresAt time.Time
	// Degraded is set when a backend check could not answer and the guard
	// proceeded under the fail-open policy.
	Degraded bool
	// RenewedTicket is set when rolling expiry moved ExpiresAt past the
	// presented ticket's expiry. Clients must replace their ticket with it;
	// the old one stops working at its original expiry.
	RenewedTicket string
	// MaxAge is the remaining lifetime of RenewedTicket.
	MaxAge time.Duration
}

// HealthReport is returned by [Engine.Health].
type HealthReport struct {
	RedisAvailable    bool
	RedisLatency      time.Duration
	RegistryAvailable bool
	RegistryLatency   time.Duration
}

// SessionHandle returns the opaque handle exposed for sessionID in the read
// model.
func SessionHandle(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
