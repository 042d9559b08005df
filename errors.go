package goSession

import "errors"

var (
	// ErrUnauthenticated is returned by the guard when the request carries no
	// session, or carries a ticket that fails signature or expiry checks.
	// It is an expected outcome and is never logged as an error.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrSessionInvalidated is returned when a session id was presented but is
	// known to be dead: a ledger hit, a registry miss, an expired record, or a
	// destroyed store blob. Clients show "logged out elsewhere" for it.
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrInfraUnavailable marks a registry, store or ledger failure, including
	// lookup timeouts.
	ErrInfraUnavailable = errors.New("session infrastructure unavailable")
	// ErrInvalidPlatform is returned for a platform other than web or app.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidUserID is returned for an empty user id.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrInvalidSessionID is returned for an empty session id.
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrSessionNotFound is returned by lookups that found no record.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpiredBeforeStore is returned by CreateSession when the new
	// session's lifetime elapsed before its store blob was written. The
	// registry record is rolled back.
	ErrSessionExpiredBeforeStore = errors.New("session expired before it could be stored")
	// ErrEngineNotReady is returned by methods called on a nil or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
