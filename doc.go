// Package goSession manages cookie-based login sessions backed by two
// stores: a fast Redis blob read on every request and a durable registry
// that allows at most one live session per user and platform (web, app).
//
// The [Engine] is the single entry point. Logins go through
// [Engine.CreateSession], which evicts the user's previous session on the
// same platform. Requests go through [Engine.Authenticate], which checks the
// signed ticket, then the invalidation ledger, the registry and the blob
// store, in that order. Logouts write a short-lived ledger marker before
// deleting anything, so a request that read the session just before it was
// destroyed is still rejected.
//
// Engine methods are safe for concurrent use after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config] and value
// types. Flow orchestration lives in internal/flows; storage lives in the
// registry, session and ledger packages; cookie signing in ticket; HTTP glue
// in middleware.
//
// # What this package must NOT do
//
//   - Expose Redis or MongoDB clients in its public API.
//   - Import any sub-package that re-imports goSession.
//   - Retry backend calls inside the guard.
package goSession
