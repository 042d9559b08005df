// Package session provides the Redis-backed ephemeral session store read on
// every authenticated request.
//
// # Binary encoding
//
// Blobs are stored as a compact versioned binary record (user id, platform,
// created and expiry timestamps). The version byte lets future layouts be
// added without reinterpreting old ones.
//
// # Architecture boundaries
//
// This package owns [Store] and the [Blob] model. Its TTL is set by the
// caller and must never exceed the registry record's expiry. It does NOT
// decide whether a session is valid; the engine combines the store answer
// with the ledger and registry.
//
// # What this package must NOT do
//
//   - Import goSession, ledger or registry (no upward imports).
//   - Extend a blob's TTL on read.
package session
