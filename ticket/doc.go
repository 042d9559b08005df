// Package ticket signs and verifies the session ticket carried in the
// session cookie (or, for app clients, the Authorization header).
//
// A ticket is a compact JWT whose claims name the session id, user id and
// platform, and whose exp equals the registry record's expiresAt. A valid
// signature proves the server issued the ticket; it does NOT prove the
// session is still live. Liveness is decided by the ledger, registry and
// store.
package ticket
