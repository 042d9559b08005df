// Package httpapi is the sessiond HTTP surface: login, logout, the "my
// devices" list and health endpoints, routed with chi.
//
// Handlers translate JSON requests into Engine calls and Engine errors into
// {"error": code, "message": text} bodies. Session-guarded routes go through
// middleware.Guard; every request carries a zerolog logger installed by hlog.
//
// # What this package must NOT do
//
//   - Decide session validity itself (delegates to Engine.Authenticate).
//   - Return raw session ids to clients; the read model exposes handles.
package httpapi
