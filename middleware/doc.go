// Package middleware exposes the HTTP session guard and cookie helpers built
// on top of goSession.Engine.
//
// # Guard
//
// [Guard] reads the session ticket from the configured cookie (or, when
// enabled, an Authorization: Bearer header), calls Engine.Authenticate and
// injects the [goSession.AuthResult] into the request context. Responses:
//
//   - no ticket or a bad signature: 401, cookie untouched
//   - invalidated session: 401, cookie cleared
//   - backend unavailable under fail-closed: 503
//
// # Cookies
//
// [SetSessionCookie] and [ClearSessionCookie] write the session cookie with
// the attributes from goSession.CookieConfig. Max-Age comes from the
// platform TTL returned by Engine.CreateSession.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// decide whether a session is valid; all decisions are delegated to
// Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or sign tickets directly (delegates to Engine).
//   - Access Redis or the registry.
//   - Write response bodies beyond the default plain-text errors.
package middleware
