// Package audit delivers session lifecycle events to a pluggable [Sink]
// without blocking the request path.
//
// # Components
//
//   - [Event]: one lifecycle record (session created, evicted, deleted, rejected, cleaned).
//   - [Sink]: consumer interface, with channel, JSON-lines, zerolog and no-op implementations.
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full delivery.
//
// # What this package must NOT do
//
//   - Decide which events to emit. The engine does that.
//   - Import goSession or any sibling internal package.
package audit
