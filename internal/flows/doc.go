// Package flows contains the orchestration for every session engine
// operation: create, delete, bulk delete, guard, activity and maintenance.
//
// Each Run function takes a typed dependency struct and touches storage only
// through it, so the ordering rules (marker before store delete before
// registry delete; registry replace before store save) live in one place and
// are testable with fakes.
//
// # Architecture boundaries
//
// Flows coordinate the registry, the blob store, the invalidation ledger and
// the ticket parser. They do NOT own any of them; the engine does.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Log, emit audit events or record metrics. Results carry enough detail
//     for the engine to do that.
package flows
