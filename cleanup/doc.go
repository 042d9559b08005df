// Package cleanup runs the periodic sweep that deletes expired registry
// records.
//
// The MongoDB TTL index already removes expired records, but only on its own
// schedule (about once a minute, and not at all on the in-memory registry).
// [Scheduler] backstops it by calling Engine.CleanExpiredSessions on a fixed
// interval. Sweeps are idempotent, so every instance may run one.
//
// # What this package must NOT do
//
//   - Touch the blob store or the ledger; blob TTLs expire on their own.
//   - Run more than one sweep at a time per Scheduler.
package cleanup
