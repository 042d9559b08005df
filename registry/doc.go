// Package registry provides the durable per-device session registry.
//
// Every live session owns exactly one [Record]. The registry is the
// authoritative answer to "is this session id live": the ephemeral Redis
// store is a cache of it and never outlives it.
//
// # Slot semantics
//
// A user holds at most one record per platform. [Registry.ReplaceSlot]
// installs a new record into the (userId, platform) slot atomically and
// returns the previous occupant, so callers can evict it without a separate
// find-then-delete step. [Mongo] enforces this with a unique compound index;
// [Memory] with a slot map under a mutex.
//
// # What this package must NOT do
//
//   - Import goSession or any HTTP package.
//   - Write invalidation markers or touch the Redis store (the engine orders
//     those writes around registry calls).
package registry
