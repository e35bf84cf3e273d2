// Package repositories implements SQLite persistence for the engine's durable state.
//
// Key Implementations:
//   - [ResolutionRepository] : cached (title, artist) to catalog identifier lookups
//   - [SessionRepository] : history of injection sessions with status tracking
//   - [CachingResolver] : a read-through resolver that consults the resolution cache first
//
// Sequence numbers provide stable, human-readable ordering (e.g., session #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
