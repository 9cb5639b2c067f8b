// Package session provides durable conversation state for mcp-gateway.
//
// Each MCP conversation is backed by a session record keyed by an opaque id
// and carrying a time-to-live. The payload is an uninterpreted JSON blob
// owned by the tool handler that created it.
//
// # Expiry Semantics
//
// Expiry is lazy: a record whose expires_at has passed is logically absent
// from the moment it passes, even if the row has not been physically
// reclaimed yet. Get and Put both re-check the timestamp, so callers never
// observe a stale session. Physical reclamation happens opportunistically
// on writes, never by a background sweep.
//
// # Concurrency
//
// Per-key writes are last-write-wins. Two requests racing on the same
// session id may interleave arbitrarily; callers that need compare-and-swap
// must build it above this interface.
//
// # Implementations
//
//   - SQLiteStore: durable, WAL-mode SQLite via modernc.org/sqlite
//   - MemoryStore: in-process map, used in tests and ephemeral deployments
package session
