// ABOUTME: Session model and Store interface for mcp-gateway persistence
// ABOUTME: Defines TTL-scoped conversation records keyed by opaque session id

package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no live session exists for the given id.
// Expired-but-not-yet-reclaimed records are indistinguishable from absent
// ones: callers always see ErrNotFound once expires_at has passed.
var ErrNotFound = errors.New("session not found")

// ErrUnavailable is returned when the backing store cannot be reached.
// It is never swallowed; callers map it to a 5xx response.
var ErrUnavailable = errors.New("session store unavailable")

// Session represents one logical multi-turn conversation.
// Payload is owned entirely by the tool handler that created the session;
// the gateway treats it as an uninterpreted blob.
type Session struct {
	ID        string
	Payload   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is logically absent at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Store defines the interface for session persistence.
//
// Per-key writes are last-write-wins: two requests racing on the same
// session id may interleave arbitrarily, and the store makes no
// read-modify-write atomicity guarantee across calls. Each conversation is
// expected to be driven by one caller at a time.
type Store interface {
	// Create generates a fresh unique session id and writes a record with
	// expires_at = now + ttl. Returns ErrUnavailable on backend failure.
	Create(ctx context.Context, payload json.RawMessage, ttl time.Duration) (string, error)

	// Get returns the live session for id, or ErrNotFound if the id never
	// existed or its expiry has passed.
	Get(ctx context.Context, id string) (*Session, error)

	// Put overwrites the payload and resets expires_at = now + ttl.
	// Returns ErrNotFound if no live record exists; callers must Create
	// first. There is no implicit upsert, so a lost session surfaces
	// instead of being silently recreated.
	Put(ctx context.Context, id string, payload json.RawMessage, ttl time.Duration) error

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error

	// List returns all live sessions, most recently updated first.
	List(ctx context.Context) ([]*Session, error)

	// Close releases store resources.
	Close() error
}
