// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: TTL is stored as a unix timestamp column; reads re-check it (lazy expiry)

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
//
// Expiry is enforced the way a TTL-native backend would: expired rows may
// linger physically, but every read re-checks expires_at, so a stale row is
// never returned. Physical reclamation happens opportunistically on writes.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite session store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("session store initialized", "path", path)
	return s, nil
}

// createSchema creates the sessions table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at
			ON sessions(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Create generates a fresh session id and inserts a record expiring at now+ttl.
func (s *SQLiteStore) Create(ctx context.Context, payload json.RawMessage, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	id := uuid.New().String()

	if payload == nil {
		payload = json.RawMessage("{}")
	}

	// Reclaim expired rows while we're here. Reads never depend on this:
	// Get re-checks expires_at on every call.
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", now.Unix()); err != nil {
		s.logger.Warn("purging expired sessions failed", "error", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, payload, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, []byte(payload), now.Format(time.RFC3339), now.Format(time.RFC3339),
		now.Add(ttl).Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting session: %v", ErrUnavailable, err)
	}

	s.logger.Debug("session created", "session_id", id, "ttl", ttl)
	return id, nil
}

// Get returns the live session for id, treating expired rows as absent.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, payload, created_at, updated_at, expires_at
		FROM sessions WHERE session_id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying session: %v", ErrUnavailable, err)
	}

	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Put overwrites the payload and extends expiry, only if a live record exists.
func (s *SQLiteStore) Put(ctx context.Context, id string, payload json.RawMessage, ttl time.Duration) error {
	now := s.now().UTC()

	if payload == nil {
		payload = json.RawMessage("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET payload = ?, updated_at = ?, expires_at = ?
		WHERE session_id = ? AND expires_at > ?`,
		[]byte(payload), now.Format(time.RFC3339), now.Add(ttl).Unix(),
		id, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: updating session: %v", ErrUnavailable, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking update result: %v", ErrUnavailable, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the session row. Absent rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("%w: deleting session: %v", ErrUnavailable, err)
	}
	return nil
}

// List returns all live sessions, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, payload, created_at, updated_at, expires_at
		FROM sessions WHERE expires_at > ?
		ORDER BY updated_at DESC`, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: listing sessions: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning session: %v", ErrUnavailable, err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating sessions: %v", ErrUnavailable, err)
	}
	return sessions, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*Session, error) {
	var (
		sess      Session
		payload   []byte
		createdAt string
		updatedAt string
		expiresAt int64
	)
	if err := sc.Scan(&sess.ID, &payload, &createdAt, &updatedAt, &expiresAt); err != nil {
		return nil, err
	}

	var err error
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	sess.Payload = json.RawMessage(payload)
	return &sess, nil
}
