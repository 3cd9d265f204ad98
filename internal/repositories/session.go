package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/scrapectl/internal/models"
	"github.com/desertthunder/scrapectl/internal/shared"
)

var (
	_ models.SessionStore = (*SessionRepository)(nil)
	_ models.SessionStore = (*MemorySessionStore)(nil)
)

// SessionRepository implements [models.SessionStore] on the single-row session table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the stored identity. It reads the table on every call.
func (r *SessionRepository) Get() (string, error) {
	var identity string
	err := r.db.QueryRow("SELECT identity FROM session WHERE slot = 1").Scan(&identity)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}
	return identity, nil
}

// Set stores identity, replacing the previous one. An empty identity clears the session.
func (r *SessionRepository) Set(identity string) error {
	if identity == "" {
		return r.Clear()
	}

	query := `
		INSERT INTO session (slot, id, identity, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET id = excluded.id, identity = excluded.identity, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, shared.GenerateID(), identity, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Clear removes the stored identity. Clearing an empty store is not an error.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM session"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps the identity in memory only.
type MemorySessionStore struct {
	mu       sync.RWMutex
	identity string
}

// NewMemorySessionStore returns a store seeded with identity ("" for none).
func NewMemorySessionStore(identity string) *MemorySessionStore {
	return &MemorySessionStore{identity: identity}
}

func (s *MemorySessionStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, nil
}

func (s *MemorySessionStore) Set(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	return nil
}

func (s *MemorySessionStore) Clear() error {
	return s.Set("")
}
