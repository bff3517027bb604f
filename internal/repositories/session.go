package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/genretime/genretime/internal/shared"
)

// SessionRepository persists the Spotify refresh token in the sessions table
// so the tracker can resume authorization across process restarts.
//
// The table holds at most one row.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveRefreshToken stores the refresh token, replacing any previous one.
func (r *SessionRepository) SaveRefreshToken(token string) error {
	query := `
		INSERT INTO sessions (id, refresh_token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET refresh_token = excluded.refresh_token, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, token, time.Now()); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// RefreshToken returns the stored refresh token, or [shared.ErrNoSession]
// when no login has been persisted yet.
func (r *SessionRepository) RefreshToken() (string, error) {
	var token string
	err := r.db.QueryRow("SELECT refresh_token FROM sessions WHERE id = 1").Scan(&token)
	if err == sql.ErrNoRows {
		return "", shared.ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session: %w", err)
	}

	return token, nil
}

// Clear removes the stored session, forcing the next run through the
// interactive login flow.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
