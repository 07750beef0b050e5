package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
)

type AuthSessionStore struct {
	db *sql.DB
}

func NewAuthSessionStore(db *sql.DB) *AuthSessionStore {
	return &AuthSessionStore{db: db}
}

func scanAuthSession(scanner interface{ Scan(...any) error }) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := scanner.Scan(&sess.ID, &sess.UserID, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

const authSessionCols = `id, user_id, token, expires_at, created_at`

func (s *AuthSessionStore) Create(userID int64, token string, expiresAt time.Time) (*model.AuthSession, error) {
	result, err := s.db.Exec(
		`INSERT INTO auth_sessions (user_id, token, expires_at) VALUES (?, ?, ?)`,
		userID, token, expiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert auth session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+authSessionCols+` FROM auth_sessions WHERE id = ?`, id)
	return scanAuthSession(row)
}

// GetByToken returns the session for a token, or nil if missing or expired.
func (s *AuthSessionStore) GetByToken(token string) (*model.AuthSession, error) {
	row := s.db.QueryRow(
		`SELECT `+authSessionCols+` FROM auth_sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC(),
	)
	sess, err := scanAuthSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth session: %w", err)
	}
	return sess, nil
}

func (s *AuthSessionStore) DeleteByToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	return nil
}

// DeleteExpired removes stale sessions; called from the cleanup loop.
func (s *AuthSessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
