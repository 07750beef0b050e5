package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
)

type ParticipantStore struct {
	db *sql.DB
}

func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func scanParticipant(scanner interface{ Scan(...any) error }) (*model.SessionParticipant, error) {
	var p model.SessionParticipant
	var userID sql.NullInt64

	err := scanner.Scan(
		&p.ID, &p.SessionID, &userID, &p.TempUserID, &p.DisplayName,
		&p.IsAuthenticated, &p.AvatarURL, &p.LastActiveAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		p.UserID = &userID.Int64
	}
	return &p, nil
}

const participantCols = `id, session_id, user_id, temp_user_id, display_name, is_authenticated, avatar_url, last_active_at, created_at`

// Join registers an identity as a participant, idempotently: an existing row
// gets a heartbeat refresh instead of a duplicate. The unique indexes on
// (session, user) and (session, temp id) back-stop a concurrent double-join;
// the loser re-fetches the winner's row. The bool reports whether a row was
// created.
func (s *ParticipantStore) Join(sessionID int64, ident identity.Identity, displayName, avatarURL string) (*model.SessionParticipant, bool, error) {
	existing, err := s.GetByIdentity(sessionID, ident)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := s.Heartbeat(existing.ID, time.Now()); err != nil {
			return nil, false, err
		}
		p, err := s.GetByID(existing.ID)
		return p, false, err
	}

	userID, tempID := assigneeArgs(ident)
	result, err := s.db.Exec(
		`INSERT INTO session_participants (session_id, user_id, temp_user_id, display_name, is_authenticated, avatar_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, userID, tempID, displayName, ident.IsAuthenticated(), avatarURL,
	)
	if err != nil {
		var serr *sqlite.Error
		if errors.As(err, &serr) {
			// Unique index hit: someone joined between our lookup and insert.
			if p, lookupErr := s.GetByIdentity(sessionID, ident); lookupErr == nil && p != nil {
				return p, false, nil
			}
		}
		return nil, false, fmt.Errorf("insert participant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	p, err := s.GetByID(id)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *ParticipantStore) GetByID(id int64) (*model.SessionParticipant, error) {
	row := s.db.QueryRow(`SELECT `+participantCols+` FROM session_participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) GetByIdentity(sessionID int64, ident identity.Identity) (*model.SessionParticipant, error) {
	var row *sql.Row
	if ident.IsAuthenticated() {
		row = s.db.QueryRow(
			`SELECT `+participantCols+` FROM session_participants WHERE session_id = ? AND user_id = ?`,
			sessionID, ident.UserID,
		)
	} else {
		row = s.db.QueryRow(
			`SELECT `+participantCols+` FROM session_participants WHERE session_id = ? AND temp_user_id = ?`,
			sessionID, ident.TempID,
		)
	}
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant by identity: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) ListBySession(sessionID int64) ([]model.SessionParticipant, error) {
	rows, err := s.db.Query(
		`SELECT `+participantCols+` FROM session_participants WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []model.SessionParticipant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

func (s *ParticipantStore) Heartbeat(id int64, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE session_participants SET last_active_at = ? WHERE id = ?`,
		now.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("heartbeat participant: %w", err)
	}
	return nil
}

// Delete removes a participant on explicit leave.
func (s *ParticipantStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM session_participants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	return nil
}
