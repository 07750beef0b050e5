package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.CleaningSession, error) {
	var cs model.CleaningSession
	var scheduleID sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&cs.ID, &cs.WardID, &scheduleID, &cs.Name, &cs.SessionDate, &cs.ShareCode,
		&cs.Status, &completedAt, &cs.CreatedBy, &cs.CreatedAt, &cs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if scheduleID.Valid {
		cs.ScheduleID = &scheduleID.Int64
	}
	if completedAt.Valid {
		t := completedAt.Time
		cs.CompletedAt = &t
	}
	return &cs, nil
}

const sessionCols = `id, ward_id, schedule_id, name, session_date, share_code, status, completed_at, created_by, created_at, updated_at`

// CreateForSchedule materializes a session for a schedule entry. The UNIQUE
// constraint on schedule_id makes this an insert-or-fetch-existing: concurrent
// bootstrap calls for the same entry converge on one row. The returned bool
// reports whether this call created the row.
func (s *SessionStore) CreateForSchedule(wardID, scheduleID int64, name string, date time.Time, shareCode string, createdBy int64) (*model.CleaningSession, bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO cleaning_sessions (ward_id, schedule_id, name, session_date, share_code, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (schedule_id) DO NOTHING`,
		wardID, scheduleID, name, date.UTC(), shareCode, createdBy,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	sess, err := s.GetBySchedule(scheduleID)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, fmt.Errorf("session for schedule %d vanished after upsert", scheduleID)
	}
	return sess, n > 0, nil
}

func (s *SessionStore) GetByID(id int64) (*model.CleaningSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM cleaning_sessions WHERE id = ?`, id)
	cs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return cs, nil
}

func (s *SessionStore) GetBySchedule(scheduleID int64) (*model.CleaningSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM cleaning_sessions WHERE schedule_id = ?`, scheduleID)
	cs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by schedule: %w", err)
	}
	return cs, nil
}

func (s *SessionStore) GetByShareCode(code string) (*model.CleaningSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM cleaning_sessions WHERE share_code = ?`, code)
	cs, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by share code: %w", err)
	}
	return cs, nil
}

func (s *SessionStore) ListByWard(wardID int64) ([]model.CleaningSession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionCols+` FROM cleaning_sessions WHERE ward_id = ? ORDER BY session_date DESC`,
		wardID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.CleaningSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *cs)
	}
	return sessions, rows.Err()
}

// Complete transitions an active session to completed. Completing an already
// completed session is an invalid transition.
func (s *SessionStore) Complete(id int64, now time.Time) (*model.CleaningSession, error) {
	result, err := s.db.Exec(
		`UPDATE cleaning_sessions SET status = ?, completed_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		string(model.SessionCompleted), now.UTC(), id, string(model.SessionActive),
	)
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		existing, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrNotFound
		}
		return nil, ErrInvalidTransition
	}
	return s.GetByID(id)
}
