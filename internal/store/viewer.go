package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
)

type ViewerStore struct {
	db *sql.DB
}

func NewViewerStore(db *sql.DB) *ViewerStore {
	return &ViewerStore{db: db}
}

func scanViewer(scanner interface{ Scan(...any) error }) (*model.TaskViewer, error) {
	var v model.TaskViewer
	err := scanner.Scan(&v.ID, &v.SessionTaskID, &v.ParticipantID, &v.StartedViewingAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

const viewerCols = `id, session_task_id, participant_id, started_viewing_at`

// Upsert records that a participant has a task's detail view open. Re-opening
// refreshes the timestamp on the existing row rather than duplicating it.
func (s *ViewerStore) Upsert(sessionTaskID, participantID int64, now time.Time) (*model.TaskViewer, error) {
	_, err := s.db.Exec(
		`INSERT INTO task_viewers (session_task_id, participant_id, started_viewing_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (session_task_id, participant_id)
		 DO UPDATE SET started_viewing_at = excluded.started_viewing_at`,
		sessionTaskID, participantID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert viewer: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+viewerCols+` FROM task_viewers WHERE session_task_id = ? AND participant_id = ?`,
		sessionTaskID, participantID,
	)
	v, err := scanViewer(row)
	if err != nil {
		return nil, fmt.Errorf("get viewer: %w", err)
	}
	return v, nil
}

// Delete removes the viewing marker when the detail view closes.
func (s *ViewerStore) Delete(sessionTaskID, participantID int64) (*model.TaskViewer, error) {
	row := s.db.QueryRow(
		`SELECT `+viewerCols+` FROM task_viewers WHERE session_task_id = ? AND participant_id = ?`,
		sessionTaskID, participantID,
	)
	v, err := scanViewer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get viewer: %w", err)
	}

	if _, err := s.db.Exec(
		`DELETE FROM task_viewers WHERE session_task_id = ? AND participant_id = ?`,
		sessionTaskID, participantID,
	); err != nil {
		return nil, fmt.Errorf("delete viewer: %w", err)
	}
	return v, nil
}

// DeleteByParticipant clears all of a participant's viewing markers, used on
// connection teardown.
func (s *ViewerStore) DeleteByParticipant(participantID int64) ([]model.TaskViewer, error) {
	rows, err := s.db.Query(
		`SELECT `+viewerCols+` FROM task_viewers WHERE participant_id = ?`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list viewers by participant: %w", err)
	}
	defer rows.Close()

	var viewers []model.TaskViewer
	for rows.Next() {
		v, err := scanViewer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan viewer: %w", err)
		}
		viewers = append(viewers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM task_viewers WHERE participant_id = ?`, participantID); err != nil {
		return nil, fmt.Errorf("delete viewers by participant: %w", err)
	}
	return viewers, nil
}

func (s *ViewerStore) ListByTask(sessionTaskID int64) ([]model.TaskViewer, error) {
	rows, err := s.db.Query(
		`SELECT `+viewerCols+` FROM task_viewers WHERE session_task_id = ? ORDER BY started_viewing_at ASC`,
		sessionTaskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list viewers: %w", err)
	}
	defer rows.Close()

	var viewers []model.TaskViewer
	for rows.Next() {
		v, err := scanViewer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan viewer: %w", err)
		}
		viewers = append(viewers, *v)
	}
	return viewers, rows.Err()
}

// ListBySession returns every viewing marker on the session's board.
func (s *ViewerStore) ListBySession(sessionID int64) ([]model.TaskViewer, error) {
	rows, err := s.db.Query(
		`SELECT v.id, v.session_task_id, v.participant_id, v.started_viewing_at
		 FROM task_viewers v
		 JOIN session_tasks st ON st.id = v.session_task_id
		 WHERE st.session_id = ?
		 ORDER BY v.started_viewing_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list viewers by session: %w", err)
	}
	defer rows.Close()

	var viewers []model.TaskViewer
	for rows.Next() {
		v, err := scanViewer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan viewer: %w", err)
		}
		viewers = append(viewers, *v)
	}
	return viewers, rows.Err()
}
