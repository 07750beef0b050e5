package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dulbrich/wardclean/internal/identity"
	"github.com/dulbrich/wardclean/internal/model"
)

type SessionTaskStore struct {
	db *sql.DB
}

func NewSessionTaskStore(db *sql.DB) *SessionTaskStore {
	return &SessionTaskStore{db: db}
}

func scanSessionTask(scanner interface{ Scan(...any) error }) (*model.SessionTask, error) {
	var t model.SessionTask
	var assignedTo sql.NullInt64
	var assignedAt, completedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.SessionID, &t.TaskID, &t.Status, &assignedTo, &t.AssignedToTempUser,
		&assignedAt, &completedAt, &t.PointsAwarded, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	if assignedAt.Valid {
		at := assignedAt.Time
		t.AssignedAt = &at
	}
	if completedAt.Valid {
		ct := completedAt.Time
		t.CompletedAt = &ct
	}
	return &t, nil
}

const sessionTaskCols = `id, session_id, task_id, status, assigned_to, assigned_to_temp_user, assigned_at, completed_at, points_awarded, created_at, updated_at`

// BulkCreate copies catalog tasks into fresh todo rows for a session, all in
// one transaction so a failed bootstrap leaves no partial board. Inserts are
// keyed on UNIQUE(session_id, task_id), so re-running for tasks that already
// landed is a no-op rather than a duplicate.
func (s *SessionTaskStore) BulkCreate(sessionID int64, taskIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, taskID := range taskIDs {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO session_tasks (session_id, task_id) VALUES (?, ?)`,
			sessionID, taskID,
		); err != nil {
			return fmt.Errorf("insert session task: %w", err)
		}
	}
	return tx.Commit()
}

// CountBySession returns the number of task rows on a session's board.
func (s *SessionTaskStore) CountBySession(sessionID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM session_tasks WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count session tasks: %w", err)
	}
	return n, nil
}

func (s *SessionTaskStore) GetByID(id int64) (*model.SessionTask, error) {
	row := s.db.QueryRow(`SELECT `+sessionTaskCols+` FROM session_tasks WHERE id = ?`, id)
	t, err := scanSessionTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session task: %w", err)
	}
	return t, nil
}

const sessionTaskDetailQuery = `
	SELECT st.id, st.session_id, st.task_id, st.status, st.assigned_to, st.assigned_to_temp_user,
	       st.assigned_at, st.completed_at, st.points_awarded, st.created_at, st.updated_at,
	       wt.id, wt.ward_id, wt.title, wt.subtitle, wt.instructions, wt.equipment, wt.safety,
	       wt.color, wt.priority, wt.kid_friendly, wt.points, wt.active, wt.created_at, wt.updated_at,
	       COALESCE(u.display_name, p.display_name, ''),
	       COALESCE(u.avatar_url, p.avatar_url, '')
	FROM session_tasks st
	JOIN ward_tasks wt ON wt.id = st.task_id
	LEFT JOIN users u ON u.id = st.assigned_to
	LEFT JOIN session_participants p
	       ON p.session_id = st.session_id
	      AND st.assigned_to_temp_user != ''
	      AND p.temp_user_id = st.assigned_to_temp_user`

func scanSessionTaskDetail(scanner interface{ Scan(...any) error }) (*model.SessionTaskDetail, error) {
	var d model.SessionTaskDetail
	var assignedTo sql.NullInt64
	var assignedAt, completedAt sql.NullTime

	err := scanner.Scan(
		&d.ID, &d.SessionID, &d.TaskID, &d.Status, &assignedTo, &d.AssignedToTempUser,
		&assignedAt, &completedAt, &d.PointsAwarded, &d.CreatedAt, &d.UpdatedAt,
		&d.Task.ID, &d.Task.WardID, &d.Task.Title, &d.Task.Subtitle, &d.Task.Instructions,
		&d.Task.Equipment, &d.Task.Safety, &d.Task.Color, &d.Task.Priority,
		&d.Task.KidFriendly, &d.Task.Points, &d.Task.Active, &d.Task.CreatedAt, &d.Task.UpdatedAt,
		&d.AssigneeName, &d.AssigneeAvatar,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		d.AssignedTo = &assignedTo.Int64
	}
	if assignedAt.Valid {
		at := assignedAt.Time
		d.AssignedAt = &at
	}
	if completedAt.Valid {
		ct := completedAt.Time
		d.CompletedAt = &ct
	}
	return &d, nil
}

// GetDetail returns a task joined with its catalog entry and resolved
// assignee display info.
func (s *SessionTaskStore) GetDetail(id int64) (*model.SessionTaskDetail, error) {
	row := s.db.QueryRow(sessionTaskDetailQuery+` WHERE st.id = ?`, id)
	d, err := scanSessionTaskDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session task detail: %w", err)
	}
	return d, nil
}

func (s *SessionTaskStore) ListDetailsBySession(sessionID int64) ([]model.SessionTaskDetail, error) {
	rows, err := s.db.Query(
		sessionTaskDetailQuery+` WHERE st.session_id = ?
		 ORDER BY CASE wt.priority WHEN 'do_first' THEN 0 WHEN 'do_last' THEN 2 ELSE 1 END, st.id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session tasks: %w", err)
	}
	defer rows.Close()

	var details []model.SessionTaskDetail
	for rows.Next() {
		d, err := scanSessionTaskDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session task detail: %w", err)
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

// assigneeArgs returns the column values for the two assignee fields such
// that exactly one is set for the given identity.
func assigneeArgs(ident identity.Identity) (sql.NullInt64, string) {
	if ident.IsAuthenticated() {
		return sql.NullInt64{Int64: ident.UserID, Valid: true}, ""
	}
	return sql.NullInt64{}, ident.TempID
}

// assigneeGuard returns a WHERE fragment and arg matching tasks held by the
// given identity.
func assigneeGuard(ident identity.Identity) (string, any) {
	if ident.IsAuthenticated() {
		return `assigned_to = ?`, ident.UserID
	}
	return `assigned_to_temp_user = ?`, ident.TempID
}

// Claim performs the atomic todo → doing transition. The status guard in the
// WHERE clause is the sole arbiter of claim races: the loser sees zero rows
// updated and gets ErrAlreadyClaimed.
func (s *SessionTaskStore) Claim(id int64, ident identity.Identity, now time.Time) (*model.SessionTask, error) {
	userID, tempID := assigneeArgs(ident)
	result, err := s.db.Exec(
		`UPDATE session_tasks
		 SET status = ?, assigned_to = ?, assigned_to_temp_user = ?, assigned_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		string(model.TaskDoing), userID, tempID, now.UTC(), id, string(model.TaskTodo),
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
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
		return nil, ErrAlreadyClaimed
	}
	return s.GetByID(id)
}

// Complete performs doing → done for the current assignee, stamping the
// completion time and awarding the catalog points value.
func (s *SessionTaskStore) Complete(id int64, ident identity.Identity, now time.Time) (*model.SessionTask, error) {
	guard, guardArg := assigneeGuard(ident)
	result, err := s.db.Exec(
		`UPDATE session_tasks
		 SET status = ?, completed_at = ?,
		     points_awarded = (SELECT points FROM ward_tasks WHERE id = session_tasks.task_id),
		     updated_at = datetime('now')
		 WHERE id = ? AND status = ? AND `+guard,
		string(model.TaskDone), now.UTC(), id, string(model.TaskDoing), guardArg,
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, s.explainGuardMiss(id, model.TaskDoing)
	}
	return s.GetByID(id)
}

// Cancel performs doing → todo for the current assignee, clearing assignment.
func (s *SessionTaskStore) Cancel(id int64, ident identity.Identity) (*model.SessionTask, error) {
	guard, guardArg := assigneeGuard(ident)
	result, err := s.db.Exec(
		`UPDATE session_tasks
		 SET status = ?, assigned_to = NULL, assigned_to_temp_user = '', assigned_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND status = ? AND `+guard,
		string(model.TaskTodo), id, string(model.TaskDoing), guardArg,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, s.explainGuardMiss(id, model.TaskDoing)
	}
	return s.GetByID(id)
}

// explainGuardMiss distinguishes why a guarded update matched nothing: missing
// row, wrong status, or a different assignee.
func (s *SessionTaskStore) explainGuardMiss(id int64, wantStatus model.TaskStatus) error {
	existing, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}
	if existing.Status != wantStatus {
		return ErrInvalidTransition
	}
	return ErrNotAssignee
}

func (s *SessionTaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM session_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session task: %w", err)
	}
	return nil
}
