package store

import (
	"database/sql"
	"fmt"

	"github.com/dulbrich/wardclean/internal/model"
)

type WardTaskStore struct {
	db *sql.DB
}

func NewWardTaskStore(db *sql.DB) *WardTaskStore {
	return &WardTaskStore{db: db}
}

// WardTaskParams carries the editable catalog fields for create/update.
type WardTaskParams struct {
	Title        string
	Subtitle     string
	Instructions string
	Equipment    string
	Safety       string
	Color        string
	Priority     model.TaskPriority
	KidFriendly  bool
	Points       int
	Active       bool
}

func scanWardTask(scanner interface{ Scan(...any) error }) (*model.WardTask, error) {
	var t model.WardTask
	err := scanner.Scan(
		&t.ID, &t.WardID, &t.Title, &t.Subtitle, &t.Instructions, &t.Equipment,
		&t.Safety, &t.Color, &t.Priority, &t.KidFriendly, &t.Points, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const wardTaskCols = `id, ward_id, title, subtitle, instructions, equipment, safety, color, priority, kid_friendly, points, active, created_at, updated_at`

func (s *WardTaskStore) Create(wardID int64, p WardTaskParams) (*model.WardTask, error) {
	result, err := s.db.Exec(
		`INSERT INTO ward_tasks (ward_id, title, subtitle, instructions, equipment, safety, color, priority, kid_friendly, points, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wardID, p.Title, p.Subtitle, p.Instructions, p.Equipment, p.Safety,
		p.Color, string(p.Priority), p.KidFriendly, p.Points, p.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ward task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WardTaskStore) GetByID(id int64) (*model.WardTask, error) {
	row := s.db.QueryRow(`SELECT `+wardTaskCols+` FROM ward_tasks WHERE id = ?`, id)
	t, err := scanWardTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ward task: %w", err)
	}
	return t, nil
}

func (s *WardTaskStore) ListByWard(wardID int64, activeOnly bool) ([]model.WardTask, error) {
	query := `SELECT ` + wardTaskCols + ` FROM ward_tasks WHERE ward_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY CASE priority WHEN 'do_first' THEN 0 WHEN 'do_last' THEN 2 ELSE 1 END, title ASC`

	rows, err := s.db.Query(query, wardID)
	if err != nil {
		return nil, fmt.Errorf("list ward tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.WardTask
	for rows.Next() {
		t, err := scanWardTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ward task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *WardTaskStore) Update(id int64, p WardTaskParams) (*model.WardTask, error) {
	_, err := s.db.Exec(
		`UPDATE ward_tasks SET title = ?, subtitle = ?, instructions = ?, equipment = ?, safety = ?,
		 color = ?, priority = ?, kid_friendly = ?, points = ?, active = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		p.Title, p.Subtitle, p.Instructions, p.Equipment, p.Safety,
		p.Color, string(p.Priority), p.KidFriendly, p.Points, p.Active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update ward task: %w", err)
	}
	return s.GetByID(id)
}

func (s *WardTaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM ward_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ward task: %w", err)
	}
	return nil
}
