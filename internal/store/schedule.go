package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dulbrich/wardclean/internal/model"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.CleaningSchedule, error) {
	var cs model.CleaningSchedule
	err := scanner.Scan(&cs.ID, &cs.WardID, &cs.Name, &cs.Date, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

const scheduleCols = `id, ward_id, name, date, created_at, updated_at`

func (s *ScheduleStore) Create(wardID int64, name string, date time.Time) (*model.CleaningSchedule, error) {
	result, err := s.db.Exec(
		`INSERT INTO cleaning_schedules (ward_id, name, date) VALUES (?, ?, ?)`,
		wardID, name, date.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) GetByID(id int64) (*model.CleaningSchedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+` FROM cleaning_schedules WHERE id = ?`, id)
	cs, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return cs, nil
}

func (s *ScheduleStore) ListByWard(wardID int64) ([]model.CleaningSchedule, error) {
	rows, err := s.db.Query(
		`SELECT `+scheduleCols+` FROM cleaning_schedules WHERE ward_id = ? ORDER BY date ASC`,
		wardID,
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.CleaningSchedule
	for rows.Next() {
		cs, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *cs)
	}
	return schedules, rows.Err()
}

// NextOnOrAfter returns the ward's earliest schedule entry with date >= from,
// or nil if the ward has no upcoming entries.
func (s *ScheduleStore) NextOnOrAfter(wardID int64, from time.Time) (*model.CleaningSchedule, error) {
	row := s.db.QueryRow(
		`SELECT `+scheduleCols+` FROM cleaning_schedules
		 WHERE ward_id = ? AND date >= ?
		 ORDER BY date ASC LIMIT 1`,
		wardID, from.UTC(),
	)
	cs, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next schedule: %w", err)
	}
	return cs, nil
}

// ListBetween returns every schedule entry across all wards with date in
// [from, to), for reminder fan-out.
func (s *ScheduleStore) ListBetween(from, to time.Time) ([]model.CleaningSchedule, error) {
	rows, err := s.db.Query(
		`SELECT `+scheduleCols+` FROM cleaning_schedules WHERE date >= ? AND date < ? ORDER BY date ASC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list schedules between: %w", err)
	}
	defer rows.Close()

	var schedules []model.CleaningSchedule
	for rows.Next() {
		cs, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *cs)
	}
	return schedules, rows.Err()
}

func (s *ScheduleStore) Update(id int64, name string, date time.Time) (*model.CleaningSchedule, error) {
	_, err := s.db.Exec(
		`UPDATE cleaning_schedules SET name = ?, date = ?, updated_at = datetime('now') WHERE id = ?`,
		name, date.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM cleaning_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
