package store

import (
	"database/sql"
	"fmt"

	"github.com/dulbrich/wardclean/internal/model"
)

type WardStore struct {
	db *sql.DB
}

func NewWardStore(db *sql.DB) *WardStore {
	return &WardStore{db: db}
}

func scanWard(scanner interface{ Scan(...any) error }) (*model.Ward, error) {
	var w model.Ward
	err := scanner.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const wardCols = `id, name, created_at, updated_at`

func (s *WardStore) Create(name string) (*model.Ward, error) {
	result, err := s.db.Exec(`INSERT INTO wards (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert ward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *WardStore) GetByID(id int64) (*model.Ward, error) {
	row := s.db.QueryRow(`SELECT `+wardCols+` FROM wards WHERE id = ?`, id)
	w, err := scanWard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ward: %w", err)
	}
	return w, nil
}

func (s *WardStore) Update(id int64, name string) (*model.Ward, error) {
	_, err := s.db.Exec(
		`UPDATE wards SET name = ?, updated_at = datetime('now') WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update ward: %w", err)
	}
	return s.GetByID(id)
}

func (s *WardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM wards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ward: %w", err)
	}
	return nil
}

// --- Membership methods ---

func scanMember(scanner interface{ Scan(...any) error }) (*model.WardMember, error) {
	var m model.WardMember
	err := scanner.Scan(&m.ID, &m.WardID, &m.UserID, &m.Role, &m.IsPrimary, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const memberCols = `id, ward_id, user_id, role, is_primary, created_at`

// AddMember enrolls a user in a ward, updating the role if already enrolled.
func (s *WardStore) AddMember(wardID, userID int64, role string) (*model.WardMember, error) {
	_, err := s.db.Exec(
		`INSERT INTO ward_members (ward_id, user_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (ward_id, user_id) DO UPDATE SET role = excluded.role`,
		wardID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ward member: %w", err)
	}
	return s.GetMember(wardID, userID)
}

func (s *WardStore) GetMember(wardID, userID int64) (*model.WardMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM ward_members WHERE ward_id = ? AND user_id = ?`,
		wardID, userID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ward member: %w", err)
	}
	return m, nil
}

func (s *WardStore) ListByUser(userID int64) ([]model.Ward, error) {
	rows, err := s.db.Query(
		`SELECT w.id, w.name, w.created_at, w.updated_at
		 FROM wards w
		 JOIN ward_members m ON m.ward_id = w.id
		 WHERE m.user_id = ?
		 ORDER BY m.is_primary DESC, w.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wards by user: %w", err)
	}
	defer rows.Close()

	var wards []model.Ward
	for rows.Next() {
		w, err := scanWard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ward: %w", err)
		}
		wards = append(wards, *w)
	}
	return wards, rows.Err()
}

// SetPrimary marks one ward as the user's primary; any previous primary is
// cleared in the same transaction.
func (s *WardStore) SetPrimary(userID, wardID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE ward_members SET is_primary = 0 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}
	result, err := tx.Exec(
		`UPDATE ward_members SET is_primary = 1 WHERE user_id = ? AND ward_id = ?`,
		userID, wardID,
	)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
