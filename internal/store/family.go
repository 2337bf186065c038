package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	var parentID sql.NullInt64

	err := scanner.Scan(&f.ID, &f.Name, &parentID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		f.ParentID = &parentID.Int64
	}
	return &f, nil
}

const familyCols = `id, name, parent_id, created_at, updated_at`

// Create inserts a family with no primary parent yet. Signup back-fills the
// parent reference via SetParent once the first parent user exists.
func (s *FamilyStore) Create(name string) (*model.Family, error) {
	result, err := s.db.Exec(`INSERT INTO families (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// SetParent back-fills the primary parent reference.
func (s *FamilyStore) SetParent(id, parentID int64) error {
	_, err := s.db.Exec(
		`UPDATE families SET parent_id = ?, updated_at = datetime('now') WHERE id = ?`,
		parentID, id,
	)
	if err != nil {
		return fmt.Errorf("set family parent: %w", err)
	}
	return nil
}

func (s *FamilyStore) Update(id int64, name string) (*model.Family, error) {
	_, err := s.db.Exec(
		`UPDATE families SET name = ?, updated_at = datetime('now') WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM families WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}
