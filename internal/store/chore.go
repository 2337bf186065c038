package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var days string

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.Difficulty,
		&c.IsRecurring, &days, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(days), &c.RecurrenceDays); err != nil {
		return nil, fmt.Errorf("decode recurrence days: %w", err)
	}
	return &c, nil
}

const choreCols = `id, family_id, title, description, difficulty, is_recurring, recurrence_days, created_at, updated_at`

func encodeDays(days []string) (string, error) {
	if days == nil {
		days = []string{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("encode recurrence days: %w", err)
	}
	return string(b), nil
}

func (s *ChoreStore) Create(familyID int64, title, description, difficulty string, isRecurring bool, recurrenceDays []string) (*model.Chore, error) {
	days, err := encodeDays(recurrenceDays)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, difficulty, is_recurring, recurrence_days) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, title, description, difficulty, isRecurring, days,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// ListByIDs returns the chores matching ids within one family. Chores from
// other families are silently absent from the result, which lets callers
// detect cross-family references by comparing lengths.
func (s *ChoreStore) ListByIDs(familyID int64, ids []int64) ([]model.Chore, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + choreCols + ` FROM chores WHERE family_id = ? AND id IN (?`
	args := []any{familyID, ids[0]}
	for _, id := range ids[1:] {
		query += ",?"
		args = append(args, id)
	}
	query += `)`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores by ids: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, title, description, difficulty string, isRecurring bool, recurrenceDays []string) (*model.Chore, error) {
	days, err := encodeDays(recurrenceDays)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, difficulty = ?, is_recurring = ?, recurrence_days = ?, updated_at = datetime('now') WHERE id = ?`,
		title, description, difficulty, isRecurring, days, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
