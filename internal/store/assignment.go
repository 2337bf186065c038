package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	err := scanner.Scan(
		&a.ID, &a.FamilyID, &a.ChildID, &a.StartDate, &a.EndDate,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAssignmentChore(scanner interface{ Scan(...any) error }) (*model.AssignmentChore, error) {
	var ac model.AssignmentChore
	var completedOn sql.NullString

	err := scanner.Scan(&ac.ID, &ac.AssignmentID, &ac.ChoreID, &ac.Status, &completedOn, &ac.CreatedAt)
	if err != nil {
		return nil, err
	}

	if completedOn.Valid {
		ac.CompletedOn = &completedOn.String
	}
	return &ac, nil
}

const assignmentCols = `id, family_id, child_id, start_date, end_date, status, notes, created_at, updated_at`
const assignmentChoreCols = `id, assignment_id, chore_id, status, completed_on, created_at`

// Create inserts the assignment and its chore occurrence rows in one
// transaction.
func (s *AssignmentStore) Create(familyID, childID int64, startDate, endDate time.Time, notes string, seeds []recurrence.Seed) (*model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO assignments (family_id, child_id, start_date, end_date, status, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		familyID, childID, startDate.UTC(), endDate.UTC(), model.AssignmentStatusActive, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertSeeds(tx, id, seeds); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(id)
}

func insertSeeds(tx *sql.Tx, assignmentID int64, seeds []recurrence.Seed) error {
	for _, seed := range seeds {
		var day sql.NullString
		if seed.CompletedOn != nil {
			day = sql.NullString{String: *seed.CompletedOn, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO assignment_chores (assignment_id, chore_id, status, completed_on) VALUES (?, ?, ?, ?)`,
			assignmentID, seed.ChoreID, seed.Status, day,
		); err != nil {
			return fmt.Errorf("insert assignment chore: %w", err)
		}
	}
	return nil
}

// GetByID returns the assignment with its chore occurrence rows attached,
// or nil if absent.
func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}

	chores, err := s.listChores(id)
	if err != nil {
		return nil, err
	}
	a.Chores = chores
	return a, nil
}

func (s *AssignmentStore) listChores(assignmentID int64) ([]model.AssignmentChore, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentChoreCols+` FROM assignment_chores WHERE assignment_id = ? ORDER BY id ASC`,
		assignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignment chores: %w", err)
	}
	defer rows.Close()

	var chores []model.AssignmentChore
	for rows.Next() {
		ac, err := scanAssignmentChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment chore: %w", err)
		}
		chores = append(chores, *ac)
	}
	return chores, rows.Err()
}

func (s *AssignmentStore) ListByFamily(familyID int64) ([]model.Assignment, error) {
	return s.list(`SELECT `+assignmentCols+` FROM assignments WHERE family_id = ? ORDER BY start_date DESC`, familyID)
}

func (s *AssignmentStore) ListByChild(childID int64) ([]model.Assignment, error) {
	return s.list(`SELECT `+assignmentCols+` FROM assignments WHERE child_id = ? ORDER BY start_date DESC`, childID)
}

func (s *AssignmentStore) list(query string, arg int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (s *AssignmentStore) UpdateMeta(id int64, status, notes string) (*model.Assignment, error) {
	_, err := s.db.Exec(
		`UPDATE assignments SET status = ?, notes = ?, updated_at = datetime('now') WHERE id = ?`,
		status, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	return s.GetByID(id)
}

// ReplaceChores drops every occurrence row for the assignment and recreates
// them from seeds, in one transaction. Completion state does not survive;
// the regenerated rows all start pending.
func (s *AssignmentStore) ReplaceChores(id int64, seeds []recurrence.Seed) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM assignment_chores WHERE assignment_id = ?`, id); err != nil {
		return fmt.Errorf("delete assignment chores: %w", err)
	}

	if err := insertSeeds(tx, id, seeds); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE assignments SET updated_at = datetime('now') WHERE id = ?`, id); err != nil {
		return fmt.Errorf("touch assignment: %w", err)
	}
	return tx.Commit()
}

// GetChore returns one occurrence row scoped to its assignment, or nil.
func (s *AssignmentStore) GetChore(assignmentID, choreRowID int64) (*model.AssignmentChore, error) {
	row := s.db.QueryRow(
		`SELECT `+assignmentChoreCols+` FROM assignment_chores WHERE id = ? AND assignment_id = ?`,
		choreRowID, assignmentID,
	)
	ac, err := scanAssignmentChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment chore: %w", err)
	}
	return ac, nil
}

func (s *AssignmentStore) UpdateChoreStatus(choreRowID int64, status string) (*model.AssignmentChore, error) {
	_, err := s.db.Exec(
		`UPDATE assignment_chores SET status = ? WHERE id = ?`,
		status, choreRowID,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment chore status: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+assignmentChoreCols+` FROM assignment_chores WHERE id = ?`, choreRowID)
	ac, err := scanAssignmentChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment chore: %w", err)
	}
	return ac, nil
}

func (s *AssignmentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
