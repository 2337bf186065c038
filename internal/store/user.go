package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// ErrEmailTaken reports an insert that lost to the partial unique index on
// active emails. Callers that pre-check with GetByEmail still need this for
// the race where two inserts pass the check together.
var ErrEmailTaken = errors.New("email already registered")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var birthdate, lastLogin sql.NullTime
	var createdBy sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.FamilyID,
		&birthdate, &createdBy, &lastLogin, &u.Active,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if birthdate.Valid {
		u.Birthdate = &birthdate.Time
	}
	if createdBy.Valid {
		u.CreatedBy = &createdBy.Int64
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

const userCols = `id, email, name, role, family_id, birthdate, created_by, last_login_at, active, created_at, updated_at`

func (s *UserStore) Create(email, name, role string, familyID int64, birthdate *time.Time, createdBy *int64) (*model.User, error) {
	var bd sql.NullTime
	if birthdate != nil {
		bd = sql.NullTime{Time: *birthdate, Valid: true}
	}
	var cb sql.NullInt64
	if createdBy != nil {
		cb = sql.NullInt64{Int64: *createdBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, role, family_id, birthdate, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		email, name, role, familyID, bd, cb,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail returns the active user with the given email, or nil.
// Deactivated accounts are invisible to lookups by email.
func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ? AND active = 1`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByFamily(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? AND active = 1 ORDER BY role ASC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by family: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Update(id int64, name string, birthdate *time.Time) (*model.User, error) {
	var bd sql.NullTime
	if birthdate != nil {
		bd = sql.NullTime{Time: *birthdate, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE users SET name = ?, birthdate = ?, updated_at = datetime('now') WHERE id = ?`,
		name, bd, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

// TouchLastLogin records a successful login.
func (s *UserStore) TouchLastLogin(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET last_login_at = datetime('now'), updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a user. The row survives so history referencing it
// stays intact, but the account can no longer authenticate and its email is
// free for reuse.
func (s *UserStore) Deactivate(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET active = 0, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// Delete hard-deletes a user. Only test and admin tooling should reach for
// this; the application path is Deactivate.
func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
