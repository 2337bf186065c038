package session

import (
	"database/sql"
	"fmt"
)

// SQLStore persists sessions in the sessions table so they survive process
// restarts and can be shared by multiple instances pointing at one database.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	err := scanner.Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.LastAccess)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionCols = `token, user_id, created_at, last_access`

func (s *SQLStore) Create(userID int64) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (token, user_id) VALUES (?, ?)`,
		token, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

func (s *SQLStore) Validate(token string) (*Session, error) {
	// Refresh first; the condition doubles as the idle check. Last-writer-wins
	// on last_access is fine, it only ever moves forward.
	result, err := s.db.Exec(
		`UPDATE sessions SET last_access = datetime('now') WHERE token = ? AND last_access > datetime('now', '-24 hours')`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Unknown or idle-expired; drop the stale row if one exists.
		if _, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token); err != nil {
			return nil, fmt.Errorf("delete stale session: %w", err)
		}
		return nil, nil
	}

	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE token = ?`, token)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *SQLStore) Delete(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) PurgeExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE last_access <= datetime('now', '-24 hours')`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
