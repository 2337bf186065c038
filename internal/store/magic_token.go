package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type MagicTokenStore struct {
	db *sql.DB
}

func NewMagicTokenStore(db *sql.DB) *MagicTokenStore {
	return &MagicTokenStore{db: db}
}

func scanMagicToken(scanner interface{ Scan(...any) error }) (*model.MagicToken, error) {
	var mt model.MagicToken
	var usedAt sql.NullTime

	err := scanner.Scan(
		&mt.ID, &mt.Token, &mt.UserID, &mt.Purpose,
		&mt.ExpiresAt, &usedAt, &mt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		mt.UsedAt = &usedAt.Time
	}
	return &mt, nil
}

const magicTokenCols = `id, token, user_id, purpose, expires_at, used_at, created_at`

// generateToken returns 32 random bytes hex-encoded (64 characters).
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create issues a fresh single-use token for the user with the given
// time-to-live. Older pending tokens for the same user stay valid until they
// expire; every emailed link works once.
func (s *MagicTokenStore) Create(userID int64, purpose string, ttl time.Duration) (*model.MagicToken, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(ttl)

	result, err := s.db.Exec(
		`INSERT INTO magic_tokens (token, user_id, purpose, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, purpose, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert magic token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+magicTokenCols+` FROM magic_tokens WHERE id = ?`, id)
	return scanMagicToken(row)
}

// Consume atomically marks the token used and returns it. The conditional
// update serializes concurrent exchanges of the same token: exactly one
// caller sees the row, everyone else gets nil. Unknown, already-used, and
// expired tokens are indistinguishable here on purpose.
func (s *MagicTokenStore) Consume(token string) (*model.MagicToken, error) {
	result, err := s.db.Exec(
		`UPDATE magic_tokens SET used_at = datetime('now') WHERE token = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("consume magic token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	row := s.db.QueryRow(`SELECT `+magicTokenCols+` FROM magic_tokens WHERE token = ?`, token)
	mt, err := scanMagicToken(row)
	if err != nil {
		return nil, fmt.Errorf("get consumed magic token: %w", err)
	}
	return mt, nil
}

// GetByToken returns the token row regardless of state, or nil if absent.
func (s *MagicTokenStore) GetByToken(token string) (*model.MagicToken, error) {
	row := s.db.QueryRow(`SELECT `+magicTokenCols+` FROM magic_tokens WHERE token = ?`, token)
	mt, err := scanMagicToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get magic token: %w", err)
	}
	return mt, nil
}

// DeleteExpired removes tokens past their expiry. Used rows inside the expiry
// window are kept as an audit trail of successful logins.
func (s *MagicTokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM magic_tokens WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
