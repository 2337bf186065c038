// Package session holds bearer sessions minted after magic-token exchange.
//
// Sessions use a sliding idle window rather than an absolute lifetime: every
// successful validation refreshes last_access, and a session dies only after
// 24 hours without use. Two backends implement Store: an in-memory map for
// single-process deployments, and a SQLite table for deployments that need
// sessions to survive restarts.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// IdleTimeout is how long a session survives without being used.
const IdleTimeout = 24 * time.Hour

// Store is the session repository. Validate returns (nil, nil) for unknown
// or idle-expired tokens and refreshes last_access on success.
type Store interface {
	Create(userID int64) (*Session, error)
	Validate(token string) (*Session, error)
	Delete(token string) error
	PurgeExpired() (int64, error)
}

// Session is a server-held bearer credential.
type Session struct {
	Token      string    `json:"token"`
	UserID     int64     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// newToken returns 32 random bytes hex-encoded (64 characters).
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
