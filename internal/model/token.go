package model

import "time"

const (
	TokenPurposeLogin  = "login"
	TokenPurposeInvite = "invite"
)

// MagicToken is a single-use login credential delivered by email. Consumed
// tokens keep their row with used_at set; they are never deleted by the
// exchange path.
type MagicToken struct {
	ID        int64      `json:"id"`
	Token     string     `json:"token"`
	UserID    int64      `json:"user_id"`
	Purpose   string     `json:"purpose"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}
