package model

import "time"

// Family groups users under one roof. ParentID points at the primary parent
// and is null only during the two-step signup window: the family row must
// exist before its first parent user can reference it.
type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
