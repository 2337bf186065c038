package model

import "time"

type Chore struct {
	ID             int64     `json:"id"`
	FamilyID       int64     `json:"family_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Difficulty     string    `json:"difficulty"`
	IsRecurring    bool      `json:"is_recurring"`
	RecurrenceDays []string  `json:"recurrence_days"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
