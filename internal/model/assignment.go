package model

import "time"

const (
	AssignmentStatusActive    = "active"
	AssignmentStatusCompleted = "completed"
)

const (
	ChoreStatusPending   = "pending"
	ChoreStatusCompleted = "completed"
	ChoreStatusSkipped   = "skipped"
)

// Assignment is one child's chore plan for a single week. StartDate is always
// a Sunday; EndDate is the following Saturday.
type Assignment struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	ChildID   int64     `json:"child_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Chores []AssignmentChore `json:"chores,omitempty"`
}

// AssignmentChore is one tracked occurrence of a chore within an assignment.
// CompletedOn is nil for a non-recurring chore (one occurrence for the whole
// week) or a lowercase weekday tag for a recurring one.
type AssignmentChore struct {
	ID           int64     `json:"id"`
	AssignmentID int64     `json:"assignment_id"`
	ChoreID      int64     `json:"chore_id"`
	Status       string    `json:"status"`
	CompletedOn  *string   `json:"completed_on"`
	CreatedAt    time.Time `json:"created_at"`
}
