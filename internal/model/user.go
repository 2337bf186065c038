package model

import "time"

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	FamilyID    int64      `json:"family_id"`
	Birthdate   *time.Time `json:"birthdate"`
	CreatedBy   *int64     `json:"created_by"`
	LastLoginAt *time.Time `json:"last_login_at"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) IsParent() bool {
	return u.Role == RoleParent
}
