package models

import "time"

type UserRole string

const (
	RoleCompany   UserRole = "company"
	RoleRecruiter UserRole = "recruiter"
	RoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleCompany, RoleRecruiter, RoleAdmin:
		return true
	}
	return false
}

// from supabase auth
type User struct {
	ID           string    `json:"id"` // uuid
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	LastSignInAt time.Time `json:"last_sign_in_at"`
	Role         UserRole  `json:"role"`
}

// Viewer is the authenticated caller of an operation.
type Viewer struct {
	UserID string
	Role   UserRole
}
