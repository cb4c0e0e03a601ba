package domain

import "time"

// UserRole determines what a user may see and manage in the directory.
type UserRole string

const (
	RoleManager  UserRole = "MANAGER"
	RoleEmployee UserRole = "EMPLOYEE"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r UserRole) bool {
	return r == RoleManager || r == RoleEmployee
}

// User is the domain model for directory members. PasswordHash is never
// serialized to callers; the API layer projects users through dto.UserResponse.
type User struct {
	ID           string
	Name         string
	Role         UserRole
	Username     string
	PasswordHash string
	FacilityID   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
