package dto

import (
	"github.com/spec-kit/org-directory/internal/domain"
)

// UserResponse is the external projection of a user. It deliberately has no
// password field.
type UserResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Role       domain.UserRole `json:"role"`
	Username   string          `json:"username"`
	FacilityID string          `json:"facilityId"`
}

// NewUserResponse projects a domain user for API responses.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Role:       user.Role,
		Username:   user.Username,
		FacilityID: user.FacilityID,
	}
}

// NewUserResponses projects a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, NewUserResponse(&users[i]))
	}
	return result
}

// CreateUserRequest payload for directory create.
type CreateUserRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	FacilityName string `json:"facilityName"`
}

// UpdateUserRequest payload for partial update. Absent fields stay unchanged.
type UpdateUserRequest struct {
	NewUsername     *string          `json:"newUsername"`
	NewPassword     *string          `json:"newPassword"`
	NewName         *string          `json:"newName"`
	NewRole         *domain.UserRole `json:"newRole"`
	NewFacilityName *string          `json:"newFacilityName"`
}
