package dto

import (
	"time"

	"github.com/spec-kit/org-directory/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest payload for registration.
type SignupRequest struct {
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	ConfirmPassword string          `json:"confirmPassword"`
	Name            string          `json:"name"`
	Role            domain.UserRole `json:"role"`
	FacilityName    string          `json:"facilityName"`
}

// ChangePasswordRequest payload for authenticated password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
