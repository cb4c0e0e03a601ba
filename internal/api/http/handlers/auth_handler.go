package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/org-directory/internal/api/dto"
	"github.com/spec-kit/org-directory/internal/auth"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/service"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

// AuthHandler exposes the unauthenticated login/signup endpoints plus the
// authenticated password change.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password are required", nil)
	}

	token, exp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{Token: token, ExpiresAt: exp})
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	fieldErrors := map[string]any{}
	if req.Username == "" {
		fieldErrors["username"] = "username is a required field"
	}
	if len(req.Password) < minPasswordLength {
		fieldErrors["password"] = "password must be at least 5 chars long"
	}
	if len(req.ConfirmPassword) < minPasswordLength {
		fieldErrors["confirmPassword"] = "confirmPassword must be at least 5 chars long"
	}
	if req.Name == "" {
		fieldErrors["name"] = "name is a required field"
	}
	if !domain.ValidRole(req.Role) {
		fieldErrors["role"] = "valid roles are [MANAGER, EMPLOYEE]"
	}
	if req.FacilityName == "" {
		fieldErrors["facilityName"] = "facilityName is a required field"
	}
	if len(fieldErrors) > 0 {
		return apperrors.NewValidationError("invalid payload", fieldErrors)
	}

	token, exp, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Role:            req.Role,
		FacilityName:    req.FacilityName,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AuthResponse{Token: token, ExpiresAt: exp})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < minPasswordLength {
		return apperrors.NewValidationError("currentPassword and a newPassword of at least 5 chars are required", nil)
	}

	if err := h.auth.ChangePassword(c.UserContext(), caller.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
