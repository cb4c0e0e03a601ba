package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/org-directory/internal/api/dto"
	"github.com/spec-kit/org-directory/internal/auth"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/service"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

const minPasswordLength = 5

// idParam extracts a route parameter that must be a UUID. Malformed ids are
// rejected here so they never reach a uuid-typed query parameter.
func idParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperrors.NewValidationError("invalid payload", map[string]any{name: name + " must be a valid id"})
	}
	return raw, nil
}

// DirectoryHandler exposes the user directory for one target role. The
// employee and manager facades are two instances of this handler sharing the
// same role-agnostic service.
type DirectoryHandler struct {
	directory  *service.DirectoryService
	targetRole domain.UserRole
}

// NewEmployeesHandler builds the facade operating on employees.
func NewEmployeesHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, targetRole: domain.RoleEmployee}
}

// NewManagersHandler builds the facade operating on managers.
func NewManagersHandler(directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, targetRole: domain.RoleManager}
}

// Get handles GET /:userId.
func (h *DirectoryHandler) Get(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	user, err := h.directory.GetUser(c.UserContext(), caller, h.targetRole, userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /:userId.
func (h *DirectoryHandler) Delete(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	if err := h.directory.DeleteUser(c.UserContext(), caller, h.targetRole, userID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Create handles POST /.
func (h *DirectoryHandler) Create(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateUserRequest
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
	if req.Name == "" {
		fieldErrors["name"] = "name is a required field"
	}
	if req.FacilityName == "" {
		fieldErrors["facilityName"] = "facilityName is a required field"
	}
	if len(fieldErrors) > 0 {
		return apperrors.NewValidationError("invalid payload", fieldErrors)
	}

	user, err := h.directory.CreateUser(c.UserContext(), caller, service.CreateUserInput{
		Username:     req.Username,
		Password:     req.Password,
		Name:         req.Name,
		FacilityName: req.FacilityName,
		Role:         h.targetRole,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Update handles PATCH /:userId.
func (h *DirectoryHandler) Update(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	userID, err := idParam(c, "userId")
	if err != nil {
		return err
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	fieldErrors := map[string]any{}
	if req.NewUsername != nil && *req.NewUsername == "" {
		fieldErrors["newUsername"] = "newUsername must not be empty"
	}
	if req.NewPassword != nil && len(*req.NewPassword) < minPasswordLength {
		fieldErrors["newPassword"] = "newPassword must be at least 5 chars long"
	}
	if req.NewName != nil && *req.NewName == "" {
		fieldErrors["newName"] = "newName must not be empty"
	}
	if req.NewRole != nil && !domain.ValidRole(*req.NewRole) {
		fieldErrors["newRole"] = "valid roles are [MANAGER, EMPLOYEE]"
	}
	if req.NewFacilityName != nil && *req.NewFacilityName == "" {
		fieldErrors["newFacilityName"] = "newFacilityName must not be empty"
	}
	if len(fieldErrors) > 0 {
		return apperrors.NewValidationError("invalid payload", fieldErrors)
	}

	user, err := h.directory.UpdateUser(c.UserContext(), caller, h.targetRole, userID, service.UpdateUserInput{
		Username:     req.NewUsername,
		Password:     req.NewPassword,
		Name:         req.NewName,
		Role:         req.NewRole,
		FacilityName: req.NewFacilityName,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// ListForFacility handles GET /facility/:facilityId.
func (h *DirectoryHandler) ListForFacility(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	facilityID, err := idParam(c, "facilityId")
	if err != nil {
		return err
	}

	users, err := h.directory.ListUsersForFacility(
		c.UserContext(),
		caller,
		h.targetRole,
		facilityID,
		c.QueryBool("includeDescendants", false),
	)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(users))
}
