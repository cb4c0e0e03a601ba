package service

import (
	"context"
	"errors"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/org-directory/internal/auth"
	"github.com/spec-kit/org-directory/internal/authz"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/hierarchy"
	"github.com/spec-kit/org-directory/internal/repository"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

// FacilityLocator selects a facility by exactly one of name or id.
type FacilityLocator struct {
	name string
	id   string
}

// ByName locates a facility by its globally unique name.
func ByName(name string) FacilityLocator { return FacilityLocator{name: name} }

// ByID locates a facility by id.
func ByID(id string) FacilityLocator { return FacilityLocator{id: id} }

// DirectoryService implements the role-agnostic user directory engine. Every
// operation checks permissions first, resolves the caller's visible closure,
// and runs a single storage query scoped to it. A user outside the closure is
// reported exactly like a missing one.
type DirectoryService struct {
	users      repository.UserRepository
	facilities repository.FacilityRepository
	resolver   *hierarchy.Resolver
	bcryptCost int
}

// DirectoryDependencies bundles collaborator requirements.
type DirectoryDependencies struct {
	UserRepo     repository.UserRepository
	FacilityRepo repository.FacilityRepository
	Resolver     *hierarchy.Resolver
}

// NewDirectoryService builds the service.
func NewDirectoryService(deps DirectoryDependencies, bcryptCost int) *DirectoryService {
	return &DirectoryService{
		users:      deps.UserRepo,
		facilities: deps.FacilityRepo,
		resolver:   deps.Resolver,
		bcryptCost: bcryptCost,
	}
}

// CreateUserInput describes a directory-create payload.
type CreateUserInput struct {
	Username     string
	Password     string
	Name         string
	FacilityName string
	Role         domain.UserRole
}

// UpdateUserInput carries the optional field deltas of a partial update.
// Nil fields are left untouched.
type UpdateUserInput struct {
	Username     *string
	Password     *string
	Name         *string
	Role         *domain.UserRole
	FacilityName *string
}

// GetUser returns a user of targetRole visible to the caller.
func (s *DirectoryService) GetUser(ctx context.Context, caller authz.Caller, targetRole domain.UserRole, userID string) (*domain.User, error) {
	if err := authz.CheckPermission(caller.Role, caller.FacilityID, &targetRole, false); err != nil {
		return nil, err
	}

	scope, err := s.resolver.Descendants(ctx, caller.FacilityID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindScoped(ctx, userID, targetRole, scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound(userID)
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user of targetRole visible to the caller.
func (s *DirectoryService) DeleteUser(ctx context.Context, caller authz.Caller, targetRole domain.UserRole, userID string) error {
	if err := authz.CheckPermission(caller.Role, caller.FacilityID, &targetRole, true); err != nil {
		return err
	}

	scope, err := s.resolver.Descendants(ctx, caller.FacilityID)
	if err != nil {
		return err
	}

	if err := s.users.DeleteScoped(ctx, userID, targetRole, scope); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userNotFound(userID)
		}
		return err
	}
	return nil
}

// CreateUser registers a user into a facility the caller may manage. The
// username conflict check runs before facility resolution, and the unique
// index remains the authority for concurrent registrations.
func (s *DirectoryService) CreateUser(ctx context.Context, caller authz.Caller, input CreateUserInput) (*domain.User, error) {
	if err := authz.CheckPermission(caller.Role, caller.FacilityID, nil, true); err != nil {
		return nil, err
	}

	if err := s.checkUsernameFree(ctx, input.Username, ""); err != nil {
		return nil, err
	}

	facility, _, err := s.validateFacility(ctx, caller.FacilityID, ByName(input.FacilityName))
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         input.Name,
		Role:         input.Role,
		Username:     input.Username,
		PasswordHash: hash,
		FacilityID:   facility.ID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, usernameConflict(input.Username)
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the provided deltas to a user of targetRole visible to
// the caller. When the facility changes, the validator's closure is reused
// for the update filter instead of resolving it twice.
func (s *DirectoryService) UpdateUser(ctx context.Context, caller authz.Caller, targetRole domain.UserRole, userID string, input UpdateUserInput) (*domain.User, error) {
	if err := authz.CheckPermission(caller.Role, caller.FacilityID, &targetRole, true); err != nil {
		return nil, err
	}

	if input.Username != nil {
		if err := s.checkUsernameFree(ctx, *input.Username, userID); err != nil {
			return nil, err
		}
	}

	delta := repository.UserDelta{
		Username: input.Username,
		Name:     input.Name,
		Role:     input.Role,
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		delta.PasswordHash = &hash
	}

	var scope []string
	if input.FacilityName != nil {
		facility, validatedScope, err := s.validateFacility(ctx, caller.FacilityID, ByName(*input.FacilityName))
		if err != nil {
			return nil, err
		}
		scope = validatedScope
		delta.FacilityID = &facility.ID
	} else {
		resolved, err := s.resolver.Descendants(ctx, caller.FacilityID)
		if err != nil {
			return nil, err
		}
		scope = resolved
	}

	user, err := s.users.UpdateScoped(ctx, userID, targetRole, scope, delta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, userNotFound(userID)
		}
		if repository.IsUniqueViolation(err) {
			return nil, usernameConflict(stringValue(input.Username))
		}
		return nil, err
	}
	return user, nil
}

// ListUsersForFacility lists users of targetRole in the given facility,
// optionally including its whole subtree. The facility itself must be
// visible to the caller.
func (s *DirectoryService) ListUsersForFacility(ctx context.Context, caller authz.Caller, targetRole domain.UserRole, facilityID string, includeDescendants bool) ([]domain.User, error) {
	if err := authz.CheckPermission(caller.Role, caller.FacilityID, &targetRole, false); err != nil {
		return nil, err
	}

	if _, _, err := s.validateFacility(ctx, caller.FacilityID, ByID(facilityID)); err != nil {
		return nil, err
	}

	scope := []string{facilityID}
	if includeDescendants {
		resolved, err := s.resolver.Descendants(ctx, facilityID)
		if err != nil {
			return nil, err
		}
		scope = resolved
	}

	return s.users.ListByFacilities(ctx, targetRole, scope)
}

// validateFacility resolves the locator and asserts the facility is inside
// the caller's visible closure. The closure is returned so the enclosing
// operation can reuse it without a second resolver call.
func (s *DirectoryService) validateFacility(ctx context.Context, callerFacilityID string, locator FacilityLocator) (*domain.Facility, []string, error) {
	var (
		facility *domain.Facility
		err      error
	)
	if locator.name != "" {
		facility, err = s.facilities.GetByName(ctx, locator.name)
	} else {
		facility, err = s.facilities.GetByID(ctx, locator.id)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("facility", locator.details())
		}
		return nil, nil, err
	}

	scope, err := s.resolver.Descendants(ctx, callerFacilityID)
	if err != nil {
		return nil, nil, err
	}

	if !slices.Contains(scope, facility.ID) {
		return nil, nil, apperrors.NewForbidden("caller is not allowed to see or manage users in the requested facility")
	}
	return facility, scope, nil
}

func (s *DirectoryService) checkUsernameFree(ctx context.Context, username, selfID string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if selfID != "" && existing.ID == selfID {
		return nil
	}
	return usernameConflict(username)
}

func (l FacilityLocator) details() map[string]any {
	if l.name != "" {
		return map[string]any{"facility_name": l.name}
	}
	return map[string]any{"facility_id": l.id}
}

func userNotFound(userID string) error {
	return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
}

func usernameConflict(username string) error {
	return apperrors.NewConflict("username already taken", map[string]any{"username": username})
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
