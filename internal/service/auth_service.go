package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/org-directory/internal/auth"
	"github.com/spec-kit/org-directory/internal/config"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/repository"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

// AuthService coordinates login and signup flows. Signup performs no
// visibility check: there is no caller context yet, so any unauthenticated
// caller may register into any existing facility with any role.
type AuthService struct {
	users      repository.UserRepository
	facilities repository.FacilityRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	FacilityRepo repository.FacilityRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		facilities: deps.FacilityRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// SignupInput describes a registration payload.
type SignupInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Name            string
	Role            domain.UserRole
	FacilityName    string
}

// Login authenticates a user by username and password. Unknown usernames and
// wrong passwords yield the identical error to prevent username enumeration.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, invalidCredentials()
		}
		return "", time.Time{}, err
	}

	if err := auth.ComparePassword(user.PasswordHash, strings.TrimSpace(password)); err != nil {
		return "", time.Time{}, invalidCredentials()
	}

	return s.tokenMgr.GenerateToken(user)
}

// Signup registers a new user bound to an existing facility and returns a
// credential for it.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (string, time.Time, error) {
	if strings.TrimSpace(input.Password) != strings.TrimSpace(input.ConfirmPassword) {
		return "", time.Time{}, apperrors.NewValidationError("provided passwords do not match", nil)
	}

	if _, err := s.users.GetByUsername(ctx, input.Username); err == nil {
		return "", time.Time{}, usernameConflict(input.Username)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", time.Time{}, err
	}

	facility, err := s.facilities.GetByName(ctx, input.FacilityName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperrors.NewNotFound("facility", map[string]any{"facility_name": input.FacilityName})
		}
		return "", time.Time{}, err
	}

	hash, err := auth.HashPassword(strings.TrimSpace(input.Password), s.bcryptCost)
	if err != nil {
		return "", time.Time{}, err
	}

	user := &domain.User{
		Name:         input.Name,
		Role:         input.Role,
		Username:     strings.TrimSpace(input.Username),
		PasswordHash: hash,
		FacilityID:   facility.ID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return "", time.Time{}, usernameConflict(input.Username)
		}
		return "", time.Time{}, err
	}

	return s.tokenMgr.GenerateToken(user)
}

// ChangePassword verifies the caller's current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invalidCredentials()
		}
		return err
	}

	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return invalidCredentials()
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, user.ID, hash)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("invalid username or password")
}
