package authz

import (
	"github.com/spec-kit/org-directory/internal/domain"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

// Caller is the identity a directory operation runs as, derived per request
// from a verified credential. An empty FacilityID means the caller has no
// home facility.
type Caller struct {
	UserID     string
	Role       domain.UserRole
	FacilityID string
}

// CheckPermission decides whether the caller may perform an operation
// against users of targetRole. Rules are evaluated in order, first match
// wins. targetRole is nil for operations without a fixed target role.
//
// The function is pure: services must call it before any facility lookup or
// record query so a denial leaves no partial side effects.
func CheckPermission(callerRole domain.UserRole, callerFacilityID string, targetRole *domain.UserRole, mutating bool) error {
	if callerFacilityID == "" {
		return apperrors.NewForbidden("users that do not belong to any facility cannot see or manage other users")
	}

	if callerRole == domain.RoleEmployee {
		if targetRole != nil && *targetRole == domain.RoleManager {
			return apperrors.NewForbidden("employees cannot see or manage managers")
		}
		if mutating {
			return apperrors.NewForbidden("employees cannot manage users")
		}
	}

	return nil
}
