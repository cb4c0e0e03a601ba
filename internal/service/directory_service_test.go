package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/org-directory/internal/authz"
	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/hierarchy"
	apperrors "github.com/spec-kit/org-directory/pkg/util"
)

// fixture tree: Root -> {A, B}, A -> C. The default caller is a manager
// homed at A, so their visible closure is {A, C}.
type directoryFixture struct {
	svc       *DirectoryService
	users     *fakeUserRepo
	facs      *fakeFacilityRepo
	caller    authz.Caller
	managerA  *domain.User
	employeeC *domain.User
	employeeB *domain.User
}

func newDirectoryFixture(t *testing.T) *directoryFixture {
	t.Helper()

	root := &domain.Facility{ID: "root", Name: "Head Office", Type: domain.FacilityTypeOffice}
	facA := &domain.Facility{ID: "a", Name: "North Region", Type: domain.FacilityTypeOffice, ParentID: &root.ID}
	facB := &domain.Facility{ID: "b", Name: "South Region", Type: domain.FacilityTypeOffice, ParentID: &root.ID}
	facC := &domain.Facility{ID: "c", Name: "Downtown Store", Type: domain.FacilityTypeStore, ParentID: &facA.ID}
	facs := &fakeFacilityRepo{facilities: []*domain.Facility{root, facA, facB, facC}}

	managerA := &domain.User{ID: "u-manager-a", Name: "Cara", Role: domain.RoleManager, Username: "cara", PasswordHash: "x", FacilityID: "a"}
	employeeC := &domain.User{ID: "u-employee-c", Name: "Eve", Role: domain.RoleEmployee, Username: "eve", PasswordHash: "x", FacilityID: "c"}
	employeeB := &domain.User{ID: "u-employee-b", Name: "Filip", Role: domain.RoleEmployee, Username: "filip", PasswordHash: "x", FacilityID: "b"}
	users := &fakeUserRepo{users: []*domain.User{managerA, employeeC, employeeB}}

	resolver := hierarchy.NewResolver(facs, nil, 0, nil)
	svc := NewDirectoryService(DirectoryDependencies{
		UserRepo:     users,
		FacilityRepo: facs,
		Resolver:     resolver,
	}, bcrypt.MinCost)

	return &directoryFixture{
		svc:       svc,
		users:     users,
		facs:      facs,
		caller:    authz.Caller{UserID: managerA.ID, Role: domain.RoleManager, FacilityID: "a"},
		managerA:  managerA,
		employeeC: employeeC,
		employeeB: employeeB,
	}
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "unexpected error kind: %v", err)
	return domainErr
}

func TestGetUser_InScope(t *testing.T) {
	fx := newDirectoryFixture(t)

	user, err := fx.svc.GetUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeC.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.employeeC.ID, user.ID)
	assert.Equal(t, "c", user.FacilityID)
}

func TestGetUser_OutsideScopeIndistinguishableFromMissing(t *testing.T) {
	fx := newDirectoryFixture(t)
	ctx := context.Background()

	// employeeB exists but is homed at B, outside the caller's closure {a, c}
	_, errOutside := fx.svc.GetUser(ctx, fx.caller, domain.RoleEmployee, fx.employeeB.ID)
	outside := requireDomainError(t, errOutside, "NOT_FOUND")

	_, errMissing := fx.svc.GetUser(ctx, fx.caller, domain.RoleEmployee, "no-such-user")
	missing := requireDomainError(t, errMissing, "NOT_FOUND")

	assert.Equal(t, missing.Message, outside.Message)
	assert.Equal(t, missing.HTTPStatus, outside.HTTPStatus)
}

func TestGetUser_WrongTargetRoleIsNotFound(t *testing.T) {
	fx := newDirectoryFixture(t)

	_, err := fx.svc.GetUser(context.Background(), fx.caller, domain.RoleManager, fx.employeeC.ID)
	requireDomainError(t, err, "NOT_FOUND")
}

func TestDirectory_DenialHappensBeforeAnyStorageAccess(t *testing.T) {
	fx := newDirectoryFixture(t)
	ctx := context.Background()

	employee := authz.Caller{UserID: "x", Role: domain.RoleEmployee, FacilityID: "a"}
	_, err := fx.svc.UpdateUser(ctx, employee, domain.RoleEmployee, fx.employeeC.ID, UpdateUserInput{})
	requireDomainError(t, err, "FORBIDDEN")

	homeless := authz.Caller{UserID: "x", Role: domain.RoleManager}
	_, err = fx.svc.GetUser(ctx, homeless, domain.RoleEmployee, fx.employeeC.ID)
	requireDomainError(t, err, "FORBIDDEN")

	assert.Zero(t, fx.facs.descendantCalls, "denied calls must not resolve closures")
	assert.Zero(t, fx.facs.getByNameCalls, "denied calls must not look up facilities")
}

func TestCreateUser_ConflictCheckedBeforeFacilityResolution(t *testing.T) {
	fx := newDirectoryFixture(t)

	_, err := fx.svc.CreateUser(context.Background(), fx.caller, CreateUserInput{
		Username:     "eve", // taken
		Password:     "secret",
		Name:         "Someone",
		FacilityName: "No Such Facility",
		Role:         domain.RoleEmployee,
	})
	requireDomainError(t, err, "CONFLICT")
	assert.Zero(t, fx.facs.getByNameCalls, "username conflict must precede facility lookup")
}

func TestCreateUser_Success(t *testing.T) {
	fx := newDirectoryFixture(t)

	user, err := fx.svc.CreateUser(context.Background(), fx.caller, CreateUserInput{
		Username:     "nina",
		Password:     "secret",
		Name:         "Nina",
		FacilityName: "Downtown Store",
		Role:         domain.RoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, "c", user.FacilityID)
	assert.Equal(t, domain.RoleEmployee, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")))
}

func TestCreateUser_FacilityOutsideCallerScope(t *testing.T) {
	fx := newDirectoryFixture(t)

	_, err := fx.svc.CreateUser(context.Background(), fx.caller, CreateUserInput{
		Username:     "nina",
		Password:     "secret",
		Name:         "Nina",
		FacilityName: "South Region", // exists, but outside {a, c}
		Role:         domain.RoleEmployee,
	})
	requireDomainError(t, err, "FORBIDDEN")
}

func TestCreateUser_UnknownFacilityIsNotFound(t *testing.T) {
	fx := newDirectoryFixture(t)

	_, err := fx.svc.CreateUser(context.Background(), fx.caller, CreateUserInput{
		Username:     "nina",
		Password:     "secret",
		Name:         "Nina",
		FacilityName: "Atlantis",
		Role:         domain.RoleEmployee,
	})
	requireDomainError(t, err, "NOT_FOUND")
}

func TestCreateUser_InsertRaceTranslatesUniqueViolation(t *testing.T) {
	fx := newDirectoryFixture(t)
	fx.users.createErr = &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}

	_, err := fx.svc.CreateUser(context.Background(), fx.caller, CreateUserInput{
		Username:     "nina",
		Password:     "secret",
		Name:         "Nina",
		FacilityName: "Downtown Store",
		Role:         domain.RoleEmployee,
	})
	requireDomainError(t, err, "CONFLICT")
}

func TestUpdateUser_PartialDeltaLeavesOmittedFieldsUntouched(t *testing.T) {
	fx := newDirectoryFixture(t)
	newName := "Eve Lindqvist"

	user, err := fx.svc.UpdateUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeC.ID, UpdateUserInput{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Nil(t, fx.users.lastDelta.Username)
	assert.Nil(t, fx.users.lastDelta.PasswordHash)
	assert.Nil(t, fx.users.lastDelta.Role)
	assert.Nil(t, fx.users.lastDelta.FacilityID)
	require.NotNil(t, fx.users.lastDelta.Name)

	assert.Equal(t, newName, user.Name)
	assert.Equal(t, "eve", user.Username)
	assert.Equal(t, "x", user.PasswordHash)
	assert.Equal(t, domain.RoleEmployee, user.Role)
	assert.Equal(t, "c", user.FacilityID)

	stored, err := fx.users.GetByID(context.Background(), fx.employeeC.ID)
	require.NoError(t, err)
	assert.Equal(t, "eve", stored.Username)
	assert.Equal(t, "x", stored.PasswordHash)
}

func TestUpdateUser_NewFacilityReusesValidatorClosure(t *testing.T) {
	fx := newDirectoryFixture(t)
	facilityName := "North Region"

	user, err := fx.svc.UpdateUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeC.ID, UpdateUserInput{
		FacilityName: &facilityName,
	})
	require.NoError(t, err)
	assert.Equal(t, "a", user.FacilityID)
	assert.Equal(t, 1, fx.facs.descendantCalls, "validator closure must be reused for the update filter")
}

func TestUpdateUser_UsernameTakenByAnotherUser(t *testing.T) {
	fx := newDirectoryFixture(t)
	taken := "filip"

	_, err := fx.svc.UpdateUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeC.ID, UpdateUserInput{
		Username: &taken,
	})
	requireDomainError(t, err, "CONFLICT")
}

func TestUpdateUser_KeepingOwnUsernameIsNotAConflict(t *testing.T) {
	fx := newDirectoryFixture(t)
	own := "eve"

	user, err := fx.svc.UpdateUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeC.ID, UpdateUserInput{
		Username: &own,
	})
	require.NoError(t, err)
	assert.Equal(t, "eve", user.Username)
}

func TestUpdateUser_OutsideScopeIsNotFound(t *testing.T) {
	fx := newDirectoryFixture(t)
	newName := "X"

	_, err := fx.svc.UpdateUser(context.Background(), fx.caller, domain.RoleEmployee, fx.employeeB.ID, UpdateUserInput{
		Name: &newName,
	})
	requireDomainError(t, err, "NOT_FOUND")
}

func TestDeleteUser(t *testing.T) {
	fx := newDirectoryFixture(t)
	ctx := context.Background()

	err := fx.svc.DeleteUser(ctx, fx.caller, domain.RoleEmployee, fx.employeeB.ID)
	requireDomainError(t, err, "NOT_FOUND")

	require.NoError(t, fx.svc.DeleteUser(ctx, fx.caller, domain.RoleEmployee, fx.employeeC.ID))
	_, err = fx.users.GetByID(ctx, fx.employeeC.ID)
	assert.Error(t, err)
}

func TestListUsersForFacility_ExactFacilityOnly(t *testing.T) {
	fx := newDirectoryFixture(t)

	users, err := fx.svc.ListUsersForFacility(context.Background(), fx.caller, domain.RoleEmployee, "a", false)
	require.NoError(t, err)
	assert.Empty(t, users, "no employees homed directly at A")
}

func TestListUsersForFacility_IncludeDescendants(t *testing.T) {
	fx := newDirectoryFixture(t)

	users, err := fx.svc.ListUsersForFacility(context.Background(), fx.caller, domain.RoleEmployee, "a", true)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, fx.employeeC.ID, users[0].ID)
}

func TestListUsersForFacility_TargetFacilityMustBeVisible(t *testing.T) {
	fx := newDirectoryFixture(t)
	ctx := context.Background()

	_, err := fx.svc.ListUsersForFacility(ctx, fx.caller, domain.RoleEmployee, "b", false)
	requireDomainError(t, err, "FORBIDDEN")

	_, err = fx.svc.ListUsersForFacility(ctx, fx.caller, domain.RoleEmployee, "missing", false)
	requireDomainError(t, err, "NOT_FOUND")
}
