package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/org-directory/internal/domain"
	"github.com/spec-kit/org-directory/internal/repository"
)

// fakeFacilityRepo holds facilities in memory and resolves descendant
// closures by walking parent edges, mirroring what the recursive SQL query
// does against Postgres.
type fakeFacilityRepo struct {
	facilities []*domain.Facility

	getByNameCalls  int
	descendantCalls int
}

func (f *fakeFacilityRepo) Create(_ context.Context, facility *domain.Facility) error {
	f.facilities = append(f.facilities, facility)
	return nil
}

func (f *fakeFacilityRepo) GetByID(_ context.Context, id string) (*domain.Facility, error) {
	for _, facility := range f.facilities {
		if facility.ID == id {
			return facility, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeFacilityRepo) GetByName(_ context.Context, name string) (*domain.Facility, error) {
	f.getByNameCalls++
	for _, facility := range f.facilities {
		if facility.Name == name {
			return facility, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeFacilityRepo) DescendantIDs(_ context.Context, id string) ([]string, error) {
	f.descendantCalls++

	ids := []string{id}
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		for _, facility := range f.facilities {
			if facility.ParentID == nil {
				continue
			}
			for _, parent := range frontier {
				if *facility.ParentID == parent {
					ids = append(ids, facility.ID)
					next = append(next, facility.ID)
				}
			}
		}
		frontier = next
	}
	return ids, nil
}

func (f *fakeFacilityRepo) Count(_ context.Context) (int64, error) {
	return int64(len(f.facilities)), nil
}

// fakeUserRepo implements repository.UserRepository over a slice, applying
// the same id/role/facility-membership filters as the SQL implementation.
type fakeUserRepo struct {
	users []*domain.User

	createErr error
	lastDelta repository.UserDelta
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if user.ID == "" {
		user.ID = "user-" + user.Username
	}
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	for _, user := range f.users {
		if user.ID == id {
			user.PasswordHash = hash
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeUserRepo) FindScoped(_ context.Context, id string, role domain.UserRole, facilityIDs []string) (*domain.User, error) {
	user := f.findMatch(id, role, facilityIDs)
	if user == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) DeleteScoped(_ context.Context, id string, role domain.UserRole, facilityIDs []string) error {
	for i, user := range f.users {
		if user.ID == id && user.Role == role && contains(facilityIDs, user.FacilityID) {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdateScoped(_ context.Context, id string, role domain.UserRole, facilityIDs []string, delta repository.UserDelta) (*domain.User, error) {
	f.lastDelta = delta

	user := f.findMatch(id, role, facilityIDs)
	if user == nil {
		return nil, pgx.ErrNoRows
	}
	if delta.Username != nil {
		user.Username = *delta.Username
	}
	if delta.PasswordHash != nil {
		user.PasswordHash = *delta.PasswordHash
	}
	if delta.Name != nil {
		user.Name = *delta.Name
	}
	if delta.Role != nil {
		user.Role = *delta.Role
	}
	if delta.FacilityID != nil {
		user.FacilityID = *delta.FacilityID
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) ListByFacilities(_ context.Context, role domain.UserRole, facilityIDs []string) ([]domain.User, error) {
	result := []domain.User{}
	for _, user := range f.users {
		if user.Role == role && contains(facilityIDs, user.FacilityID) {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (f *fakeUserRepo) findMatch(id string, role domain.UserRole, facilityIDs []string) *domain.User {
	for _, user := range f.users {
		if user.ID == id && user.Role == role && contains(facilityIDs, user.FacilityID) {
			return user
		}
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
