package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/org-directory/internal/domain"
)

const userColumns = "id, name, role, username, password_hash, facility_id, created_at, updated_at"

// UserDelta describes a partial update. Only non-nil fields are applied;
// omitted fields are never cleared.
type UserDelta struct {
	Username     *string
	PasswordHash *string
	Name         *string
	Role         *domain.UserRole
	FacilityID   *string
}

// Empty reports whether the delta changes nothing.
func (d UserDelta) Empty() bool {
	return d.Username == nil && d.PasswordHash == nil && d.Name == nil && d.Role == nil && d.FacilityID == nil
}

// UserRepository defines persistence access for directory users. The scoped
// methods filter by id, role and facility membership in one statement so a
// record outside the caller's visible set behaves exactly like a missing one.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	FindScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string) (*domain.User, error)
	DeleteScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string) error
	UpdateScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string, delta UserDelta) (*domain.User, error)
	ListByFacilities(ctx context.Context, role domain.UserRole, facilityIDs []string) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, role, username, password_hash, facility_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Role,
		user.Username,
		user.PasswordHash,
		user.FacilityID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1`, userColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username=$1`, userColumns)
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) FindScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string) (*domain.User, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM users
        WHERE id=$1 AND role=$2 AND facility_id = ANY($3)`, userColumns)

	return r.scanOne(r.pool.QueryRow(ctx, query, id, role, facilityIDs))
}

func (r *userRepository) DeleteScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string) error {
	const query = `
        DELETE FROM users
        WHERE id=$1 AND role=$2 AND facility_id = ANY($3)`

	cmd, err := r.pool.Exec(ctx, query, id, role, facilityIDs)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdateScoped(ctx context.Context, id string, role domain.UserRole, facilityIDs []string, delta UserDelta) (*domain.User, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{id, role, facilityIDs}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if delta.Username != nil {
		appendSet("username", *delta.Username)
	}
	if delta.PasswordHash != nil {
		appendSet("password_hash", *delta.PasswordHash)
	}
	if delta.Name != nil {
		appendSet("name", *delta.Name)
	}
	if delta.Role != nil {
		appendSet("role", *delta.Role)
	}
	if delta.FacilityID != nil {
		appendSet("facility_id", *delta.FacilityID)
	}

	query := fmt.Sprintf(`
        UPDATE users SET %s
        WHERE id=$1 AND role=$2 AND facility_id = ANY($3)
        RETURNING %s`, strings.Join(sets, ", "), userColumns)

	return r.scanOne(r.pool.QueryRow(ctx, query, args...))
}

func (r *userRepository) ListByFacilities(ctx context.Context, role domain.UserRole, facilityIDs []string) ([]domain.User, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM users
        WHERE role=$1 AND facility_id = ANY($2)`, userColumns)

	rows, err := r.pool.Query(ctx, query, role, facilityIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Role,
			&user.Username,
			&user.PasswordHash,
			&user.FacilityID,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.Username,
		&user.PasswordHash,
		&user.FacilityID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Pre-insert existence checks are racy; the constraint is the
// authority and its violation is translated to a conflict by the services.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
