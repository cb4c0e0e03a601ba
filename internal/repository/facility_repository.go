package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/org-directory/internal/domain"
)

// FacilityRepository manages facility persistence. Facilities are seeded once
// and read-only afterwards, so there is no update or delete.
type FacilityRepository interface {
	Create(ctx context.Context, facility *domain.Facility) error
	GetByID(ctx context.Context, id string) (*domain.Facility, error)
	GetByName(ctx context.Context, name string) (*domain.Facility, error)
	DescendantIDs(ctx context.Context, id string) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type facilityRepository struct {
	pool *pgxpool.Pool
}

// NewFacilityRepository returns a Postgres-backed implementation.
func NewFacilityRepository(pool *pgxpool.Pool) FacilityRepository {
	return &facilityRepository{pool: pool}
}

func (r *facilityRepository) Create(ctx context.Context, facility *domain.Facility) error {
	const query = `
        INSERT INTO facilities (name, type, parent_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		facility.Name,
		facility.Type,
		facility.ParentID,
	).Scan(&facility.ID, &facility.CreatedAt, &facility.UpdatedAt)
}

func (r *facilityRepository) GetByID(ctx context.Context, id string) (*domain.Facility, error) {
	const query = `
        SELECT id, name, type, parent_id, created_at, updated_at
        FROM facilities WHERE id=$1`

	return r.scanOne(ctx, query, id)
}

func (r *facilityRepository) GetByName(ctx context.Context, name string) (*domain.Facility, error) {
	const query = `
        SELECT id, name, type, parent_id, created_at, updated_at
        FROM facilities WHERE name=$1`

	return r.scanOne(ctx, query, name)
}

// DescendantIDs returns the given facility id plus every id transitively
// reachable through parent_id edges, in a single recursive query. A missing
// root still yields the singleton set; existence is the caller's concern.
func (r *facilityRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	const query = `
        WITH RECURSIVE subtree AS (
            SELECT f.id FROM facilities f WHERE f.id = $1
            UNION ALL
            SELECT f.id FROM facilities f
            JOIN subtree s ON f.parent_id = s.id
        )
        SELECT id FROM subtree`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var facilityID string
		if err := rows.Scan(&facilityID); err != nil {
			return nil, err
		}
		ids = append(ids, facilityID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *facilityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM facilities`).Scan(&count)
	return count, err
}

func (r *facilityRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Facility, error) {
	var facility domain.Facility
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&facility.ID,
		&facility.Name,
		&facility.Type,
		&facility.ParentID,
		&facility.CreatedAt,
		&facility.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &facility, nil
}
