package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// IdentityRepository defines read access to persisted identities. The core
// protocol only reads identity records; lifecycle management lives elsewhere.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	GetPasswordHashByUsername(ctx context.Context, username string) (string, error)
	List(ctx context.Context, limit, offset int) ([]domain.Identity, error)
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `
        SELECT id, username, first_name, last_name, role, created_at, updated_at
        FROM identities WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *identityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	const query = `
        SELECT id, username, first_name, last_name, role, created_at, updated_at
        FROM identities WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *identityRepository) GetPasswordHashByUsername(ctx context.Context, username string) (string, error) {
	const query = `SELECT password_hash FROM identities WHERE username=$1`

	var hash string
	if err := r.pool.QueryRow(ctx, query, username).Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (r *identityRepository) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	const query = `
        SELECT id, username, first_name, last_name, role, created_at, updated_at
        FROM identities ORDER BY username LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0, limit)
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(
			&identity.ID,
			&identity.Username,
			&identity.FirstName,
			&identity.LastName,
			&identity.Role,
			&identity.CreatedAt,
			&identity.UpdatedAt,
		); err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

func (r *identityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var identity domain.Identity
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&identity.ID,
		&identity.Username,
		&identity.FirstName,
		&identity.LastName,
		&identity.Role,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}
