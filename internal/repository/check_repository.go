package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// CheckRepository is the append-only store of check events. It is the single
// source of truth for the entry/exit alternation: the count and last-event
// queries must be read-after-write consistent with Create.
type CheckRepository interface {
	Create(ctx context.Context, check *domain.CheckEvent) error
	// LastForPair returns the most recent event between the two identities,
	// regardless of which side offered the credential. pgx.ErrNoRows when the
	// pair has no history.
	LastForPair(ctx context.Context, identityA, identityB string) (*domain.CheckEvent, error)
	// CountForPairSince counts events for the unordered pair from the given
	// instant onward.
	CountForPairSince(ctx context.Context, identityA, identityB string, since time.Time) (int, error)
	// ListForIdentitySince returns events where the identity participated,
	// newest first. Gate identities are matched on the offering side,
	// everyone else on the scanning side.
	ListForIdentitySince(ctx context.Context, identityID string, since time.Time, asOffering bool) ([]domain.CheckEvent, error)
}

type checkRepository struct {
	pool *pgxpool.Pool
}

// NewCheckRepository instantiates the Postgres-backed store.
func NewCheckRepository(pool *pgxpool.Pool) CheckRepository {
	return &checkRepository{pool: pool}
}

func (r *checkRepository) Create(ctx context.Context, check *domain.CheckEvent) error {
	const query = `
        INSERT INTO checks (correlation_id, offering_identity_id, scanning_identity_id, check_type)
        VALUES ($1,$2,$3,$4)
        RETURNING id, scan_time`
	return r.pool.QueryRow(ctx, query,
		check.CorrelationID,
		check.OfferingIdentityID,
		check.ScanningIdentityID,
		check.Type,
	).Scan(&check.ID, &check.ScanTime)
}

func (r *checkRepository) LastForPair(ctx context.Context, identityA, identityB string) (*domain.CheckEvent, error) {
	const query = `
        SELECT id, correlation_id, offering_identity_id, scanning_identity_id, check_type, scan_time
        FROM checks
        WHERE (offering_identity_id=$1 AND scanning_identity_id=$2)
           OR (offering_identity_id=$2 AND scanning_identity_id=$1)
        ORDER BY scan_time DESC
        LIMIT 1`

	var check domain.CheckEvent
	if err := r.pool.QueryRow(ctx, query, identityA, identityB).Scan(
		&check.ID,
		&check.CorrelationID,
		&check.OfferingIdentityID,
		&check.ScanningIdentityID,
		&check.Type,
		&check.ScanTime,
	); err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *checkRepository) CountForPairSince(ctx context.Context, identityA, identityB string, since time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM checks
        WHERE ((offering_identity_id=$1 AND scanning_identity_id=$2)
            OR (offering_identity_id=$2 AND scanning_identity_id=$1))
          AND scan_time >= $3`

	var count int
	if err := r.pool.QueryRow(ctx, query, identityA, identityB, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *checkRepository) ListForIdentitySince(ctx context.Context, identityID string, since time.Time, asOffering bool) ([]domain.CheckEvent, error) {
	column := "scanning_identity_id"
	if asOffering {
		column = "offering_identity_id"
	}
	query := `
        SELECT id, correlation_id, offering_identity_id, scanning_identity_id, check_type, scan_time
        FROM checks
        WHERE ` + column + `=$1 AND scan_time >= $2
        ORDER BY scan_time DESC`

	rows, err := r.pool.Query(ctx, query, identityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checks := []domain.CheckEvent{}
	for rows.Next() {
		var check domain.CheckEvent
		if err := rows.Scan(
			&check.ID,
			&check.CorrelationID,
			&check.OfferingIdentityID,
			&check.ScanningIdentityID,
			&check.Type,
			&check.ScanTime,
		); err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}
