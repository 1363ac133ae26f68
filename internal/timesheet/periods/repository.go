package periods

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested period does not exist.
var ErrNotFound = errors.New("periods: not found")

// Repository provides persistence for calendar periods.
type Repository interface {
	// Resolve returns the period for (year, month), creating it on first use.
	Resolve(ctx context.Context, year, month int) (Period, error)
	// Find returns the period for (year, month) without creating it.
	Find(ctx context.Context, year, month int) (Period, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Resolve upserts the (year, month) row. The no-op DO UPDATE makes RETURNING
// yield the existing row on conflict, so concurrent first writes both succeed.
func (r *repository) Resolve(ctx context.Context, year, month int) (Period, error) {
	const query = `
INSERT INTO periods (year, month)
VALUES ($1, $2)
ON CONFLICT (year, month) DO UPDATE SET year = EXCLUDED.year
RETURNING id, year, month, created_at`
	var p Period
	err := r.pool.QueryRow(ctx, query, year, month).
		Scan(&p.ID, &p.Year, &p.Month, &p.CreatedAt)
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

// Find fetches an existing period.
func (r *repository) Find(ctx context.Context, year, month int) (Period, error) {
	const query = `SELECT id, year, month, created_at FROM periods WHERE year = $1 AND month = $2`
	var p Period
	err := r.pool.QueryRow(ctx, query, year, month).
		Scan(&p.ID, &p.Year, &p.Month, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}
