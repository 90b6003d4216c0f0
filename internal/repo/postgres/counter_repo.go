package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CounterRepository interface {
	Get(ctx context.Context) (int64, error)
	Increment(ctx context.Context) (int64, error)
}

type counterRepository struct {
	pool *pgxpool.Pool
}

func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) Get(ctx context.Context) (int64, error) {
	const q = `SELECT count FROM visitor_counts WHERE id = 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int64
	err := r.pool.QueryRow(ctx, q).Scan(&count)
	return count, err
}

func (r *counterRepository) Increment(ctx context.Context) (int64, error) {
	// Single-row atomic increment; no read-modify-write from the caller.
	const q = `UPDATE visitor_counts SET count = count + 1 WHERE id = 1 RETURNING count`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int64
	err := r.pool.QueryRow(ctx, q).Scan(&count)
	return count, err
}
