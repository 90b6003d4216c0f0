package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rachelandtim/wedding-api/internal/domain"
)

type ScoreRepository interface {
	Create(ctx context.Context, name string, score int) (*domain.GameScore, error)
	Top(ctx context.Context, n int) ([]domain.GameScore, error)
	// RankOf returns the 1-based leaderboard rank a score lands at.
	RankOf(ctx context.Context, score int) (int, error)
}

type scoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) ScoreRepository {
	return &scoreRepository{pool: pool}
}

func (r *scoreRepository) Create(ctx context.Context, name string, score int) (*domain.GameScore, error) {
	const q = `INSERT INTO game_scores (name, score)
		VALUES ($1, $2)
		RETURNING id, name, score, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.GameScore
	err := r.pool.QueryRow(ctx, q, name, score).Scan(&s.ID, &s.Name, &s.Score, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scoreRepository) Top(ctx context.Context, n int) ([]domain.GameScore, error) {
	const q = `SELECT id, name, score, created_at
		FROM game_scores
		ORDER BY score DESC, created_at ASC
		LIMIT $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []domain.GameScore
	for rows.Next() {
		var s domain.GameScore
		if err := rows.Scan(&s.ID, &s.Name, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func (r *scoreRepository) RankOf(ctx context.Context, score int) (int, error) {
	const q = `SELECT count(*) FROM game_scores WHERE score > $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var above int
	if err := r.pool.QueryRow(ctx, q, score).Scan(&above); err != nil {
		return 0, err
	}
	return above + 1, nil
}
