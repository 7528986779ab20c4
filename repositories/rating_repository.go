package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/lib/pq"
)

type RatingRepository interface {
	RecalculateForUsers(ctx context.Context, exec SQLExecutor, userIDs []int) error
	ListTop(ctx context.Context, exec SQLExecutor, limit int) ([]*models.UserRating, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// RecalculateForUsers rebuilds the rating rows of the given users from
// their settled predictions and express bets.
func (r *postgresRatingRepository) RecalculateForUsers(ctx context.Context, exec SQLExecutor, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO user_ratings (user_id, total_points, settled_count, won_count, updated_at)
		SELECT u.user_id,
		       COALESCE(p.points, 0) + COALESCE(x.points, 0),
		       COALESCE(p.settled, 0) + COALESCE(x.settled, 0),
		       COALESCE(p.won, 0) + COALESCE(x.won, 0),
		       NOW()
		FROM unnest($1::int[]) AS u(user_id)
		LEFT JOIN (
		    SELECT user_id, SUM(COALESCE(awarded_points, 0)) AS points, COUNT(*) AS settled,
		           COUNT(*) FILTER (WHERE status = 'WON') AS won
		    FROM prediction_entries
		    WHERE status <> 'PENDING' AND user_id = ANY($1)
		    GROUP BY user_id
		) p ON p.user_id = u.user_id
		LEFT JOIN (
		    SELECT user_id, SUM(COALESCE(awarded_points, 0)) AS points, COUNT(*) AS settled,
		           COUNT(*) FILTER (WHERE status = 'WON') AS won
		    FROM express_bets
		    WHERE status <> 'PENDING' AND user_id = ANY($1)
		    GROUP BY user_id
		) x ON x.user_id = u.user_id
		ON CONFLICT (user_id) DO UPDATE
		SET total_points = EXCLUDED.total_points,
		    settled_count = EXCLUDED.settled_count,
		    won_count = EXCLUDED.won_count,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to recalculate ratings: %w", err)
	}
	return nil
}

func (r *postgresRatingRepository) ListTop(ctx context.Context, exec SQLExecutor, limit int) ([]*models.UserRating, error) {
	query := `
		SELECT user_id, total_points, settled_count, won_count, updated_at
		FROM user_ratings
		ORDER BY total_points DESC, won_count DESC, user_id
		LIMIT $1`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]*models.UserRating, 0)
	for rows.Next() {
		var ur models.UserRating
		if err := rows.Scan(&ur.UserID, &ur.TotalPoints, &ur.SettledCount, &ur.WonCount, &ur.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, &ur)
	}
	return ratings, rows.Err()
}
