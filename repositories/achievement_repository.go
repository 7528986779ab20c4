package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

type AchievementRepository interface {
	IncrementProgress(ctx context.Context, exec SQLExecutor, userID int, metric string, delta int) error
}

type postgresAchievementRepository struct {
	db *sql.DB
}

func NewPostgresAchievementRepository(db *sql.DB) AchievementRepository {
	return &postgresAchievementRepository{db: db}
}

func (r *postgresAchievementRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAchievementRepository) IncrementProgress(ctx context.Context, exec SQLExecutor, userID int, metric string, delta int) error {
	query := `
		INSERT INTO achievement_progress (user_id, metric, progress, unlocked_level, updated_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (user_id, metric) DO UPDATE
		SET progress = achievement_progress.progress + EXCLUDED.progress,
		    updated_at = NOW()`
	if _, err := r.getExecutor(exec).ExecContext(ctx, query, userID, metric, delta); err != nil {
		return fmt.Errorf("failed to increment %s for user %d: %w", metric, userID, err)
	}
	return nil
}
