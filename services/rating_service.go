package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Maxxvall/OBNLIGA-sub002/cache"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// MaxLeaderboardLimit caps one leaderboard page.
const MaxLeaderboardLimit = 500

type RatingService interface {
	Recalculate(ctx context.Context, userIDs []int) error
	Leaderboard(ctx context.Context, limit int) ([]*models.UserRating, error)
}

type ratingService struct {
	ratingRepo repositories.RatingRepository
	cache      Cache
	logger     *slog.Logger
}

func NewRatingService(ratingRepo repositories.RatingRepository, c Cache, logger *slog.Logger) RatingService {
	if c == nil {
		c = noopCache{}
	}
	return &ratingService{ratingRepo: ratingRepo, cache: c, logger: logger}
}

func (s *ratingService) Recalculate(ctx context.Context, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := s.ratingRepo.RecalculateForUsers(ctx, nil, userIDs); err != nil {
		return fmt.Errorf("recalculate ratings of %d users: %w", len(userIDs), err)
	}
	keys := make([]string, 0, len(userIDs)+1)
	keys = append(keys, cache.LeaderboardKey)
	for _, id := range userIDs {
		keys = append(keys, cache.UserPredictionsKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate rating cache", slog.Any("error", err))
	}
	return nil
}

func (s *ratingService) Leaderboard(ctx context.Context, limit int) ([]*models.UserRating, error) {
	if limit <= 0 || limit > MaxLeaderboardLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidationFailed, MaxLeaderboardLimit)
	}
	return s.ratingRepo.ListTop(ctx, nil, limit)
}
