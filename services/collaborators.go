package services

import (
	"context"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/notify"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// Cache is the read-model cache refreshed after a finalization.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

type RatingRecalculator interface {
	Recalculate(ctx context.Context, userIDs []int) error
}

// AchievementTracker runs inside the finalization transaction.
type AchievementTracker interface {
	IncrementProgress(ctx context.Context, exec repositories.SQLExecutor, userID int, metric string, delta int) error
}

// TemplateRefresher regenerates prediction templates of upcoming matches.
// A nil seasonID refreshes every season.
type TemplateRefresher interface {
	RefreshUpcoming(ctx context.Context, seasonID *int) (int, error)
}

type Publisher = notify.Publisher

// StandingsSnapshot publishes a public copy of a season table.
type StandingsSnapshot interface {
	PutStandings(ctx context.Context, seasonID int, standings any) (string, error)
}

type noopCache struct{}

func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Invalidate(context.Context, ...string) error { return nil }
func (noopCache) InvalidatePrefix(context.Context, string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, notify.Message) error { return nil }

type noopRecalculator struct{}

func (noopRecalculator) Recalculate(context.Context, []int) error { return nil }

type noopRefresher struct{}

func (noopRefresher) RefreshUpcoming(context.Context, *int) (int, error) { return 0, nil }
