package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/brackets"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// StandingRow is a ranked table row as published to readers.
type StandingRow struct {
	Position       int `json:"position"`
	GoalDifference int `json:"goal_difference"`
	*models.ClubSeasonStats
}

type SeasonStandings struct {
	SeasonID int           `json:"season_id"`
	Name     string        `json:"name"`
	Rows     []StandingRow `json:"rows"`
}

type StandingsService interface {
	Standings(ctx context.Context, seasonID int) (*SeasonStandings, error)
}

type standingsService struct {
	seasonRepo repositories.SeasonRepository
	statsRepo  repositories.StatsRepository
}

func NewStandingsService(seasonRepo repositories.SeasonRepository, statsRepo repositories.StatsRepository) StandingsService {
	return &standingsService{seasonRepo: seasonRepo, statsRepo: statsRepo}
}

func (s *standingsService) Standings(ctx context.Context, seasonID int) (*SeasonStandings, error) {
	season, err := s.seasonRepo.GetByID(ctx, nil, seasonID)
	if err != nil {
		if errors.Is(err, repositories.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	rows, err := s.statsRepo.ListClubSeasonStats(ctx, nil, seasonID)
	if err != nil {
		return nil, fmt.Errorf("load standings of season %d: %w", seasonID, err)
	}
	return rankStandings(season, rows), nil
}

func rankStandings(season *models.Season, rows []*models.ClubSeasonStats) *SeasonStandings {
	ranked := brackets.RankStandings(rows)
	out := &SeasonStandings{SeasonID: season.ID, Name: season.Name, Rows: make([]StandingRow, len(ranked))}
	for i, r := range ranked {
		out.Rows[i] = StandingRow{Position: i + 1, GoalDifference: r.GoalDifference(), ClubSeasonStats: r}
	}
	return out
}
