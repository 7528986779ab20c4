package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Maxxvall/OBNLIGA-sub002/markets"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
	"github.com/shopspring/decimal"
)

const (
	defaultTemplateBasePoints = 10
	defaultTotalGoalsLine     = 2.5
	upcomingRefreshLimit      = 200
)

// MarketProbabilities is what a probability model knows about one match.
type MarketProbabilities struct {
	Outcome   map[models.Side]float64
	TotalLine float64
	Over      float64
}

// ProbabilityModel estimates outcome probabilities for scheduled matches.
type ProbabilityModel interface {
	Estimate(ctx context.Context, match *models.Match) (MarketProbabilities, error)
}

// FlatModel treats every outcome as equally likely.
type FlatModel struct {
	TotalLine float64
}

func (m FlatModel) Estimate(_ context.Context, _ *models.Match) (MarketProbabilities, error) {
	line := m.TotalLine
	if line <= 0 {
		line = defaultTotalGoalsLine
	}
	third := 1.0 / 3
	return MarketProbabilities{
		Outcome:   map[models.Side]float64{models.SideHome: third, models.SideDraw: third, models.SideAway: third},
		TotalLine: line,
		Over:      0.5,
	}, nil
}

type TemplateService interface {
	RefreshUpcoming(ctx context.Context, seasonID *int) (int, error)
}

type templateService struct {
	matchRepo      repositories.MatchRepository
	predictionRepo repositories.PredictionRepository
	model          ProbabilityModel
	basePoints     int
	logger         *slog.Logger
}

func NewTemplateService(
	matchRepo repositories.MatchRepository,
	predictionRepo repositories.PredictionRepository,
	model ProbabilityModel,
	logger *slog.Logger,
) TemplateService {
	if model == nil {
		model = FlatModel{}
	}
	return &templateService{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		model:          model,
		basePoints:     defaultTemplateBasePoints,
		logger:         logger,
	}
}

// RefreshUpcoming regenerates outcome and total-goals templates of
// scheduled matches. Manual templates are left alone. It returns the number
// of templates written; failures of single matches are joined.
func (s *templateService) RefreshUpcoming(ctx context.Context, seasonID *int) (int, error) {
	if seasonID != nil && *seasonID <= 0 {
		return 0, fmt.Errorf("%w: season id must be positive", ErrValidationFailed)
	}
	matches, err := s.matchRepo.ListUpcoming(ctx, nil, seasonID, upcomingRefreshLimit)
	if err != nil {
		return 0, fmt.Errorf("load upcoming matches: %w", err)
	}

	written := 0
	var errs []error
	for _, m := range matches {
		n, err := s.refreshMatch(ctx, m)
		written += n
		if err != nil {
			s.logger.WarnContext(ctx, "template refresh failed", slog.Int("match_id", m.ID), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("match %d: %w", m.ID, err))
		}
	}
	return written, errors.Join(errs...)
}

func (s *templateService) refreshMatch(ctx context.Context, m *models.Match) (int, error) {
	est, err := s.model.Estimate(ctx, m)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, t := range buildTemplates(m.ID, est, s.basePoints) {
		ok, err := s.predictionRepo.UpsertTemplate(ctx, nil, t)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func buildTemplates(matchID int, est MarketProbabilities, basePoints int) []*models.PredictionTemplate {
	outcome := []models.Choice{
		{Value: string(models.SideHome), Probability: est.Outcome[models.SideHome]},
		{Value: string(models.SideDraw), Probability: est.Outcome[models.SideDraw]},
		{Value: string(models.SideAway), Probability: est.Outcome[models.SideAway]},
	}
	line := est.TotalLine
	total := []models.Choice{
		{Value: markets.TotalChoiceValue(markets.SideOver, line), Probability: est.Over},
		{Value: markets.TotalChoiceValue(markets.SideUnder, line), Probability: 1 - est.Over},
	}

	one := decimal.NewFromInt(1)
	return []*models.PredictionTemplate{
		{
			MatchID:              matchID,
			MarketType:           models.MarketOutcome,
			Options:              models.OutcomeOptions{},
			Choices:              priceChoices(outcome, basePoints),
			BasePoints:           basePoints,
			DifficultyMultiplier: one,
		},
		{
			MatchID:              matchID,
			MarketType:           models.MarketTotalGoals,
			Options:              models.TotalGoalsOptions{Line: &line},
			Choices:              priceChoices(total, basePoints),
			BasePoints:           basePoints,
			DifficultyMultiplier: one,
		},
	}
}

// priceChoices sets points to max(1, round(base / (p × n))) so that an
// even market pays the base points on every choice.
func priceChoices(choices []models.Choice, basePoints int) []models.Choice {
	n := decimal.NewFromInt(int64(len(choices)))
	base := decimal.NewFromInt(int64(basePoints))
	for i := range choices {
		p := decimal.NewFromFloat(choices[i].Probability)
		points := basePoints
		if p.IsPositive() {
			points = int(base.Div(p.Mul(n)).Round(0).IntPart())
		}
		choices[i].Points = max(1, points)
	}
	return choices
}
