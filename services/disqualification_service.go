package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/config"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

type DisqualificationResult struct {
	Advanced    int `json:"advanced"`
	Completed   int `json:"completed"`
	Created     int `json:"created"`
	Accumulated int `json:"accumulated"`
}

// DisqualificationService serves and issues suspensions for one finished
// match. Re-running it for the same match changes nothing.
type DisqualificationService interface {
	ProcessMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*DisqualificationResult, error)
}

type disqualificationService struct {
	matchRepo repositories.MatchRepository
	statsRepo repositories.StatsRepository
	dqRepo    repositories.DisqualificationRepository
	rules     config.DisciplineRules
	logger    *slog.Logger
}

func NewDisqualificationService(
	matchRepo repositories.MatchRepository,
	statsRepo repositories.StatsRepository,
	dqRepo repositories.DisqualificationRepository,
	rules config.DisciplineRules,
	logger *slog.Logger,
) DisqualificationService {
	return &disqualificationService{
		matchRepo: matchRepo,
		statsRepo: statsRepo,
		dqRepo:    dqRepo,
		rules:     rules,
		logger:    logger,
	}
}

func (s *disqualificationService) ProcessMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*DisqualificationResult, error) {
	result := &DisqualificationResult{}

	if err := s.advanceBans(ctx, exec, match, result); err != nil {
		return nil, err
	}
	if err := s.issueCardBans(ctx, exec, match, result); err != nil {
		return nil, err
	}
	if match.SeasonID != nil && s.rules.YellowThreshold > 0 {
		if err := s.issueAccumulatedBans(ctx, exec, match, result); err != nil {
			return nil, err
		}
	}

	if result.Created > 0 || result.Accumulated > 0 {
		s.logger.InfoContext(ctx, "disqualifications issued",
			slog.Int("match_id", match.ID),
			slog.Int("cards", result.Created),
			slog.Int("accumulated", result.Accumulated),
		)
	}
	return result, nil
}

func (s *disqualificationService) advanceBans(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, result *DisqualificationResult) error {
	active, err := s.dqRepo.ListActiveByClubs(ctx, exec, []int{match.HomeClubID, match.AwayClubID})
	if err != nil {
		return fmt.Errorf("load active bans for match %d: %w", match.ID, err)
	}
	sourceStarts := make(map[int]time.Time)
	for _, d := range active {
		before, err := s.kicksOffBeforeSource(ctx, exec, d, match, sourceStarts)
		if err != nil {
			return err
		}
		if before || !d.Advance(match.ID) {
			continue
		}
		if err := s.dqRepo.UpdateProgress(ctx, exec, d); err != nil {
			return fmt.Errorf("advance ban %d: %w", d.ID, err)
		}
		result.Advanced++
		if !d.IsActive {
			result.Completed++
		}
	}
	return nil
}

// kicksOffBeforeSource reports whether the match started no later than the
// one that produced the ban. Such a match never counts as served, even when
// it is finalized after the ban exists.
func (s *disqualificationService) kicksOffBeforeSource(ctx context.Context, exec repositories.SQLExecutor, d *models.Disqualification, match *models.Match, starts map[int]time.Time) (bool, error) {
	if d.SourceMatchID == nil {
		return false, nil
	}
	sourceID := *d.SourceMatchID
	start, ok := starts[sourceID]
	if !ok {
		source, err := s.matchRepo.GetByID(ctx, exec, sourceID)
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load source match %d of ban %d: %w", sourceID, d.ID, err)
		}
		start = source.StartTime
		starts[sourceID] = start
	}
	return !match.StartTime.After(start), nil
}

func (s *disqualificationService) issueCardBans(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, result *DisqualificationResult) error {
	events, err := s.matchRepo.ListEventsByMatch(ctx, exec, match.ID)
	if err != nil {
		return fmt.Errorf("load events of match %d: %w", match.ID, err)
	}

	for _, e := range events {
		var (
			reason   models.DisqualificationReason
			duration int
		)
		switch e.Type {
		case models.EventRedCard:
			reason, duration = models.ReasonRedCard, s.rules.RedCardBan
		case models.EventSecondYellowCard:
			reason, duration = models.ReasonSecondYellow, s.rules.SecondYellowBan
		default:
			continue
		}

		blocked, err := s.dqRepo.HasBlockingBan(ctx, exec, e.PersonID, reason, match.ID)
		if err != nil {
			return err
		}
		if blocked {
			continue
		}
		ban := &models.Disqualification{
			PersonID:           e.PersonID,
			ClubID:             e.ClubID,
			SeasonID:           match.SeasonID,
			SourceMatchID:      intPtr(match.ID),
			Reason:             reason,
			BanDurationMatches: duration,
		}
		if err := s.dqRepo.Create(ctx, exec, ban); err != nil {
			return err
		}
		result.Created++
	}
	return nil
}

// issueAccumulatedBans gives one ban per completed multiple of the yellow
// card threshold within the season.
func (s *disqualificationService) issueAccumulatedBans(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, result *DisqualificationResult) error {
	seasonID := *match.SeasonID
	rows, err := s.statsRepo.ListPlayerSeasonStats(ctx, exec, seasonID)
	if err != nil {
		return fmt.Errorf("load player stats of season %d: %w", seasonID, err)
	}

	yellows := make(map[int]int)
	clubOf := make(map[int]int)
	for _, r := range rows {
		yellows[r.PersonID] += r.YellowCards
		if match.InvolvesClub(r.ClubID) {
			clubOf[r.PersonID] = r.ClubID
		}
	}

	persons := make([]int, 0, len(clubOf))
	for personID := range clubOf {
		persons = append(persons, personID)
	}
	sort.Ints(persons)

	for _, personID := range persons {
		due := yellows[personID] / s.rules.YellowThreshold
		if due == 0 {
			continue
		}
		issued, err := s.dqRepo.CountBySeasonPersonReason(ctx, exec, seasonID, personID, models.ReasonAccumulatedCards)
		if err != nil {
			return err
		}
		if issued >= due {
			continue
		}
		blocked, err := s.dqRepo.HasBlockingBan(ctx, exec, personID, models.ReasonAccumulatedCards, match.ID)
		if err != nil {
			return err
		}
		if blocked {
			continue
		}
		ban := &models.Disqualification{
			PersonID:           personID,
			ClubID:             clubOf[personID],
			SeasonID:           match.SeasonID,
			SourceMatchID:      intPtr(match.ID),
			Reason:             models.ReasonAccumulatedCards,
			BanDurationMatches: s.rules.AccumulatedBan,
		}
		if err := s.dqRepo.Create(ctx, exec, ban); err != nil {
			return err
		}
		result.Accumulated++
	}
	return nil
}
