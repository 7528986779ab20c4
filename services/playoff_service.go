package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/brackets"
	"github.com/Maxxvall/OBNLIGA-sub002/config"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// ProgressionResult describes what one finished match changed in the
// playoff structure.
type ProgressionResult struct {
	SeriesID         int               `json:"series_id,omitempty"`
	SeriesFinished   bool              `json:"series_finished"`
	WinnerClubID     *int              `json:"winner_club_id,omitempty"`
	ManualResolution bool              `json:"manual_resolution,omitempty"`
	DeletedMatches   []int             `json:"deleted_matches,omitempty"`
	CreatedStages    []models.Stage    `json:"created_stages,omitempty"`
	CreatedSeries    int               `json:"created_series"`
	CreatedMatches   int               `json:"created_matches"`
	Cancelled        *SettlementResult `json:"cancelled,omitempty"`
}

func (r *ProgressionResult) BracketChanged() bool {
	return r.SeriesFinished || len(r.CreatedStages) > 0
}

type PlayoffService interface {
	OnMatchFinished(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, match *models.Match) (*ProgressionResult, error)
}

type playoffService struct {
	matchRepo  repositories.MatchRepository
	seriesRepo repositories.SeriesRepository
	seasonRepo repositories.SeasonRepository
	statsRepo  repositories.StatsRepository
	settlement SettlementService
	schedule   brackets.ScheduleRules
	points     config.PointsRules
	logger     *slog.Logger
	now        func() time.Time
}

func NewPlayoffService(
	matchRepo repositories.MatchRepository,
	seriesRepo repositories.SeriesRepository,
	seasonRepo repositories.SeasonRepository,
	statsRepo repositories.StatsRepository,
	settlement SettlementService,
	schedule brackets.ScheduleRules,
	points config.PointsRules,
	logger *slog.Logger,
) PlayoffService {
	return &playoffService{
		matchRepo:  matchRepo,
		seriesRepo: seriesRepo,
		seasonRepo: seasonRepo,
		statsRepo:  statsRepo,
		settlement: settlement,
		schedule:   schedule,
		points:     points,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *playoffService) OnMatchFinished(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, match *models.Match) (*ProgressionResult, error) {
	result := &ProgressionResult{}
	if match.SeriesID == nil {
		return result, nil
	}

	series, err := s.seriesRepo.LockForUpdate(ctx, exec, *match.SeriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %d: %w", *match.SeriesID, err)
	}
	result.SeriesID = series.ID

	if !series.IsFinished() {
		if err := s.decideSeries(ctx, exec, season, series, match, result); err != nil {
			return nil, err
		}
		if !series.IsFinished() {
			return result, nil
		}
	}

	if err := s.advance(ctx, exec, season, series.Stage, result); err != nil {
		return nil, err
	}
	return result, nil
}

// decideSeries finishes the series when a winner is known and removes its
// unplayed matches.
func (s *playoffService) decideSeries(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, series *models.MatchSeries, match *models.Match, result *ProgressionResult) error {
	matches, err := s.matchRepo.ListBySeries(ctx, exec, series.ID)
	if err != nil {
		return fmt.Errorf("load matches of series %d: %w", series.ID, err)
	}

	var winner int
	if series.PlannedMatches > 1 || season.SeriesFormat.CountsSeriesWins() {
		var decided bool
		winner, decided = seriesWinner(series, matches)
		if !decided {
			if allPlayed(matches) {
				s.logger.WarnContext(ctx, "series finished level, manual resolution required",
					slog.Int("match_id", match.ID),
					slog.Int("series_id", series.ID),
				)
				result.ManualResolution = true
			}
			return nil
		}
	} else {
		var ok bool
		winner, ok = match.WinnerClubID()
		if !ok {
			s.logger.WarnContext(ctx, "elimination match ended in a draw without a decider, manual resolution required",
				slog.Int("match_id", match.ID),
				slog.Int("series_id", series.ID),
			)
			result.ManualResolution = true
			return nil
		}
	}

	changed, err := s.seriesRepo.MarkFinished(ctx, exec, series.ID, winner)
	if err != nil {
		return err
	}
	series.Status = models.SeriesFinished
	series.WinnerClubID = intPtr(winner)
	result.WinnerClubID = intPtr(winner)
	result.SeriesFinished = changed

	unplayed := make([]int, 0)
	for _, m := range matches {
		if m.IsUnplayed() {
			unplayed = append(unplayed, m.ID)
		}
	}
	if len(unplayed) == 0 {
		return nil
	}
	cancelled, err := s.settlement.CancelForMatches(ctx, exec, unplayed, "series decided")
	if err != nil {
		return fmt.Errorf("cancel predictions of series %d: %w", series.ID, err)
	}
	if _, err := s.matchRepo.DeleteByIDs(ctx, exec, unplayed); err != nil {
		return fmt.Errorf("delete unplayed matches of series %d: %w", series.ID, err)
	}
	result.Cancelled = cancelled
	result.DeletedMatches = unplayed
	return nil
}

// seriesWinner counts wins over finished matches. The first club to reach
// the required number of wins takes the series.
func seriesWinner(series *models.MatchSeries, matches []*models.Match) (int, bool) {
	wins := make(map[int]int, 2)
	for _, m := range matches {
		if !m.IsFinished() {
			continue
		}
		if w, ok := m.WinnerClubID(); ok {
			wins[w]++
		}
	}
	required := series.RequiredWins()
	if wins[series.HomeClubID] >= required {
		return series.HomeClubID, true
	}
	if series.AwayClubID != nil && wins[*series.AwayClubID] >= required {
		return *series.AwayClubID, true
	}
	return 0, false
}

func allPlayed(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.IsFinished() {
			return false
		}
	}
	return len(matches) > 0
}

func (s *playoffService) advance(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, stage models.Stage, result *ProgressionResult) error {
	if stage.IsTerminal() {
		return nil
	}
	// Sibling series finishing in parallel transactions would each see the
	// other one unfinished without this lock, and nobody would advance.
	if _, err := s.seasonRepo.LockForUpdate(ctx, exec, season.ID); err != nil {
		return fmt.Errorf("lock season %d: %w", season.ID, err)
	}
	siblings, err := s.seriesRepo.ListByStage(ctx, exec, season.ID, stage)
	if err != nil {
		return fmt.Errorf("load series of stage %s: %w", stage, err)
	}
	for _, sr := range siblings {
		if !sr.IsFinished() {
			return nil
		}
	}

	if season.SeriesFormat == models.FormatGoldSilverCup {
		switch {
		case stage == models.StageQualification:
			return s.createCrossQuarterfinals(ctx, exec, season, siblings, result)
		case stage == models.StageQuarterfinal:
			return s.createGoldSilverSemifinals(ctx, exec, season, siblings, result)
		case stage.Base() == models.StageSemifinal && stage.Bracket() != models.BracketNone:
			return s.createNextRound(ctx, exec, season, stage, siblings, result)
		}
	}
	return s.createNextRound(ctx, exec, season, stage, siblings, result)
}

// createNextRound pairs the winners of a completed stage. A new final also
// gets a third-place series between the losers.
func (s *playoffService) createNextRound(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, stage models.Stage, siblings []*models.MatchSeries, result *ProgressionResult) error {
	bracket := stage.Bracket()
	participants, err := s.winners(ctx, exec, season, siblings)
	if err != nil {
		return err
	}
	if len(participants) < 2 {
		return nil
	}

	next := models.StageForParticipants(len(participants))
	if next.Order() >= stage.Base().Order() {
		s.logger.WarnContext(ctx, "next stage does not shrink the field, skipping progression",
			slog.Int("season_id", season.ID),
			slog.String("stage", string(stage)),
			slog.String("next_stage", string(next)),
		)
		return nil
	}
	next = next.InBracket(bracket)

	pairings, err := brackets.Pair(participants)
	if err != nil {
		return err
	}
	start, err := s.stageStart(ctx, exec, season.ID)
	if err != nil {
		return err
	}
	created, err := s.createStage(ctx, exec, season, next, bracket, pairings, start, result)
	if err != nil || !created || next.Base() != models.StageFinal {
		return err
	}
	return s.createThirdPlace(ctx, exec, season, bracket, siblings, start.Add(s.schedule.ThirdPlaceLag), result)
}

// winners lists the stage winners as participants of the next stage:
// by bracket slot for bracket formats, by table position otherwise.
func (s *playoffService) winners(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, siblings []*models.MatchSeries) ([]brackets.Participant, error) {
	if season.SeriesFormat.IsBracket() {
		out := make([]brackets.Participant, 0, len(siblings))
		for i, sr := range siblings {
			if sr.WinnerClubID == nil {
				continue
			}
			out = append(out, slotted(sr, i, *sr.WinnerClubID))
		}
		return out, nil
	}

	ids := make([]int, 0, len(siblings))
	for _, sr := range siblings {
		if sr.WinnerClubID != nil {
			ids = append(ids, *sr.WinnerClubID)
		}
	}
	standings, err := s.statsRepo.ListClubSeasonStats(ctx, exec, season.ID)
	if err != nil {
		return nil, fmt.Errorf("load standings of season %d: %w", season.ID, err)
	}
	return brackets.SeedByStandings(ids, standings), nil
}

func slotted(sr *models.MatchSeries, index, clubID int) brackets.Unseeded {
	slot := index + 1
	if sr.BracketSlot != nil {
		slot = *sr.BracketSlot
	}
	return brackets.Unseeded{Slot: slot, ClubID: clubID, Seed: sr.SeedOf(clubID)}
}

func (s *playoffService) createThirdPlace(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, bracket models.BracketType, siblings []*models.MatchSeries, start time.Time, result *ProgressionResult) error {
	losers := make([]brackets.Participant, 0, 2)
	for i, sr := range siblings {
		if loser, ok := sr.LoserClubID(); ok {
			losers = append(losers, slotted(sr, i, loser))
		}
	}
	if len(losers) < 2 {
		return nil
	}
	pairings, err := brackets.Pair(losers)
	if err != nil {
		return err
	}
	_, err = s.createStage(ctx, exec, season, models.StageThirdPlace.InBracket(bracket), bracket, pairings[:1], start, result)
	return err
}

func (s *playoffService) createCrossQuarterfinals(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, siblings []*models.MatchSeries, result *ProgressionResult) error {
	qualifiers := make(map[int]int, len(siblings))
	for i, sr := range siblings {
		if sr.WinnerClubID != nil {
			qualifiers[slotted(sr, i, *sr.WinnerClubID).Slot] = *sr.WinnerClubID
		}
	}

	groups, err := s.seasonRepo.ListGroups(ctx, exec, season.ID)
	if err != nil {
		return fmt.Errorf("load groups of season %d: %w", season.ID, err)
	}
	tables := make(map[string][]*models.ClubSeasonStats, len(groups))
	for _, g := range groups {
		matches, err := s.matchRepo.ListFinishedByGroup(ctx, exec, g.ID)
		if err != nil {
			return fmt.Errorf("load matches of group %s: %w", g.Label, err)
		}
		tables[g.Label] = computeClubSeasonStats(season.ID, nil, matches, s.points)
	}

	pairings, err := brackets.CrossBracket(brackets.GroupWinners(tables), qualifiers)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot build cup quarterfinals, manual resolution required",
			slog.Int("season_id", season.ID),
			slog.Any("error", err),
		)
		result.ManualResolution = true
		return nil
	}
	start, err := s.stageStart(ctx, exec, season.ID)
	if err != nil {
		return err
	}
	_, err = s.createStage(ctx, exec, season, models.StageQuarterfinal, models.BracketNone, pairings, start, result)
	return err
}

func (s *playoffService) createGoldSilverSemifinals(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, siblings []*models.MatchSeries, result *ProgressionResult) error {
	results := make([]brackets.SlotResult, 0, len(siblings))
	for i, sr := range siblings {
		if sr.WinnerClubID == nil {
			continue
		}
		winner := slotted(sr, i, *sr.WinnerClubID)
		r := brackets.SlotResult{Slot: winner.Slot, Winner: winner}
		if loser, ok := sr.LoserClubID(); ok {
			r.Loser = slotted(sr, i, loser)
		}
		results = append(results, r)
	}
	gold, silver := brackets.SplitQuarterfinals(results)

	start, err := s.stageStart(ctx, exec, season.ID)
	if err != nil {
		return err
	}
	for _, b := range []struct {
		bracket      models.BracketType
		participants []brackets.Participant
	}{
		{models.BracketGold, gold},
		{models.BracketSilver, silver},
	} {
		if len(b.participants) < 2 {
			continue
		}
		pairings, err := brackets.Pair(b.participants)
		if err != nil {
			return err
		}
		if _, err := s.createStage(ctx, exec, season, models.StageSemifinal.InBracket(b.bracket), b.bracket, pairings, start, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *playoffService) stageStart(ctx context.Context, exec repositories.SQLExecutor, seasonID int) (time.Time, error) {
	latest, err := s.matchRepo.LatestStartTime(ctx, exec, seasonID)
	if err != nil {
		return time.Time{}, err
	}
	var last time.Time
	if latest != nil {
		last = *latest
	}
	return s.schedule.StageStart(last, s.now().UTC()), nil
}

// createStage persists the series and matches of a new stage. It reports
// false without writing anything when the stage already exists.
func (s *playoffService) createStage(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, stage models.Stage, bracket models.BracketType, pairings []brackets.Pairing, start time.Time, result *ProgressionResult) (bool, error) {
	exists, err := s.seriesRepo.ExistsStage(ctx, exec, season.ID, stage)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	round, err := s.ensureRound(ctx, exec, season.ID, string(stage))
	if err != nil {
		return false, err
	}

	planned := season.PlannedMatchesPerSeries()
	for _, p := range pairings {
		series := &models.MatchSeries{
			SeasonID:       season.ID,
			Stage:          stage,
			HomeClubID:     p.Home.Club(),
			HomeSeed:       brackets.SeedOf(p.Home),
			BracketSlot:    intPtr(p.Slot),
			BracketType:    bracket,
			PlannedMatches: planned,
		}
		if p.IsBye() {
			series.Status = models.SeriesFinished
			series.WinnerClubID = intPtr(p.Home.Club())
			if err := s.seriesRepo.Create(ctx, exec, series); err != nil {
				return false, fmt.Errorf("create bye series in %s: %w", stage, err)
			}
			result.CreatedSeries++
			continue
		}

		series.AwayClubID = intPtr(p.Away.Club())
		series.AwaySeed = brackets.SeedOf(p.Away)
		if err := s.seriesRepo.Create(ctx, exec, series); err != nil {
			return false, fmt.Errorf("create series in %s: %w", stage, err)
		}
		result.CreatedSeries++

		fixtures := brackets.Fixtures(p, planned)
		kickoffs := s.schedule.KickoffTimes(start, fixtures)
		for i, f := range fixtures {
			m := &models.Match{
				SeasonID:   intPtr(season.ID),
				RoundID:    intPtr(round.ID),
				SeriesID:   intPtr(series.ID),
				HomeClubID: f.HomeClubID,
				AwayClubID: f.AwayClubID,
				Status:     models.MatchStatusScheduled,
				StartTime:  kickoffs[i],
			}
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return false, fmt.Errorf("create match of series %d: %w", series.ID, err)
			}
			result.CreatedMatches++
		}
	}

	result.CreatedStages = append(result.CreatedStages, stage)
	s.logger.InfoContext(ctx, "playoff stage created",
		slog.Int("season_id", season.ID),
		slog.String("stage", string(stage)),
		slog.Int("series", len(pairings)),
		slog.Time("start", start),
	)
	return true, nil
}

func (s *playoffService) ensureRound(ctx context.Context, exec repositories.SQLExecutor, seasonID int, label string) (*models.SeasonRound, error) {
	round, err := s.seasonRepo.GetRoundByLabel(ctx, exec, seasonID, label)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, repositories.ErrRoundNotFound) {
		return nil, err
	}
	round = &models.SeasonRound{SeasonID: seasonID, Label: label, IsPlayoff: true}
	if err := s.seasonRepo.CreateRound(ctx, exec, round); err != nil {
		return nil, fmt.Errorf("create round %q: %w", label, err)
	}
	return round, nil
}
