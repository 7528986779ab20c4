package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Maxxvall/OBNLIGA-sub002/config"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// AggregateResult summarizes one rebuild.
type AggregateResult struct {
	ClubRows    int `json:"club_rows"`
	PlayerRows  int `json:"player_rows"`
	CareerClubs int `json:"career_clubs"`
}

// AggregateService recomputes derived statistics from finished matches.
// Every rebuild replaces the full set for its scope.
type AggregateService interface {
	RebuildForMatch(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, match *models.Match) (*AggregateResult, error)
	RebuildClubSeasonStats(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, includePlayoffRounds bool) ([]*models.ClubSeasonStats, error)
	RebuildPlayerSeasonStats(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.PlayerSeasonStats, error)
	RebuildCareerStatsForClubs(ctx context.Context, exec repositories.SQLExecutor, clubIDs []int) error
}

type aggregateService struct {
	matchRepo  repositories.MatchRepository
	seasonRepo repositories.SeasonRepository
	statsRepo  repositories.StatsRepository
	points     config.PointsRules
	logger     *slog.Logger
}

func NewAggregateService(
	matchRepo repositories.MatchRepository,
	seasonRepo repositories.SeasonRepository,
	statsRepo repositories.StatsRepository,
	points config.PointsRules,
	logger *slog.Logger,
) AggregateService {
	return &aggregateService{
		matchRepo:  matchRepo,
		seasonRepo: seasonRepo,
		statsRepo:  statsRepo,
		points:     points,
		logger:     logger,
	}
}

func (s *aggregateService) RebuildForMatch(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, match *models.Match) (*AggregateResult, error) {
	clubRows, err := s.RebuildClubSeasonStats(ctx, exec, season, season.SeriesFormat.TableIncludesPlayoffs())
	if err != nil {
		return nil, err
	}
	playerRows, err := s.RebuildPlayerSeasonStats(ctx, exec, season.ID)
	if err != nil {
		return nil, err
	}

	clubs := intSet{}
	clubs.add(match.HomeClubID, match.AwayClubID)
	for _, row := range playerRows {
		clubs.add(row.ClubID)
	}
	careerClubs := clubs.sorted()
	if err := s.RebuildCareerStatsForClubs(ctx, exec, careerClubs); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "aggregates rebuilt",
		slog.Int("season_id", season.ID),
		slog.Int("club_rows", len(clubRows)),
		slog.Int("player_rows", len(playerRows)),
	)
	return &AggregateResult{ClubRows: len(clubRows), PlayerRows: len(playerRows), CareerClubs: len(careerClubs)}, nil
}

func (s *aggregateService) RebuildClubSeasonStats(ctx context.Context, exec repositories.SQLExecutor, season *models.Season, includePlayoffRounds bool) ([]*models.ClubSeasonStats, error) {
	matches, err := s.matchRepo.ListFinishedBySeason(ctx, exec, season.ID, includePlayoffRounds)
	if err != nil {
		return nil, fmt.Errorf("load finished matches of season %d: %w", season.ID, err)
	}
	participants, err := s.seasonRepo.ListParticipantClubIDs(ctx, exec, season.ID)
	if err != nil {
		return nil, fmt.Errorf("load participants of season %d: %w", season.ID, err)
	}

	rows := computeClubSeasonStats(season.ID, participants, matches, s.points)
	if err := s.statsRepo.ReplaceClubSeasonStats(ctx, exec, season.ID, rows); err != nil {
		return nil, fmt.Errorf("replace club stats of season %d: %w", season.ID, err)
	}
	return rows, nil
}

func (s *aggregateService) RebuildPlayerSeasonStats(ctx context.Context, exec repositories.SQLExecutor, seasonID int) ([]*models.PlayerSeasonStats, error) {
	events, err := s.matchRepo.ListEventsBySeason(ctx, exec, seasonID)
	if err != nil {
		return nil, fmt.Errorf("load events of season %d: %w", seasonID, err)
	}
	lineups, err := s.matchRepo.ListLineupsBySeason(ctx, exec, seasonID)
	if err != nil {
		return nil, fmt.Errorf("load lineups of season %d: %w", seasonID, err)
	}

	rows := computePlayerSeasonStats(seasonID, events, lineups)
	if err := s.statsRepo.ReplacePlayerSeasonStats(ctx, exec, seasonID, rows); err != nil {
		return nil, fmt.Errorf("replace player stats of season %d: %w", seasonID, err)
	}
	return rows, nil
}

func (s *aggregateService) RebuildCareerStatsForClubs(ctx context.Context, exec repositories.SQLExecutor, clubIDs []int) error {
	if len(clubIDs) == 0 {
		return nil
	}
	seasonRows, err := s.statsRepo.ListPlayerSeasonStatsByClubs(ctx, exec, clubIDs)
	if err != nil {
		return fmt.Errorf("load season stats for career rebuild: %w", err)
	}
	roster, err := s.statsRepo.ListRosterLinks(ctx, exec, clubIDs)
	if err != nil {
		return fmt.Errorf("load roster links for career rebuild: %w", err)
	}

	rows := computeCareerStats(seasonRows, roster)
	if err := s.statsRepo.ReplaceCareerStats(ctx, exec, clubIDs, rows); err != nil {
		return fmt.Errorf("replace career stats: %w", err)
	}
	return nil
}

// computeClubSeasonStats builds one table row per club that played or is a
// season participant, ordered by club id.
func computeClubSeasonStats(seasonID int, participants []int, matches []*models.Match, points config.PointsRules) []*models.ClubSeasonStats {
	table := make(map[int]*models.ClubSeasonStats)
	row := func(clubID int) *models.ClubSeasonStats {
		r, ok := table[clubID]
		if !ok {
			r = &models.ClubSeasonStats{SeasonID: seasonID, ClubID: clubID}
			table[clubID] = r
		}
		return r
	}
	for _, id := range participants {
		row(id)
	}

	for _, m := range matches {
		if !m.IsFinished() || m.IsFriendly {
			continue
		}
		home, away := row(m.HomeClubID), row(m.AwayClubID)
		home.Played++
		away.Played++
		home.GoalsFor += m.HomeScore
		home.GoalsAgainst += m.AwayScore
		away.GoalsFor += m.AwayScore
		away.GoalsAgainst += m.HomeScore

		switch m.Outcome() {
		case models.SideHome:
			home.Wins++
			home.Points += points.Win
			away.Losses++
			away.Points += points.Loss
		case models.SideAway:
			away.Wins++
			away.Points += points.Win
			home.Losses++
			home.Points += points.Loss
		default:
			home.Draws++
			away.Draws++
			home.Points += points.Draw
			away.Points += points.Draw
		}
	}

	rows := make([]*models.ClubSeasonStats, 0, len(table))
	for _, r := range table {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ClubID < rows[j].ClubID })
	return rows
}

type playerKey struct {
	personID int
	clubID   int
}

type playerTally struct {
	stats        *models.PlayerSeasonStats
	eventMatches map[int]struct{}
	lineups      map[int]struct{}
}

// computePlayerSeasonStats tallies events per (person, club). Matches
// played is the larger of distinct matches with an event and lineup
// appearances.
func computePlayerSeasonStats(seasonID int, events []*models.MatchEvent, lineups []*models.MatchLineup) []*models.PlayerSeasonStats {
	tallies := make(map[playerKey]*playerTally)
	tally := func(personID, clubID int) *playerTally {
		k := playerKey{personID: personID, clubID: clubID}
		t, ok := tallies[k]
		if !ok {
			t = &playerTally{
				stats:        &models.PlayerSeasonStats{SeasonID: seasonID, PersonID: personID, ClubID: clubID},
				eventMatches: make(map[int]struct{}),
				lineups:      make(map[int]struct{}),
			}
			tallies[k] = t
		}
		return t
	}

	for _, e := range events {
		t := tally(e.PersonID, e.ClubID)
		t.eventMatches[e.MatchID] = struct{}{}

		switch e.Type {
		case models.EventGoal:
			t.stats.Goals++
		case models.EventPenaltyGoal:
			t.stats.Goals++
			t.stats.PenaltyGoals++
		case models.EventAssist:
			t.stats.Assists++
		case models.EventYellowCard:
			t.stats.YellowCards++
		case models.EventRedCard, models.EventSecondYellowCard:
			t.stats.RedCards++
		}

		if e.SecondaryPersonID != nil && (e.Type == models.EventGoal || e.Type == models.EventPenaltyGoal) {
			assist := tally(*e.SecondaryPersonID, e.ClubID)
			assist.stats.Assists++
			assist.eventMatches[e.MatchID] = struct{}{}
		}
	}
	for _, l := range lineups {
		tally(l.PersonID, l.ClubID).lineups[l.MatchID] = struct{}{}
	}

	rows := make([]*models.PlayerSeasonStats, 0, len(tallies))
	for _, t := range tallies {
		t.stats.MatchesPlayed = max(len(t.eventMatches), len(t.lineups))
		rows = append(rows, t.stats)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClubID != rows[j].ClubID {
			return rows[i].ClubID < rows[j].ClubID
		}
		return rows[i].PersonID < rows[j].PersonID
	})
	return rows
}

// computeCareerStats sums season rows per (club, person) and adds zero rows
// for roster links without statistics.
func computeCareerStats(seasonRows []*models.PlayerSeasonStats, roster []models.RosterLink) []*models.PlayerClubCareerStats {
	careers := make(map[playerKey]*models.PlayerClubCareerStats)
	seasons := make(map[playerKey]map[int]struct{})
	career := func(personID, clubID int) (*models.PlayerClubCareerStats, playerKey) {
		k := playerKey{personID: personID, clubID: clubID}
		c, ok := careers[k]
		if !ok {
			c = &models.PlayerClubCareerStats{ClubID: clubID, PersonID: personID}
			careers[k] = c
			seasons[k] = make(map[int]struct{})
		}
		return c, k
	}

	for _, s := range seasonRows {
		c, k := career(s.PersonID, s.ClubID)
		seasons[k][s.SeasonID] = struct{}{}
		c.MatchesPlayed += s.MatchesPlayed
		c.Goals += s.Goals
		c.PenaltyGoals += s.PenaltyGoals
		c.Assists += s.Assists
		c.YellowCards += s.YellowCards
		c.RedCards += s.RedCards
	}
	for _, link := range roster {
		career(link.PersonID, link.ClubID)
	}

	rows := make([]*models.PlayerClubCareerStats, 0, len(careers))
	for k, c := range careers {
		c.Seasons = len(seasons[k])
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClubID != rows[j].ClubID {
			return rows[i].ClubID < rows[j].ClubID
		}
		return rows[i].PersonID < rows[j].PersonID
	})
	return rows
}
