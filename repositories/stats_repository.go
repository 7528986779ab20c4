package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/lib/pq"
)

// StatsRepository stores the derived aggregates. Replace* methods swap the
// whole set for a scope in place; callers run them inside the finalization
// transaction.
type StatsRepository interface {
	ReplaceClubSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int, rows []*models.ClubSeasonStats) error
	ListClubSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.ClubSeasonStats, error)
	ReplacePlayerSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int, rows []*models.PlayerSeasonStats) error
	ListPlayerSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.PlayerSeasonStats, error)
	ListPlayerSeasonStatsByClubs(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]*models.PlayerSeasonStats, error)
	ListRosterLinks(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]models.RosterLink, error)
	ReplaceCareerStats(ctx context.Context, exec SQLExecutor, clubIDs []int, rows []*models.PlayerClubCareerStats) error
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func (r *postgresStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStatsRepository) ReplaceClubSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int, rows []*models.ClubSeasonStats) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM club_season_stats WHERE season_id = $1`, seasonID); err != nil {
		return fmt.Errorf("failed to clear club stats of season %d: %w", seasonID, err)
	}
	if len(rows) == 0 {
		return nil
	}

	n := len(rows)
	clubs, points, played := make([]int64, n), make([]int64, n), make([]int64, n)
	wins, draws, losses := make([]int64, n), make([]int64, n), make([]int64, n)
	gf, ga := make([]int64, n), make([]int64, n)
	for i, s := range rows {
		clubs[i], points[i], played[i] = int64(s.ClubID), int64(s.Points), int64(s.Played)
		wins[i], draws[i], losses[i] = int64(s.Wins), int64(s.Draws), int64(s.Losses)
		gf[i], ga[i] = int64(s.GoalsFor), int64(s.GoalsAgainst)
	}

	query := `
		INSERT INTO club_season_stats
		    (season_id, club_id, points, played, wins, draws, losses, goals_for, goals_against, updated_at)
		SELECT $1, t.club_id, t.points, t.played, t.wins, t.draws, t.losses, t.gf, t.ga, NOW()
		FROM unnest($2::int[], $3::int[], $4::int[], $5::int[], $6::int[], $7::int[], $8::int[], $9::int[])
		     AS t(club_id, points, played, wins, draws, losses, gf, ga)`
	_, err := executor.ExecContext(ctx, query, seasonID,
		pq.Array(clubs), pq.Array(points), pq.Array(played), pq.Array(wins),
		pq.Array(draws), pq.Array(losses), pq.Array(gf), pq.Array(ga),
	)
	if err != nil {
		return fmt.Errorf("failed to insert club stats of season %d: %w", seasonID, err)
	}
	return nil
}

func (r *postgresStatsRepository) ListClubSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.ClubSeasonStats, error) {
	query := `
		SELECT season_id, club_id, points, played, wins, draws, losses, goals_for, goals_against, updated_at
		FROM club_season_stats
		WHERE season_id = $1
		ORDER BY points DESC, wins DESC, (goals_for - goals_against) DESC, goals_for DESC, club_id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list club stats of season %d: %w", seasonID, err)
	}
	defer rows.Close()

	stats := make([]*models.ClubSeasonStats, 0)
	for rows.Next() {
		var s models.ClubSeasonStats
		if err := rows.Scan(&s.SeasonID, &s.ClubID, &s.Points, &s.Played, &s.Wins, &s.Draws, &s.Losses,
			&s.GoalsFor, &s.GoalsAgainst, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan club stats: %w", err)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

func (r *postgresStatsRepository) ReplacePlayerSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int, rows []*models.PlayerSeasonStats) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM player_season_stats WHERE season_id = $1`, seasonID); err != nil {
		return fmt.Errorf("failed to clear player stats of season %d: %w", seasonID, err)
	}
	if len(rows) == 0 {
		return nil
	}

	n := len(rows)
	persons, clubs, played := make([]int64, n), make([]int64, n), make([]int64, n)
	goals, pens, assists := make([]int64, n), make([]int64, n), make([]int64, n)
	yellows, reds := make([]int64, n), make([]int64, n)
	for i, s := range rows {
		persons[i], clubs[i], played[i] = int64(s.PersonID), int64(s.ClubID), int64(s.MatchesPlayed)
		goals[i], pens[i], assists[i] = int64(s.Goals), int64(s.PenaltyGoals), int64(s.Assists)
		yellows[i], reds[i] = int64(s.YellowCards), int64(s.RedCards)
	}

	query := `
		INSERT INTO player_season_stats
		    (season_id, person_id, club_id, matches_played, goals, penalty_goals, assists, yellow_cards, red_cards)
		SELECT $1, t.person_id, t.club_id, t.played, t.goals, t.pens, t.assists, t.yellows, t.reds
		FROM unnest($2::int[], $3::int[], $4::int[], $5::int[], $6::int[], $7::int[], $8::int[], $9::int[])
		     AS t(person_id, club_id, played, goals, pens, assists, yellows, reds)`
	_, err := executor.ExecContext(ctx, query, seasonID,
		pq.Array(persons), pq.Array(clubs), pq.Array(played), pq.Array(goals),
		pq.Array(pens), pq.Array(assists), pq.Array(yellows), pq.Array(reds),
	)
	if err != nil {
		return fmt.Errorf("failed to insert player stats of season %d: %w", seasonID, err)
	}
	return nil
}

func (r *postgresStatsRepository) ListPlayerSeasonStats(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.PlayerSeasonStats, error) {
	query := `
		SELECT season_id, person_id, club_id, matches_played, goals, penalty_goals, assists, yellow_cards, red_cards
		FROM player_season_stats
		WHERE season_id = $1
		ORDER BY goals DESC, assists DESC, person_id, club_id`
	return r.listPlayerStats(ctx, exec, query, seasonID)
}

func (r *postgresStatsRepository) ListPlayerSeasonStatsByClubs(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]*models.PlayerSeasonStats, error) {
	query := `
		SELECT season_id, person_id, club_id, matches_played, goals, penalty_goals, assists, yellow_cards, red_cards
		FROM player_season_stats
		WHERE club_id = ANY($1)
		ORDER BY club_id, person_id, season_id`
	return r.listPlayerStats(ctx, exec, query, pq.Array(clubIDs))
}

func (r *postgresStatsRepository) listPlayerStats(ctx context.Context, exec SQLExecutor, query string, arg interface{}) ([]*models.PlayerSeasonStats, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list player season stats: %w", err)
	}
	defer rows.Close()

	stats := make([]*models.PlayerSeasonStats, 0)
	for rows.Next() {
		var s models.PlayerSeasonStats
		if err := rows.Scan(&s.SeasonID, &s.PersonID, &s.ClubID, &s.MatchesPlayed, &s.Goals,
			&s.PenaltyGoals, &s.Assists, &s.YellowCards, &s.RedCards); err != nil {
			return nil, fmt.Errorf("failed to scan player season stats: %w", err)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

func (r *postgresStatsRepository) ListRosterLinks(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]models.RosterLink, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT club_id, person_id FROM club_players WHERE club_id = ANY($1)`, pq.Array(clubIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list roster links: %w", err)
	}
	defer rows.Close()

	links := make([]models.RosterLink, 0)
	for rows.Next() {
		var l models.RosterLink
		if err := rows.Scan(&l.ClubID, &l.PersonID); err != nil {
			return nil, fmt.Errorf("failed to scan roster link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *postgresStatsRepository) ReplaceCareerStats(ctx context.Context, exec SQLExecutor, clubIDs []int, rows []*models.PlayerClubCareerStats) error {
	executor := r.getExecutor(exec)
	if len(clubIDs) == 0 {
		return nil
	}
	if _, err := executor.ExecContext(ctx, `DELETE FROM player_club_career_stats WHERE club_id = ANY($1)`, pq.Array(clubIDs)); err != nil {
		return fmt.Errorf("failed to clear career stats: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	n := len(rows)
	clubs, persons, seasons := make([]int64, n), make([]int64, n), make([]int64, n)
	played, goals, pens := make([]int64, n), make([]int64, n), make([]int64, n)
	assists, yellows, reds := make([]int64, n), make([]int64, n), make([]int64, n)
	for i, s := range rows {
		clubs[i], persons[i], seasons[i] = int64(s.ClubID), int64(s.PersonID), int64(s.Seasons)
		played[i], goals[i], pens[i] = int64(s.MatchesPlayed), int64(s.Goals), int64(s.PenaltyGoals)
		assists[i], yellows[i], reds[i] = int64(s.Assists), int64(s.YellowCards), int64(s.RedCards)
	}

	query := `
		INSERT INTO player_club_career_stats
		    (club_id, person_id, seasons, matches_played, goals, penalty_goals, assists, yellow_cards, red_cards)
		SELECT * FROM unnest($1::int[], $2::int[], $3::int[], $4::int[], $5::int[], $6::int[], $7::int[], $8::int[], $9::int[])`
	_, err := executor.ExecContext(ctx, query,
		pq.Array(clubs), pq.Array(persons), pq.Array(seasons), pq.Array(played), pq.Array(goals),
		pq.Array(pens), pq.Array(assists), pq.Array(yellows), pq.Array(reds),
	)
	if err != nil {
		return fmt.Errorf("failed to insert career stats: %w", err)
	}
	return nil
}
