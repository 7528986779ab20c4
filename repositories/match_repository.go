package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchClubsInvalid = errors.New("match club reference is invalid")
	ErrMatchSeriesFK     = errors.New("match series reference is invalid")
)

type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListFinishedBySeason(ctx context.Context, exec SQLExecutor, seasonID int, includePlayoff bool) ([]*models.Match, error)
	ListFinishedByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error)
	ListBySeries(ctx context.Context, exec SQLExecutor, seriesID int) ([]*models.Match, error)
	ListUpcoming(ctx context.Context, exec SQLExecutor, seasonID *int, limit int) ([]*models.Match, error)
	ListEventsByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchEvent, error)
	ListEventsBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchEvent, error)
	ListLineupsBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchLineup, error)
	LatestStartTime(ctx context.Context, exec SQLExecutor, seasonID int) (*time.Time, error)
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	DeleteByIDs(ctx context.Context, exec SQLExecutor, ids []int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, season_id, round_id, group_id, series_id, home_club_id, away_club_id,
	home_score, away_score, has_shootout, home_shootout_score, away_shootout_score,
	status, is_friendly, start_time, created_at`

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	var seasonID, roundID, groupID, seriesID, homePens, awayPens sql.NullInt64
	err := rowScanner.Scan(
		&m.ID, &seasonID, &roundID, &groupID, &seriesID, &m.HomeClubID, &m.AwayClubID,
		&m.HomeScore, &m.AwayScore, &m.HasShootout, &homePens, &awayPens,
		&m.Status, &m.IsFriendly, &m.StartTime, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.SeasonID = nullIntPtr(seasonID)
	m.RoundID = nullIntPtr(roundID)
	m.GroupID = nullIntPtr(groupID)
	m.SeriesID = nullIntPtr(seriesID)
	m.HomeShootoutScore = nullIntPtr(homePens)
	m.AwayShootoutScore = nullIntPtr(awayPens)
	return &m, nil
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	row := r.getExecutor(exec).QueryRowContext(ctx, query, id)
	m, err := r.scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

// LockForUpdate holds a row lock on the match until the surrounding
// transaction ends, so concurrent finalizations of one match serialize.
func (r *postgresMatchRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListFinishedBySeason(ctx context.Context, exec SQLExecutor, seasonID int, includePlayoff bool) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE season_id = $1 AND status = 'FINISHED' AND is_friendly = FALSE
		  AND ($2 OR series_id IS NULL)
		ORDER BY start_time, id`
	return r.list(ctx, exec, query, seasonID, includePlayoff)
}

func (r *postgresMatchRepository) ListFinishedByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE group_id = $1 AND status = 'FINISHED' AND is_friendly = FALSE
		ORDER BY start_time, id`
	return r.list(ctx, exec, query, groupID)
}

func (r *postgresMatchRepository) ListBySeries(ctx context.Context, exec SQLExecutor, seriesID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE series_id = $1 ORDER BY start_time, id`
	return r.list(ctx, exec, query, seriesID)
}

// ListUpcoming returns scheduled matches, optionally restricted to one season.
func (r *postgresMatchRepository) ListUpcoming(ctx context.Context, exec SQLExecutor, seasonID *int, limit int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = 'SCHEDULED' AND start_time > NOW()
		  AND ($1::int IS NULL OR season_id = $1)
		ORDER BY start_time, id
		LIMIT $2`
	return r.list(ctx, exec, query, seasonID, limit)
}

func (r *postgresMatchRepository) listEvents(ctx context.Context, exec SQLExecutor, query string, arg int) ([]*models.MatchEvent, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query match events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		var e models.MatchEvent
		var secondary sql.NullInt64
		if err := rows.Scan(&e.ID, &e.MatchID, &e.ClubID, &e.PersonID, &secondary, &e.Type, &e.Minute); err != nil {
			return nil, fmt.Errorf("failed to scan match event: %w", err)
		}
		e.SecondaryPersonID = nullIntPtr(secondary)
		events = append(events, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match event rows: %w", err)
	}
	return events, nil
}

func (r *postgresMatchRepository) ListEventsByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT id, match_id, club_id, person_id, secondary_person_id, event_type, minute
		FROM match_events
		WHERE match_id = $1
		ORDER BY minute, id`
	return r.listEvents(ctx, exec, query, matchID)
}

// ListEventsBySeason returns events of finished competitive matches only.
func (r *postgresMatchRepository) ListEventsBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT e.id, e.match_id, e.club_id, e.person_id, e.secondary_person_id, e.event_type, e.minute
		FROM match_events e
		JOIN matches m ON m.id = e.match_id
		WHERE m.season_id = $1 AND m.status = 'FINISHED' AND m.is_friendly = FALSE
		ORDER BY e.match_id, e.minute, e.id`
	return r.listEvents(ctx, exec, query, seasonID)
}

func (r *postgresMatchRepository) ListLineupsBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchLineup, error) {
	query := `
		SELECT l.match_id, l.club_id, l.person_id
		FROM match_lineups l
		JOIN matches m ON m.id = l.match_id
		WHERE m.season_id = $1 AND m.status = 'FINISHED' AND m.is_friendly = FALSE`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lineups for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	lineups := make([]*models.MatchLineup, 0)
	for rows.Next() {
		var l models.MatchLineup
		if err := rows.Scan(&l.MatchID, &l.ClubID, &l.PersonID); err != nil {
			return nil, fmt.Errorf("failed to scan lineup: %w", err)
		}
		lineups = append(lineups, &l)
	}
	return lineups, rows.Err()
}

// LatestStartTime is nil when the season has no matches yet.
func (r *postgresMatchRepository) LatestStartTime(ctx context.Context, exec SQLExecutor, seasonID int) (*time.Time, error) {
	var latest sql.NullTime
	err := r.getExecutor(exec).QueryRowContext(ctx,
		`SELECT MAX(start_time) FROM matches WHERE season_id = $1`, seasonID).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest start time for season %d: %w", seasonID, err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches (season_id, round_id, group_id, series_id, home_club_id, away_club_id, status, is_friendly, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`
	if match.Status == "" {
		match.Status = models.MatchStatusScheduled
	}
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.SeasonID, match.RoundID, match.GroupID, match.SeriesID,
		match.HomeClubID, match.AwayClubID, match.Status, match.IsFriendly, match.StartTime,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByIDs(ctx context.Context, exec SQLExecutor, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM matches WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches: %w", err)
	}
	return result.RowsAffected()
}

func handleMatchError(err error) error {
	switch constraintOf(err) {
	case "matches_home_club_id_fkey", "matches_away_club_id_fkey":
		return ErrMatchClubsInvalid
	case "matches_series_id_fkey":
		return ErrMatchSeriesFK
	}
	return fmt.Errorf("match database error: %w", err)
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
