package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
)

var (
	ErrSeriesNotFound      = errors.New("match series not found")
	ErrSeriesSlotConflict  = errors.New("bracket slot already taken for this stage")
	ErrSeriesSeasonInvalid = errors.New("match series season reference is invalid")
	ErrSeriesNoOpponent    = errors.New("only a finished bye series may lack an away club")
)

type SeriesRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchSeries, error)
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.MatchSeries, error)
	ListByStage(ctx context.Context, exec SQLExecutor, seasonID int, stage models.Stage) ([]*models.MatchSeries, error)
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchSeries, error)
	ExistsStage(ctx context.Context, exec SQLExecutor, seasonID int, stage models.Stage) (bool, error)
	Create(ctx context.Context, exec SQLExecutor, series *models.MatchSeries) error
	MarkFinished(ctx context.Context, exec SQLExecutor, id, winnerClubID int) (bool, error)
}

type postgresSeriesRepository struct {
	db *sql.DB
}

func NewPostgresSeriesRepository(db *sql.DB) SeriesRepository {
	return &postgresSeriesRepository{db: db}
}

func (r *postgresSeriesRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seriesColumns = `id, season_id, stage, home_club_id, away_club_id, status, winner_club_id,
	home_seed, away_seed, bracket_slot, bracket_type, planned_matches, created_at`

func (r *postgresSeriesRepository) scanSeries(rowScanner interface{ Scan(...interface{}) error }) (*models.MatchSeries, error) {
	var s models.MatchSeries
	var awayClubID, winnerClubID, homeSeed, awaySeed, slot sql.NullInt64
	var bracketType sql.NullString
	err := rowScanner.Scan(&s.ID, &s.SeasonID, &s.Stage, &s.HomeClubID, &awayClubID, &s.Status, &winnerClubID,
		&homeSeed, &awaySeed, &slot, &bracketType, &s.PlannedMatches, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.AwayClubID = nullIntPtr(awayClubID)
	s.WinnerClubID = nullIntPtr(winnerClubID)
	s.HomeSeed = nullIntPtr(homeSeed)
	s.AwaySeed = nullIntPtr(awaySeed)
	s.BracketSlot = nullIntPtr(slot)
	s.BracketType = models.BracketType(bracketType.String)
	return &s, nil
}

func (r *postgresSeriesRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.MatchSeries, error) {
	s, err := r.scanSeries(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("failed to get series %d: %w", id, err)
	}
	return s, nil
}

func (r *postgresSeriesRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.MatchSeries, error) {
	return r.getOne(ctx, exec, `SELECT `+seriesColumns+` FROM match_series WHERE id = $1`, id)
}

func (r *postgresSeriesRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.MatchSeries, error) {
	return r.getOne(ctx, exec, `SELECT `+seriesColumns+` FROM match_series WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresSeriesRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.MatchSeries, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	list := make([]*models.MatchSeries, 0)
	for rows.Next() {
		s, err := r.scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		list = append(list, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series rows: %w", err)
	}
	return list, nil
}

func (r *postgresSeriesRepository) ListByStage(ctx context.Context, exec SQLExecutor, seasonID int, stage models.Stage) ([]*models.MatchSeries, error) {
	query := `
		SELECT ` + seriesColumns + `
		FROM match_series
		WHERE season_id = $1 AND stage = $2
		ORDER BY bracket_slot NULLS LAST, id`
	return r.list(ctx, exec, query, seasonID, stage)
}

func (r *postgresSeriesRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.MatchSeries, error) {
	query := `
		SELECT ` + seriesColumns + `
		FROM match_series
		WHERE season_id = $1
		ORDER BY created_at, bracket_slot NULLS LAST, id`
	return r.list(ctx, exec, query, seasonID)
}

func (r *postgresSeriesRepository) ExistsStage(ctx context.Context, exec SQLExecutor, seasonID int, stage models.Stage) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM match_series WHERE season_id = $1 AND stage = $2)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, seasonID, stage).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check stage %s of season %d: %w", stage, seasonID, err)
	}
	return exists, nil
}

func (r *postgresSeriesRepository) Create(ctx context.Context, exec SQLExecutor, series *models.MatchSeries) error {
	query := `
		INSERT INTO match_series
		    (season_id, stage, home_club_id, away_club_id, status, winner_club_id,
		     home_seed, away_seed, bracket_slot, bracket_type, planned_matches)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		RETURNING id, created_at`
	if series.Status == "" {
		series.Status = models.SeriesInProgress
	}
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		series.SeasonID, series.Stage, series.HomeClubID, series.AwayClubID, series.Status, series.WinnerClubID,
		series.HomeSeed, series.AwaySeed, series.BracketSlot, string(series.BracketType), series.PlannedMatches,
	).Scan(&series.ID, &series.CreatedAt)
	if err != nil {
		return handleSeriesError(err)
	}
	return nil
}

// MarkFinished records the winner once. It reports false when the series
// was already finished.
func (r *postgresSeriesRepository) MarkFinished(ctx context.Context, exec SQLExecutor, id, winnerClubID int) (bool, error) {
	query := `
		UPDATE match_series
		SET status = 'FINISHED', winner_club_id = $2
		WHERE id = $1 AND status <> 'FINISHED'`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id, winnerClubID)
	if err != nil {
		return false, fmt.Errorf("failed to finish series %d: %w", id, err)
	}
	return affected(result)
}

func handleSeriesError(err error) error {
	switch constraintOf(err) {
	case "match_series_season_stage_slot_key":
		return ErrSeriesSlotConflict
	case "match_series_season_id_fkey":
		return ErrSeriesSeasonInvalid
	case "match_series_bye_finished":
		return ErrSeriesNoOpponent
	}
	return fmt.Errorf("match series database error: %w", err)
}
