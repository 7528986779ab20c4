package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
)

var (
	ErrSeasonNotFound   = errors.New("season not found")
	ErrRoundNotFound    = errors.New("season round not found")
	ErrRoundLabelExists = errors.New("season round with this label already exists")
)

type SeasonRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error)
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error)
	ListParticipantClubIDs(ctx context.Context, exec SQLExecutor, seasonID int) ([]int, error)
	ListGroups(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.SeasonGroup, error)
	GetRoundByLabel(ctx context.Context, exec SQLExecutor, seasonID int, label string) (*models.SeasonRound, error)
	CreateRound(ctx context.Context, exec SQLExecutor, round *models.SeasonRound) error
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const seasonColumns = `id, competition_id, name, series_format, series_length, start_date, end_date`

func (r *postgresSeasonRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error) {
	return r.get(ctx, exec, `SELECT `+seasonColumns+` FROM seasons WHERE id = $1`, id)
}

// LockForUpdate serializes playoff progression of one season: whoever holds
// the row sees the committed state of every sibling series.
func (r *postgresSeasonRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Season, error) {
	return r.get(ctx, exec, `SELECT `+seasonColumns+` FROM seasons WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresSeasonRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Season, error) {
	var s models.Season
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.CompetitionID, &s.Name, &s.SeriesFormat, &s.SeriesLength, &s.StartDate, &s.EndDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season %d: %w", id, err)
	}
	return &s, nil
}

func (r *postgresSeasonRepository) ListParticipantClubIDs(ctx context.Context, exec SQLExecutor, seasonID int) ([]int, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT club_id FROM season_participants WHERE season_id = $1 ORDER BY club_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of season %d: %w", seasonID, err)
	}
	ids, err := scanIntColumn(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan participant club id: %w", err)
	}
	return ids, nil
}

func (r *postgresSeasonRepository) ListGroups(ctx context.Context, exec SQLExecutor, seasonID int) ([]*models.SeasonGroup, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx,
		`SELECT id, season_id, label FROM season_groups WHERE season_id = $1 ORDER BY label`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups of season %d: %w", seasonID, err)
	}
	defer rows.Close()

	groups := make([]*models.SeasonGroup, 0)
	for rows.Next() {
		var g models.SeasonGroup
		if err := rows.Scan(&g.ID, &g.SeasonID, &g.Label); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *postgresSeasonRepository) GetRoundByLabel(ctx context.Context, exec SQLExecutor, seasonID int, label string) (*models.SeasonRound, error) {
	query := `
		SELECT id, season_id, number, label, is_playoff
		FROM season_rounds
		WHERE season_id = $1 AND label = $2`
	var round models.SeasonRound
	err := r.getExecutor(exec).QueryRowContext(ctx, query, seasonID, label).Scan(
		&round.ID, &round.SeasonID, &round.Number, &round.Label, &round.IsPlayoff,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %q of season %d: %w", label, seasonID, err)
	}
	return &round, nil
}

// CreateRound appends a round after the highest existing number when
// round.Number is zero.
func (r *postgresSeasonRepository) CreateRound(ctx context.Context, exec SQLExecutor, round *models.SeasonRound) error {
	query := `
		INSERT INTO season_rounds (season_id, number, label, is_playoff)
		VALUES ($1,
		        CASE WHEN $2 > 0 THEN $2 ELSE (SELECT COALESCE(MAX(number), 0) + 1 FROM season_rounds WHERE season_id = $1) END,
		        $3, $4)
		RETURNING id, number`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, round.SeasonID, round.Number, round.Label, round.IsPlayoff).
		Scan(&round.ID, &round.Number)
	if err != nil {
		if constraintOf(err) == "season_rounds_season_id_label_key" {
			return ErrRoundLabelExists
		}
		return fmt.Errorf("failed to create round %q: %w", round.Label, err)
	}
	return nil
}
