package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/lib/pq"
)

var ErrDisqualificationNotFound = errors.New("disqualification not found")

type DisqualificationRepository interface {
	ListActiveByClubs(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]*models.Disqualification, error)
	UpdateProgress(ctx context.Context, exec SQLExecutor, d *models.Disqualification) error
	HasBlockingBan(ctx context.Context, exec SQLExecutor, personID int, reason models.DisqualificationReason, sourceMatchID int) (bool, error)
	CountBySeasonPersonReason(ctx context.Context, exec SQLExecutor, seasonID, personID int, reason models.DisqualificationReason) (int, error)
	Create(ctx context.Context, exec SQLExecutor, d *models.Disqualification) error
	ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, activeOnly bool) ([]*models.Disqualification, error)
}

type postgresDisqualificationRepository struct {
	db *sql.DB
}

func NewPostgresDisqualificationRepository(db *sql.DB) DisqualificationRepository {
	return &postgresDisqualificationRepository{db: db}
}

func (r *postgresDisqualificationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disqualificationColumns = `id, person_id, club_id, season_id, source_match_id, last_applied_match_id,
	applied_match_ids, reason, ban_duration_matches, matches_missed, is_active, created_at`

func (r *postgresDisqualificationRepository) scanDisqualification(rowScanner interface{ Scan(...interface{}) error }) (*models.Disqualification, error) {
	var d models.Disqualification
	var seasonID, sourceMatchID, lastApplied sql.NullInt64
	var applied pq.Int64Array
	err := rowScanner.Scan(&d.ID, &d.PersonID, &d.ClubID, &seasonID, &sourceMatchID, &lastApplied,
		&applied, &d.Reason, &d.BanDurationMatches, &d.MatchesMissed, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.SeasonID = nullIntPtr(seasonID)
	d.SourceMatchID = nullIntPtr(sourceMatchID)
	d.LastAppliedMatchID = nullIntPtr(lastApplied)
	d.AppliedMatchIDs = make([]int, len(applied))
	for i, id := range applied {
		d.AppliedMatchIDs[i] = int(id)
	}
	return &d, nil
}

func (r *postgresDisqualificationRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Disqualification, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disqualifications: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Disqualification, 0)
	for rows.Next() {
		d, err := r.scanDisqualification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan disqualification: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// ListActiveByClubs locks the returned rows so that parallel finalizations
// of two matches of one club cannot both advance the same ban.
func (r *postgresDisqualificationRepository) ListActiveByClubs(ctx context.Context, exec SQLExecutor, clubIDs []int) ([]*models.Disqualification, error) {
	query := `
		SELECT ` + disqualificationColumns + `
		FROM disqualifications
		WHERE club_id = ANY($1) AND is_active = TRUE
		ORDER BY id
		FOR UPDATE`
	return r.list(ctx, exec, query, pq.Array(clubIDs))
}

func (r *postgresDisqualificationRepository) ListBySeason(ctx context.Context, exec SQLExecutor, seasonID int, activeOnly bool) ([]*models.Disqualification, error) {
	query := `
		SELECT ` + disqualificationColumns + `
		FROM disqualifications
		WHERE season_id = $1 AND ($2 = FALSE OR is_active = TRUE)
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, exec, query, seasonID, activeOnly)
}

func (r *postgresDisqualificationRepository) UpdateProgress(ctx context.Context, exec SQLExecutor, d *models.Disqualification) error {
	query := `
		UPDATE disqualifications
		SET matches_missed = $1, last_applied_match_id = $2, applied_match_ids = $3, is_active = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		d.MatchesMissed, d.LastAppliedMatchID, pq.Array(d.AppliedMatchIDs), d.IsActive, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update disqualification %d: %w", d.ID, err)
	}
	return checkAffectedRows(result, ErrDisqualificationNotFound)
}

// HasBlockingBan reports whether a new ban with this reason must not be
// issued: the person already serves one, or the match already produced one.
func (r *postgresDisqualificationRepository) HasBlockingBan(ctx context.Context, exec SQLExecutor, personID int, reason models.DisqualificationReason, sourceMatchID int) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
		    SELECT 1 FROM disqualifications
		    WHERE person_id = $1 AND reason = $2 AND (is_active = TRUE OR source_match_id = $3)
		)`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, personID, reason, sourceMatchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check disqualifications of person %d: %w", personID, err)
	}
	return exists, nil
}

func (r *postgresDisqualificationRepository) CountBySeasonPersonReason(ctx context.Context, exec SQLExecutor, seasonID, personID int, reason models.DisqualificationReason) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM disqualifications WHERE season_id = $1 AND person_id = $2 AND reason = $3`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, seasonID, personID, reason).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count disqualifications of person %d: %w", personID, err)
	}
	return count, nil
}

func (r *postgresDisqualificationRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Disqualification) error {
	query := `
		INSERT INTO disqualifications
		    (person_id, club_id, season_id, source_match_id, reason, ban_duration_matches, matches_missed, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE)
		RETURNING id, matches_missed, is_active, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		d.PersonID, d.ClubID, d.SeasonID, d.SourceMatchID, d.Reason, d.BanDurationMatches,
	).Scan(&d.ID, &d.MatchesMissed, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create disqualification for person %d: %w", d.PersonID, err)
	}
	return nil
}
