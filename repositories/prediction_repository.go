package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/lib/pq"
)

var ErrTemplateNotFound = errors.New("prediction template not found")

type PredictionRepository interface {
	ListTemplatesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PredictionTemplate, error)
	ListPendingEntriesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PredictionEntry, error)
	SettleEntry(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error)
	CancelPendingByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error)
	UpsertTemplate(ctx context.Context, exec SQLExecutor, t *models.PredictionTemplate) (bool, error)
}

type postgresPredictionRepository struct {
	db *sql.DB
}

func NewPostgresPredictionRepository(db *sql.DB) PredictionRepository {
	return &postgresPredictionRepository{db: db}
}

func (r *postgresPredictionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPredictionRepository) scanTemplate(rowScanner interface{ Scan(...interface{}) error }) (*models.PredictionTemplate, error) {
	var t models.PredictionTemplate
	var rawOptions, rawChoices []byte
	err := rowScanner.Scan(&t.ID, &t.MatchID, &t.MarketType, &rawOptions, &rawChoices,
		&t.BasePoints, &t.DifficultyMultiplier, &t.IsManual, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.Options, err = models.DecodeMarketOptions(t.MarketType, rawOptions); err != nil {
		return nil, fmt.Errorf("template %d: %w", t.ID, err)
	}
	if len(rawChoices) > 0 {
		if err := json.Unmarshal(rawChoices, &t.Choices); err != nil {
			return nil, fmt.Errorf("template %d: decode choices: %w", t.ID, err)
		}
	}
	return &t, nil
}

func (r *postgresPredictionRepository) ListTemplatesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PredictionTemplate, error) {
	query := `
		SELECT id, match_id, market_type, options, choices, base_points, difficulty_multiplier, is_manual, updated_at
		FROM prediction_templates
		WHERE match_id = $1
		ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates of match %d: %w", matchID, err)
	}
	defer rows.Close()

	templates := make([]*models.PredictionTemplate, 0)
	for rows.Next() {
		t, err := r.scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// ListPendingEntriesByMatch locks the pending entries of all templates of a
// match.
func (r *postgresPredictionRepository) ListPendingEntriesByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.PredictionEntry, error) {
	query := `
		SELECT e.id, e.template_id, e.user_id, e.selection, e.status, e.awarded_points, e.created_at, e.settled_at
		FROM prediction_entries e
		JOIN prediction_templates t ON t.id = e.template_id
		WHERE t.match_id = $1 AND e.status = 'PENDING'
		ORDER BY e.id
		FOR UPDATE OF e`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries of match %d: %w", matchID, err)
	}
	defer rows.Close()

	entries := make([]*models.PredictionEntry, 0)
	for rows.Next() {
		var e models.PredictionEntry
		var points sql.NullInt64
		var settledAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.TemplateID, &e.UserID, &e.Selection, &e.Status, &points, &e.CreatedAt, &settledAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction entry: %w", err)
		}
		e.AwardedPoints = nullIntPtr(points)
		if settledAt.Valid {
			e.SettledAt = &settledAt.Time
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SettleEntry only moves a PENDING entry. It reports false when another
// run already settled it.
func (r *postgresPredictionRepository) SettleEntry(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error) {
	query := `
		UPDATE prediction_entries
		SET status = $2, awarded_points = $3, settled_at = $4
		WHERE id = $1 AND status = 'PENDING'`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id, status, points, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to settle prediction entry %d: %w", id, err)
	}
	return affected(result)
}

// CancelPendingByMatches cancels every pending entry on the given matches
// and returns the affected users.
func (r *postgresPredictionRepository) CancelPendingByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	query := `
		UPDATE prediction_entries e
		SET status = 'CANCELLED', awarded_points = NULL, settled_at = $2
		FROM prediction_templates t
		WHERE t.id = e.template_id AND t.match_id = ANY($1) AND e.status = 'PENDING'
		RETURNING e.user_id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(matchIDs), settledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel prediction entries: %w", err)
	}
	users, err := scanIntColumn(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cancelled entry user: %w", err)
	}
	return users, nil
}

// UpsertTemplate writes a generated template unless an admin marked the
// existing one as manual. It reports whether a row was written.
func (r *postgresPredictionRepository) UpsertTemplate(ctx context.Context, exec SQLExecutor, t *models.PredictionTemplate) (bool, error) {
	rawOptions, err := models.EncodeMarketOptions(t.Options)
	if err != nil {
		return false, fmt.Errorf("encode options: %w", err)
	}
	rawChoices, err := json.Marshal(t.Choices)
	if err != nil {
		return false, fmt.Errorf("encode choices: %w", err)
	}

	query := `
		INSERT INTO prediction_templates
		    (match_id, market_type, options, choices, base_points, difficulty_multiplier, is_manual, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW())
		ON CONFLICT (match_id, market_type) DO UPDATE
		SET options = EXCLUDED.options,
		    choices = EXCLUDED.choices,
		    base_points = EXCLUDED.base_points,
		    difficulty_multiplier = EXCLUDED.difficulty_multiplier,
		    updated_at = NOW()
		WHERE prediction_templates.is_manual = FALSE
		RETURNING id, updated_at`
	err = r.getExecutor(exec).QueryRowContext(ctx, query,
		t.MatchID, t.MarketType, rawOptions, rawChoices, t.BasePoints, t.DifficultyMultiplier,
	).Scan(&t.ID, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert template for match %d: %w", t.MatchID, err)
	}
	return true, nil
}
