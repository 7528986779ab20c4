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

var ErrExpressBetNotFound = errors.New("express bet not found")

type ExpressRepository interface {
	ListPendingItemsByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.ExpressBetItem, error)
	SettleItem(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, settledAt time.Time) (bool, error)
	CancelPendingItemsByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error)
	LockBet(ctx context.Context, exec SQLExecutor, id int) (*models.ExpressBet, error)
	ListItemsByBet(ctx context.Context, exec SQLExecutor, betID int) ([]*models.ExpressBetItem, error)
	FinalizeBet(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error)
}

type postgresExpressRepository struct {
	db *sql.DB
}

func NewPostgresExpressRepository(db *sql.DB) ExpressRepository {
	return &postgresExpressRepository{db: db}
}

func (r *postgresExpressRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const expressItemColumns = `i.id, i.express_bet_id, i.template_id, i.match_id, i.selection, i.base_points, i.status, i.settled_at`

func (r *postgresExpressRepository) listItems(ctx context.Context, exec SQLExecutor, query string, arg int) ([]*models.ExpressBetItem, error) {
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query express items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ExpressBetItem, 0)
	for rows.Next() {
		var it models.ExpressBetItem
		var matchID sql.NullInt64
		var settledAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.ExpressBetID, &it.TemplateID, &matchID, &it.Selection,
			&it.BasePoints, &it.Status, &settledAt); err != nil {
			return nil, fmt.Errorf("failed to scan express item: %w", err)
		}
		it.MatchID = int(matchID.Int64)
		if settledAt.Valid {
			it.SettledAt = &settledAt.Time
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *postgresExpressRepository) ListPendingItemsByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.ExpressBetItem, error) {
	query := `
		SELECT ` + expressItemColumns + `
		FROM express_bet_items i
		WHERE i.match_id = $1 AND i.status = 'PENDING'
		ORDER BY i.express_bet_id, i.id
		FOR UPDATE`
	return r.listItems(ctx, exec, query, matchID)
}

func (r *postgresExpressRepository) ListItemsByBet(ctx context.Context, exec SQLExecutor, betID int) ([]*models.ExpressBetItem, error) {
	query := `SELECT ` + expressItemColumns + ` FROM express_bet_items i WHERE i.express_bet_id = $1 ORDER BY i.id`
	return r.listItems(ctx, exec, query, betID)
}

func (r *postgresExpressRepository) SettleItem(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, settledAt time.Time) (bool, error) {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE express_bet_items SET status = $2, settled_at = $3 WHERE id = $1 AND status = 'PENDING'`,
		id, status, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to settle express item %d: %w", id, err)
	}
	return affected(result)
}

// CancelPendingItemsByMatches returns the distinct bets that had an item
// cancelled.
func (r *postgresExpressRepository) CancelPendingItemsByMatches(ctx context.Context, exec SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	query := `
		WITH cancelled AS (
		    UPDATE express_bet_items
		    SET status = 'CANCELLED', settled_at = $2
		    WHERE match_id = ANY($1) AND status = 'PENDING'
		    RETURNING express_bet_id
		)
		SELECT DISTINCT express_bet_id FROM cancelled ORDER BY express_bet_id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(matchIDs), settledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel express items: %w", err)
	}
	bets, err := scanIntColumn(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan express bet id: %w", err)
	}
	return bets, nil
}

func (r *postgresExpressRepository) LockBet(ctx context.Context, exec SQLExecutor, id int) (*models.ExpressBet, error) {
	query := `
		SELECT id, user_id, status, min_items, multiplier, total_base_points, awarded_points, created_at, settled_at
		FROM express_bets
		WHERE id = $1
		FOR UPDATE`
	var b models.ExpressBet
	var points sql.NullInt64
	var settledAt sql.NullTime
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.UserID, &b.Status, &b.MinItems, &b.Multiplier, &b.TotalBasePoints, &points, &b.CreatedAt, &settledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExpressBetNotFound
		}
		return nil, fmt.Errorf("failed to get express bet %d: %w", id, err)
	}
	b.AwardedPoints = nullIntPtr(points)
	if settledAt.Valid {
		b.SettledAt = &settledAt.Time
	}
	return &b, nil
}

// FinalizeBet moves a PENDING bet to its final status once.
func (r *postgresExpressRepository) FinalizeBet(ctx context.Context, exec SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error) {
	query := `
		UPDATE express_bets
		SET status = $2, awarded_points = $3, settled_at = $4
		WHERE id = $1 AND status = 'PENDING'`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id, status, points, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to finalize express bet %d: %w", id, err)
	}
	return affected(result)
}
