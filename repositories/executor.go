package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) error
}

type postgresTransactor struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewPostgresTransactor(db *sql.DB) Transactor {
	return &postgresTransactor{db: db, opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted}}
}

func (t *postgresTransactor) InTx(ctx context.Context, fn func(ctx context.Context, exec SQLExecutor) error) (err error) {
	tx, err := t.db.BeginTx(ctx, t.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(ctx, tx)
	return err
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// affected reports whether a conditional update touched a row.
func affected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected > 0, nil
}

func constraintOf(err error) string {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Constraint
	}
	return ""
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntColumn(rows *sql.Rows) ([]int, error) {
	defer rows.Close()
	out := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
