package sqlutil

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxStarter is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Run executes fn inside a transaction started with opts.
// If fn returns an error the tx rolls back, else it commits.
func Run(ctx context.Context, db TxStarter, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts) // BEGIN
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx) // ROLLBACK
		return err
	}
	return tx.Commit(ctx) // COMMIT
}

// Snapshot runs fn in a read-only REPEATABLE READ transaction, so every
// query inside sees the same committed state.
func Snapshot(ctx context.Context, db TxStarter, fn func(tx pgx.Tx) error) error {
	return Run(ctx, db, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}, fn)
}

// Collect runs query and scans every row with scan.
func Collect[T any](ctx context.Context, q pgx.Tx, query string, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}
