package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const defaultTimeout = 10 * time.Second

// supportsRowLocks reports whether SELECT ... FOR UPDATE is available. SQLite
// serializes writers on its own and has no row locks.
func supportsRowLocks(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

// insertIgnoringConflict runs an INSERT ... ON CONFLICT DO NOTHING and reports
// whether a row was written.
func insertIgnoringConflict(ctx context.Context, q *bun.InsertQuery) (bool, error) {
	res, err := q.Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func exists(ctx context.Context, q *bun.SelectQuery) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return q.Exists(ctx)
}
