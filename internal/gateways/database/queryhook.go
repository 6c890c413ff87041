package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

// QueryHook logs every bun statement. sql.ErrNoRows is an expected outcome
// of lookups and is not reported as a failure.
type QueryHook struct{}

var _ bun.QueryHook = QueryHook{}

func (QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	err := event.Err
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	logger.LogQuery(event.Operation(), event.Query, time.Since(event.StartTime), err)
}
