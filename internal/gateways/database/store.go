package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/repositories"
)

// Store runs progression work in bun transactions. PostgreSQL uses
// READ COMMITTED together with explicit row locks; SQLite serializes writers
// on its own.
type Store struct {
	db      *bun.DB
	txOpts  *sql.TxOptions
	timeout time.Duration
}

var _ progression.Store = &Store{}

func NewStore(db *bun.DB, timeout time.Duration) *Store {
	var opts *sql.TxOptions
	if db.Dialect().Name() == dialect.PG {
		opts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return &Store{db: db, txOpts: opts, timeout: timeout}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx progression.Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return s.db.RunInTx(ctx, s.txOpts, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, newStoreTx(tx))
	})
}

type storeTx struct {
	tx bun.Tx
}

func newStoreTx(tx bun.Tx) *storeTx {
	return &storeTx{tx: tx}
}

func (t *storeTx) Accounts() progression.AccountRepository {
	return repositories.NewAccountRepository(t.tx)
}

func (t *storeTx) Locations() progression.LocationRepository {
	return repositories.NewLocationRepository(t.tx)
}

func (t *storeTx) Storylines() progression.StorylineRepository {
	return repositories.NewStorylineRepository(t.tx)
}

func (t *storeTx) Visits() progression.VisitRepository {
	return repositories.NewVisitRepository(t.tx)
}

func (t *storeTx) Participations() progression.ParticipationRepository {
	return repositories.NewParticipationRepository(t.tx)
}

func (t *storeTx) Points() progression.PointsRepository {
	return repositories.NewPointsRepository(t.tx)
}

func (t *storeTx) Trophies() progression.TrophyRepository {
	return repositories.NewTrophyRepository(t.tx)
}

// Savepoint nests fn in a SAVEPOINT of the enclosing transaction.
func (t *storeTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx progression.Tx) error) error {
	return t.tx.RunInTx(ctx, nil, func(ctx context.Context, sp bun.Tx) error {
		return fn(ctx, newStoreTx(sp))
	})
}
