package progression_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *database.DB
	store  *database.Store
	engine *progression.Engine
}

func newFixture(t *testing.T, opts ...progression.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.InitializeSchema(ctx))

	store := database.NewStore(db.BunDB(), 5*time.Second)
	f := &fixture{t: t, ctx: ctx, db: db, store: store}
	f.engine = f.newEngine(store, opts...)
	return f
}

func (f *fixture) newEngine(store progression.Store, opts ...progression.Option) *progression.Engine {
	f.t.Helper()
	opts = append([]progression.Option{progression.WithClock(fixedClock)}, opts...)
	engine, err := progression.NewEngine(store, progression.DefaultConfig(), opts...)
	require.NoError(f.t, err)
	return engine
}

func (f *fixture) account(username string) int64 {
	f.t.Helper()
	account, err := f.engine.CreateAccount(f.ctx, username, "")
	require.NoError(f.t, err)
	return account.ID
}

func (f *fixture) location(name string) int64 {
	f.t.Helper()
	location := progression.Location{Name: name, Latitude: "0", Longitude: "0"}
	require.NoError(f.t, f.store.RunInTx(f.ctx, func(ctx context.Context, tx progression.Tx) error {
		return tx.Locations().Create(ctx, &location)
	}))
	return location.ID
}

func (f *fixture) storyline(name string, locations ...int64) int64 {
	f.t.Helper()
	storyline := progression.Storyline{Name: name}
	require.NoError(f.t, f.store.RunInTx(f.ctx, func(ctx context.Context, tx progression.Tx) error {
		if err := tx.Storylines().Create(ctx, &storyline); err != nil {
			return err
		}
		for _, id := range locations {
			if err := tx.Storylines().AddLocation(ctx, storyline.ID, id); err != nil {
				return err
			}
		}
		return nil
	}))
	return storyline.ID
}

func (f *fixture) trophy(name string) int64 {
	f.t.Helper()
	trophy := progression.Trophy{Name: name}
	require.NoError(f.t, f.store.RunInTx(f.ctx, func(ctx context.Context, tx progression.Tx) error {
		return tx.Trophies().Create(ctx, &trophy)
	}))
	return trophy.ID
}

func (f *fixture) balance(accountID int64) int64 {
	f.t.Helper()
	balance, err := f.engine.Balance(f.ctx, accountID)
	require.NoError(f.t, err)
	return balance
}

func (f *fixture) completed(accountID int64) []int64 {
	f.t.Helper()
	participations, err := f.engine.Participations(f.ctx, accountID, true)
	require.NoError(f.t, err)
	ids := make([]int64, 0, len(participations))
	for _, p := range participations {
		ids = append(ids, p.StorylineID)
	}
	return ids
}

func (f *fixture) completedAt(accountID, storylineID int64) time.Time {
	f.t.Helper()
	participations, err := f.engine.Participations(f.ctx, accountID, true)
	require.NoError(f.t, err)
	for _, p := range participations {
		if p.StorylineID == storylineID {
			require.NotNil(f.t, p.CompletedAt)
			return *p.CompletedAt
		}
	}
	f.t.Fatalf("storyline %d is not completed for account %d", storylineID, accountID)
	return time.Time{}
}
