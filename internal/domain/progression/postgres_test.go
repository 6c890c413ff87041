//go:build integration

package progression_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konfistador/ExplorationAppBackend/internal/config"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
)

// newPostgresFixture connects with the EXPLORATION_DB_* settings and empties
// the application tables. Run with:
//
//	EXPLORATION_DB_DRIVER=postgres go test -tags integration ./internal/domain/progression/
func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.Load("")
	require.NoError(t, err)
	if cfg.DB.Driver != "postgres" {
		t.Skip("EXPLORATION_DB_DRIVER is not postgres")
	}

	db, err := database.Open(ctx, cfg.DB)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.True(t, db.IsPostgres())
	require.NoError(t, db.InitializeSchema(ctx))
	require.NoError(t, db.ResetAppTables(ctx))

	store := database.NewStore(db.BunDB(), 10*time.Second)
	f := &fixture{t: t, ctx: ctx, db: db, store: store}
	f.engine = f.newEngine(store)
	return f
}

func TestPostgresConcurrentVisitsOfSameLocationCreditOnce(t *testing.T) {
	f := newPostgresFixture(t)
	alice := f.account("alice")
	square := f.location("square")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.RecordVisit(f.ctx, alice, square)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, progression.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(5), f.balance(alice))
}

func TestPostgresConcurrentLastVisitsCompleteOnce(t *testing.T) {
	f := newPostgresFixture(t)
	alice := f.account("alice")

	locations := make([]int64, 6)
	for i := range locations {
		locations[i] = f.location(fmt.Sprintf("stop-%d", i))
	}
	walk := f.storyline("walk", locations...)
	_, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make([]progression.VisitOutcome, len(locations))
	errs := make([]error, len(locations))
	for i, location := range locations {
		wg.Add(1)
		go func(i int, location int64) {
			defer wg.Done()
			outcomes[i], errs[i] = f.engine.RecordVisit(f.ctx, alice, location)
		}(i, location)
	}
	wg.Wait()

	var completions int
	for i := range outcomes {
		require.NoError(t, errs[i])
		completions += len(outcomes[i].CompletedStorylines)
	}
	assert.Equal(t, 1, completions)
	assert.Equal(t, []int64{walk}, f.completed(alice))
	assert.Equal(t, int64(5*len(locations)), f.balance(alice))
}

func TestPostgresConcurrentBeginStartsOnce(t *testing.T) {
	f := newPostgresFixture(t)
	alice := f.account("alice")
	walk := f.storyline("walk", f.location("a"))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.BeginStoryline(f.ctx, alice, walk)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.True(t, errors.Is(err, progression.ErrBadRequest), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
}
