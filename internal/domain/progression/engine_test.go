package progression_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression/mock"
)

func TestRecordVisitCreditsReward(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	square := f.location("square")

	outcome, err := f.engine.RecordVisit(f.ctx, alice, square)
	require.NoError(t, err)

	assert.Equal(t, alice, outcome.Visit.AccountID)
	assert.Equal(t, square, outcome.Visit.LocationID)
	assert.True(t, outcome.Visit.VisitedAt.Equal(fixedNow))
	assert.Equal(t, progression.DefaultVisitReward, outcome.PointsAwarded)
	assert.Equal(t, int64(5), outcome.Balance)
	assert.Empty(t, outcome.CompletedStorylines)
	assert.Empty(t, outcome.Failures)
	assert.Equal(t, int64(5), f.balance(alice))
}

func TestRecordVisitTwiceConflictsAndCreditsOnce(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	square := f.location("square")

	_, err := f.engine.RecordVisit(f.ctx, alice, square)
	require.NoError(t, err)

	_, err = f.engine.RecordVisit(f.ctx, alice, square)
	assert.ErrorIs(t, err, progression.ErrConflict)
	assert.Equal(t, int64(5), f.balance(alice))

	visits, err := f.engine.Visits(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestRecordVisitUnknownLocationOrAccount(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	square := f.location("square")

	_, err := f.engine.RecordVisit(f.ctx, alice, square+100)
	assert.ErrorIs(t, err, progression.ErrNotFound)

	_, err = f.engine.RecordVisit(f.ctx, alice+100, square)
	assert.ErrorIs(t, err, progression.ErrNotFound)

	assert.Equal(t, int64(0), f.balance(alice))
}

func TestConcurrentVisitsOfSameLocationCreditOnce(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	square := f.location("square")

	const attempts = 8
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

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, progression.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, int64(5), f.balance(alice))
}

func TestStorylineCompletesOnLastVisit(t *testing.T) {
	var now time.Time
	f := newFixture(t, progression.WithClock(func() time.Time { return now }))
	alice := f.account("alice")
	a := f.location("a")
	b := f.location("b")
	c := f.location("c")
	elsewhere := f.location("elsewhere")
	walk := f.storyline("walk", a, b, c)

	now = fixedNow
	_, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)

	for i, location := range []int64{a, b} {
		now = fixedNow.Add(time.Duration(i+1) * time.Minute)
		outcome, err := f.engine.RecordVisit(f.ctx, alice, location)
		require.NoError(t, err)
		assert.Empty(t, outcome.CompletedStorylines)
	}
	assert.Empty(t, f.completed(alice))

	now = fixedNow.Add(time.Hour)
	last, err := f.engine.RecordVisit(f.ctx, alice, c)
	require.NoError(t, err)
	assert.Equal(t, []int64{walk}, last.CompletedStorylines)
	assert.Equal(t, int64(15), last.Balance)

	before := f.completedAt(alice, walk)
	assert.True(t, before.Equal(fixedNow.Add(time.Hour)))

	// A later visit outside the storyline leaves the stamp untouched.
	now = fixedNow.Add(2 * time.Hour)
	outcome, err := f.engine.RecordVisit(f.ctx, alice, elsewhere)
	require.NoError(t, err)
	assert.Empty(t, outcome.CompletedStorylines)
	assert.True(t, f.completedAt(alice, walk).Equal(before))
}

func TestStorylineNotStartedNeverCompletes(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	a := f.location("a")
	f.storyline("walk", a)

	outcome, err := f.engine.RecordVisit(f.ctx, alice, a)
	require.NoError(t, err)
	assert.Empty(t, outcome.CompletedStorylines)

	started, err := f.engine.Participations(f.ctx, alice, false)
	require.NoError(t, err)
	assert.Empty(t, started)
}

func TestBeginStorylineAlreadyVisitedCompletesImmediately(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	a := f.location("a")
	b := f.location("b")
	walk := f.storyline("walk", a, b)

	_, err := f.engine.RecordVisit(f.ctx, alice, a)
	require.NoError(t, err)
	_, err = f.engine.RecordVisit(f.ctx, alice, b)
	require.NoError(t, err)

	p, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(p.StartedAt))
	assert.Equal(t, []int64{walk}, f.completed(alice))
}

func TestBeginStorylineErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	walk := f.storyline("walk", f.location("a"))

	_, err := f.engine.BeginStoryline(f.ctx, alice, walk+100)
	assert.ErrorIs(t, err, progression.ErrBadRequest)

	_, err = f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)

	// Starting it again is rejected by the unique key and leaves the
	// original participation alone.
	_, err = f.engine.BeginStoryline(f.ctx, alice, walk)
	assert.ErrorIs(t, err, progression.ErrBadRequest)
	assert.NotErrorIs(t, err, progression.ErrConflict)

	started, err := f.engine.Participations(f.ctx, alice, false)
	require.NoError(t, err)
	assert.Len(t, started, 1)
}

func TestEmptyStorylineNeverCompletes(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	empty := f.storyline("empty")

	p, err := f.engine.BeginStoryline(f.ctx, alice, empty)
	require.NoError(t, err)
	assert.Nil(t, p.CompletedAt)

	done, err := f.engine.Tracker.EvaluateStoryline(f.ctx, alice, empty)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestCompletedStorylineIsNotStampedAgain(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	a := f.location("a")
	walk := f.storyline("walk", a)

	_, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)
	_, err = f.engine.RecordVisit(f.ctx, alice, a)
	require.NoError(t, err)

	done, err := f.engine.Tracker.EvaluateStoryline(f.ctx, alice, walk)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestAwardTrophy(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	firstSteps := f.trophy("first steps")

	grant, err := f.engine.AwardTrophy(f.ctx, alice, firstSteps)
	require.NoError(t, err)
	assert.Equal(t, firstSteps, grant.TrophyID)

	_, err = f.engine.AwardTrophy(f.ctx, alice, firstSteps)
	assert.ErrorIs(t, err, progression.ErrConflict)

	_, err = f.engine.AwardTrophy(f.ctx, alice, firstSteps+100)
	assert.ErrorIs(t, err, progression.ErrNotFound)

	room, err := f.engine.TrophyRoom(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, room, 1)
	assert.Equal(t, "first steps", room[0].Trophy.Name)
}

func TestConcurrentTrophyAwardsGrantOnce(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	trophy := f.trophy("cartographer")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.AwardTrophy(f.ctx, alice, trophy)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, progression.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestConcurrentCreditsAreNotLost(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")

	var wg sync.WaitGroup
	for _, delta := range []int64{5, 3} {
		wg.Add(1)
		go func(delta int64) {
			defer wg.Done()
			_, err := f.engine.Ledger.Credit(f.ctx, alice, delta)
			assert.NoError(t, err)
		}(delta)
	}
	wg.Wait()

	assert.Equal(t, int64(8), f.balance(alice))
}

func TestCreditRejectsNonPositiveDelta(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")

	for _, delta := range []int64{0, -5} {
		_, err := f.engine.Ledger.Credit(f.ctx, alice, delta)
		assert.ErrorIs(t, err, progression.ErrValidation)
	}
	assert.Equal(t, int64(0), f.balance(alice))
}

func TestLeaderboardOrdersByBalanceThenAccount(t *testing.T) {
	f := newFixture(t)
	low := f.account("low")
	high := f.account("high")
	mid := f.account("mid")
	tied := f.account("tied")

	for id, points := range map[int64]int64{low: 10, high: 30, mid: 20, tied: 20} {
		_, err := f.engine.Ledger.Credit(f.ctx, id, points)
		require.NoError(t, err)
	}

	board, err := f.engine.Leaderboard(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 4)

	assert.Equal(t, []int64{high, mid, tied, low}, []int64{board[0].AccountID, board[1].AccountID, board[2].AccountID, board[3].AccountID})
	assert.Equal(t, []int64{30, 20, 20, 10}, []int64{board[0].Balance, board[1].Balance, board[2].Balance, board[3].Balance})
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 4, board[3].Rank)
	assert.Equal(t, "high", board[0].Username)

	top, err := f.engine.Leaderboard(f.ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	alice := f.account("alice")
	a := f.location("a")
	b := f.location("b")
	walk := f.storyline("walk", a)
	f.storyline("tour", a, b)
	trophy := f.trophy("first steps")

	_, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)
	_, err = f.engine.RecordVisit(f.ctx, alice, a)
	require.NoError(t, err)
	_, err = f.engine.AwardTrophy(f.ctx, alice, trophy)
	require.NoError(t, err)

	stats, err := f.engine.Statistics(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, progression.Statistics{
		AccountID:           alice,
		Visits:              1,
		StartedStorylines:   1,
		CompletedStorylines: 1,
		Trophies:            1,
		Balance:             5,
	}, stats)

	_, err = f.engine.Statistics(f.ctx, alice+100)
	assert.ErrorIs(t, err, progression.ErrNotFound)
}

func TestCreateAccount(t *testing.T) {
	f := newFixture(t)

	account, err := f.engine.CreateAccount(f.ctx, "  alice ", "device")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, int64(0), f.balance(account.ID))

	_, err = f.engine.CreateAccount(f.ctx, "alice", "")
	assert.ErrorIs(t, err, progression.ErrConflict)

	_, err = f.engine.CreateAccount(f.ctx, " ", "")
	assert.ErrorIs(t, err, progression.ErrValidation)

	loaded, err := f.engine.Account(f.ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "device", loaded.DeviceToken)

	_, err = f.engine.Account(f.ctx, account.ID+100)
	assert.ErrorIs(t, err, progression.ErrNotFound)
}

func TestNotificationsAfterCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)

	f := newFixture(t, progression.WithNotifier(notifier))
	alice := f.account("alice")
	a := f.location("a")
	walk := f.storyline("walk", a)
	_, err := f.engine.BeginStoryline(f.ctx, alice, walk)
	require.NoError(t, err)

	gomock.InOrder(
		notifier.EXPECT().Notify(gomock.Any(), gomock.Cond(func(x any) bool {
			n := x.(progression.Notification)
			return n.Kind == progression.NotificationVisitReward && n.AccountID == alice && n.RefID == a
		})),
		notifier.EXPECT().Notify(gomock.Any(), gomock.Cond(func(x any) bool {
			n := x.(progression.Notification)
			return n.Kind == progression.NotificationStorylineCompleted && n.RefID == walk
		})),
	)

	_, err = f.engine.RecordVisit(f.ctx, alice, a)
	require.NoError(t, err)

	// A rejected visit notifies nobody.
	_, err = f.engine.RecordVisit(f.ctx, alice, a)
	assert.ErrorIs(t, err, progression.ErrConflict)
}

func TestLedgerAndTrackerLockTheAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	tx := mock.NewMockTx(ctrl)
	accounts := mock.NewMockAccountRepository(ctrl)
	points := mock.NewMockPointsRepository(ctrl)

	store.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, progression.Tx) error) error {
			return fn(ctx, tx)
		}).AnyTimes()
	tx.EXPECT().Accounts().Return(accounts).AnyTimes()
	tx.EXPECT().Points().Return(points).AnyTimes()

	// Exists is never expected: both paths must take the row lock.
	accounts.EXPECT().Lock(gomock.Any(), int64(7)).Return(true, nil)
	points.EXPECT().Increment(gomock.Any(), int64(7), int64(5)).Return(int64(5), nil)
	accounts.EXPECT().Lock(gomock.Any(), int64(8)).Return(false, nil).Times(2)

	engine, err := progression.NewEngine(store, progression.DefaultConfig())
	require.NoError(t, err)

	balance, err := engine.Ledger.Credit(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	_, err = engine.Ledger.Credit(context.Background(), 8, 5)
	assert.ErrorIs(t, err, progression.ErrNotFound)

	_, err = engine.Tracker.EvaluateStoryline(context.Background(), 8, 1)
	assert.ErrorIs(t, err, progression.ErrNotFound)
}

func TestNewEngineValidatesConfig(t *testing.T) {
	_, err := progression.NewEngine(nil, progression.DefaultConfig())
	assert.Error(t, err)

	store := mock.NewMockStore(gomock.NewController(t))
	_, err = progression.NewEngine(store, progression.Config{VisitReward: 0})
	assert.ErrorIs(t, err, progression.ErrValidation)
}

func TestLeaderboardClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	tx := mock.NewMockTx(ctrl)
	points := mock.NewMockPointsRepository(ctrl)

	store.EXPECT().RunInTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, progression.Tx) error) error {
			return fn(ctx, tx)
		}).Times(2)
	tx.EXPECT().Points().Return(points).Times(2)
	points.EXPECT().Leaderboard(gomock.Any(), 10).
		Return([]progression.LeaderboardEntry{{AccountID: 1, Balance: 9}}, nil).Times(2)

	engine, err := progression.NewEngine(store, progression.Config{VisitReward: 5, LeaderboardLimit: 10})
	require.NoError(t, err)

	for _, limit := range []int{-1, 500} {
		board, err := engine.Leaderboard(context.Background(), limit)
		require.NoError(t, err)
		require.Len(t, board, 1)
		assert.Equal(t, 1, board[0].Rank)
	}
}
