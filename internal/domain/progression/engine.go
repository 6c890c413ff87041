package progression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"

const (
	DefaultVisitReward      int64 = 5
	DefaultLeaderboardLimit       = 100
)

type Config struct {
	// VisitReward is credited once for every recorded visit.
	VisitReward      int64
	LeaderboardLimit int
}

func DefaultConfig() Config {
	return Config{
		VisitReward:      DefaultVisitReward,
		LeaderboardLimit: DefaultLeaderboardLimit,
	}
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine orchestrates the visit recorder, storyline tracker, points ledger
// and trophy awarder. Every write entry point runs in a single store
// transaction; notifications are sent only after commit.
type Engine struct {
	store    Store
	cfg      Config
	now      func() time.Time
	notifier Notifier
	metrics  *Metrics
	tracer   trace.Tracer

	recorder *VisitRecorder
	awarder  *TrophyAwarder

	Ledger  *PointsLedger
	Tracker *StorylineTracker
}

func NewEngine(store Store, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.VisitReward <= 0 {
		return nil, invalid("visit reward must be positive, got %d", cfg.VisitReward)
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = DefaultLeaderboardLimit
	}

	e := &Engine{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.recorder = NewVisitRecorder(e.now)
	e.Ledger = NewPointsLedger(store)
	e.Tracker = NewStorylineTracker(store, e.now)
	e.awarder = NewTrophyAwarder(e.now)
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// RecordVisit records the visit, re-evaluates every storyline containing the
// location and credits the visit reward, all in one transaction. A failed
// visit write aborts everything; failed storyline evaluations are reported
// in the outcome and never block the credit.
func (e *Engine) RecordVisit(ctx context.Context, accountID, locationID int64) (VisitOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "progression.RecordVisit", trace.WithAttributes(
		attribute.Int64("account.id", accountID),
		attribute.Int64("location.id", locationID),
	))
	defer span.End()

	var outcome VisitOutcome
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}

		visit, err := e.recorder.record(ctx, tx, accountID, locationID)
		if err != nil {
			return err
		}

		evaluation := e.Tracker.Evaluate(ctx, tx, accountID, locationID)

		balance, err := e.Ledger.credit(ctx, tx, accountID, e.cfg.VisitReward)
		if err != nil {
			return err
		}

		outcome = VisitOutcome{
			Visit:               visit,
			PointsAwarded:       e.cfg.VisitReward,
			Balance:             balance,
			CompletedStorylines: evaluation.Completed,
			Failures:            evaluation.Failures,
		}
		return nil
	})
	if err != nil {
		e.metrics.visitFailed(err)
		recordSpanError(span, err)
		return VisitOutcome{}, err
	}

	e.metrics.visitRecorded(outcome)
	span.SetAttributes(
		attribute.Int64("points.balance", outcome.Balance),
		attribute.Int("storylines.completed", len(outcome.CompletedStorylines)),
		attribute.Int("storylines.failed", len(outcome.Failures)),
	)

	slog.Info("Visit recorded",
		slog.String("type", "sys"),
		slog.Int64("account_id", accountID),
		slog.Int64("location_id", locationID),
		slog.Int64("points", outcome.PointsAwarded),
		slog.Int64("balance", outcome.Balance),
		slog.Int("completed_storylines", len(outcome.CompletedStorylines)),
		slog.Int("failed_evaluations", len(outcome.Failures)))

	e.notify(ctx, Notification{
		Kind:      NotificationVisitReward,
		AccountID: accountID,
		RefID:     locationID,
		Message:   fmt.Sprintf("You earned %d points for visiting a new location!", outcome.PointsAwarded),
	})
	for _, storylineID := range outcome.CompletedStorylines {
		e.notify(ctx, Notification{
			Kind:      NotificationStorylineCompleted,
			AccountID: accountID,
			RefID:     storylineID,
			Message:   "You completed a storyline!",
		})
	}

	return outcome, nil
}

// BeginStoryline starts a storyline for the account. It fails with
// ErrBadRequest when the storyline does not exist or was already started.
func (e *Engine) BeginStoryline(ctx context.Context, accountID, storylineID int64) (Participation, error) {
	ctx, span := e.tracer.Start(ctx, "progression.BeginStoryline", trace.WithAttributes(
		attribute.Int64("account.id", accountID),
		attribute.Int64("storyline.id", storylineID),
	))
	defer span.End()

	var participation Participation
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		p, err := e.Tracker.begin(ctx, tx, accountID, storylineID)
		if err != nil {
			return err
		}
		participation = p
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return Participation{}, err
	}

	e.metrics.storylineStarted(participation)
	if participation.Completed() {
		e.notify(ctx, Notification{
			Kind:      NotificationStorylineCompleted,
			AccountID: accountID,
			RefID:     storylineID,
			Message:   "You completed a storyline!",
		})
	}
	return participation, nil
}

func (e *Engine) AwardTrophy(ctx context.Context, accountID, trophyID int64) (TrophyGrant, error) {
	ctx, span := e.tracer.Start(ctx, "progression.AwardTrophy", trace.WithAttributes(
		attribute.Int64("account.id", accountID),
		attribute.Int64("trophy.id", trophyID),
	))
	defer span.End()

	var grant TrophyGrant
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		g, err := e.awarder.award(ctx, tx, accountID, trophyID)
		if err != nil {
			return err
		}
		grant = g
		return nil
	})
	e.metrics.trophyResult(err)
	if err != nil {
		recordSpanError(span, err)
		return TrophyGrant{}, err
	}

	e.notify(ctx, Notification{
		Kind:      NotificationTrophyAwarded,
		AccountID: accountID,
		RefID:     trophyID,
		Message:   "You unlocked a new trophy!",
	})
	return grant, nil
}

// notify hands n to the notifier detached from the request context, so a
// caller that goes away does not cancel delivery.
func (e *Engine) notify(ctx context.Context, n Notification) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(context.WithoutCancel(ctx), n)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
