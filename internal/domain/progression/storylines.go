package progression

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StorylineTracker computes and persists storyline completion for accounts
// as their visits accumulate. Completion is only tracked for storylines the
// account has begun.
type StorylineTracker struct {
	store Store
	now   func() time.Time
}

func NewStorylineTracker(store Store, now func() time.Time) *StorylineTracker {
	if now == nil {
		now = time.Now
	}
	return &StorylineTracker{store: store, now: now}
}

// EvaluateStoryline re-checks a single storyline in its own transaction and
// reports whether this call completed it.
func (t *StorylineTracker) EvaluateStoryline(ctx context.Context, accountID, storylineID int64) (bool, error) {
	var completed bool
	err := t.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		done, err := t.evaluateStoryline(ctx, tx, accountID, storylineID)
		if err != nil {
			return err
		}
		completed = done
		return nil
	})
	return completed, err
}

// Evaluate re-checks every storyline that contains locationID. Each storyline
// runs in its own savepoint: a failing one is rolled back and reported in
// the result without affecting the others or the enclosing transaction.
func (t *StorylineTracker) Evaluate(ctx context.Context, tx Tx, accountID, locationID int64) Evaluation {
	var result Evaluation

	var storylineIDs []int64
	err := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
		ids, err := tx.Storylines().StorylinesContaining(ctx, locationID)
		if err != nil {
			return err
		}
		storylineIDs = ids
		return nil
	})
	if err != nil {
		result.Failures = append(result.Failures, EvaluationFailure{
			Err: fmt.Errorf("failed to resolve storylines for location %d: %w", locationID, err),
		})
		return result
	}

	for _, storylineID := range storylineIDs {
		result.Checked = append(result.Checked, storylineID)

		var completed bool
		err := tx.Savepoint(ctx, func(ctx context.Context, tx Tx) error {
			done, err := t.evaluateStoryline(ctx, tx, accountID, storylineID)
			if err != nil {
				return err
			}
			completed = done
			return nil
		})
		if err != nil {
			slog.Warn("Storyline evaluation failed",
				slog.String("type", "sys"),
				slog.Int64("account_id", accountID),
				slog.Int64("storyline_id", storylineID),
				slog.Any("error", err))
			result.Failures = append(result.Failures, EvaluationFailure{StorylineID: storylineID, Err: err})
			continue
		}
		if completed {
			result.Completed = append(result.Completed, storylineID)
		}
	}

	return result
}

// begin starts a storyline for the account and immediately checks the
// existing visits, so a storyline that is already fully visited completes in
// the same call with CompletedAt equal to StartedAt. Starting it twice is a
// bad request. The caller must hold the account lock.
func (t *StorylineTracker) begin(ctx context.Context, tx Tx, accountID, storylineID int64) (Participation, error) {
	exists, err := tx.Storylines().Exists(ctx, storylineID)
	if err != nil {
		return Participation{}, fmt.Errorf("failed to look up storyline %d: %w", storylineID, err)
	}
	if !exists {
		return Participation{}, badRequest("storyline %d does not exist", storylineID)
	}

	done, err := t.visitedAll(ctx, tx, accountID, storylineID)
	if err != nil {
		return Participation{}, err
	}

	now := t.now()
	participation := Participation{
		AccountID:   accountID,
		StorylineID: storylineID,
		StartedAt:   now,
	}
	if done {
		participation.CompletedAt = &now
	}

	inserted, err := tx.Participations().Insert(ctx, &participation)
	if err != nil {
		return Participation{}, fmt.Errorf("failed to insert participation: %w", err)
	}
	if !inserted {
		return Participation{}, badRequest("account %d has already started storyline %d", accountID, storylineID)
	}
	return participation, nil
}

func (t *StorylineTracker) evaluateStoryline(ctx context.Context, tx Tx, accountID, storylineID int64) (bool, error) {
	participation, err := tx.Participations().GetForUpdate(ctx, accountID, storylineID)
	if err != nil {
		return false, fmt.Errorf("failed to load participation: %w", err)
	}
	if participation == nil || participation.Completed() {
		return false, nil
	}

	done, err := t.visitedAll(ctx, tx, accountID, storylineID)
	if err != nil || !done {
		return false, err
	}

	stamped, err := tx.Participations().MarkCompleted(ctx, participation.ID, t.now())
	if err != nil {
		return false, fmt.Errorf("failed to mark storyline %d completed: %w", storylineID, err)
	}
	return stamped, nil
}

// visitedAll reports whether the account has visited every member location
// of the storyline. A storyline without members never completes.
func (t *StorylineTracker) visitedAll(ctx context.Context, tx Tx, accountID, storylineID int64) (bool, error) {
	members, err := tx.Storylines().MembersOf(ctx, storylineID)
	if err != nil {
		return false, fmt.Errorf("failed to load members of storyline %d: %w", storylineID, err)
	}
	if len(members) == 0 {
		return false, nil
	}

	visited, err := tx.Visits().LocationIDs(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to load visits of account %d: %w", accountID, err)
	}
	seen := make(map[int64]struct{}, len(visited))
	for _, id := range visited {
		seen[id] = struct{}{}
	}
	for _, id := range members {
		if _, ok := seen[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}
