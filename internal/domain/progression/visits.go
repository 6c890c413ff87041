package progression

import (
	"context"
	"fmt"
	"time"
)

// VisitRecorder records a user's visit to a location exactly once.
type VisitRecorder struct {
	now func() time.Time
}

func NewVisitRecorder(now func() time.Time) *VisitRecorder {
	if now == nil {
		now = time.Now
	}
	return &VisitRecorder{now: now}
}

// record inserts the visit inside the caller's transaction. A visit is only
// ever stored together with its credit, so the recorder has no entry point
// of its own; Engine.RecordVisit is the only caller.
func (r *VisitRecorder) record(ctx context.Context, tx Tx, accountID, locationID int64) (Visit, error) {
	exists, err := tx.Locations().Exists(ctx, locationID)
	if err != nil {
		return Visit{}, fmt.Errorf("failed to look up location %d: %w", locationID, err)
	}
	if !exists {
		return Visit{}, notFound("location %d does not exist", locationID)
	}

	visit := Visit{
		AccountID:  accountID,
		LocationID: locationID,
		VisitedAt:  r.now(),
	}
	inserted, err := tx.Visits().Insert(ctx, &visit)
	if err != nil {
		return Visit{}, fmt.Errorf("failed to insert visit: %w", err)
	}
	if !inserted {
		return Visit{}, conflict("account %d has already visited location %d", accountID, locationID)
	}
	return visit, nil
}

func requireAccount(ctx context.Context, tx Tx, accountID int64) error {
	exists, err := tx.Accounts().Exists(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to look up account %d: %w", accountID, err)
	}
	if !exists {
		return notFound("account %d does not exist", accountID)
	}
	return nil
}

// lockAccount serializes progression writes for one account until the
// enclosing transaction ends.
func lockAccount(ctx context.Context, tx Tx, accountID int64) error {
	found, err := tx.Accounts().Lock(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to lock account %d: %w", accountID, err)
	}
	if !found {
		return notFound("account %d does not exist", accountID)
	}
	return nil
}
