package progression

import (
	"context"
	"fmt"
)

// PointsLedger keeps one monotonically increasing balance per account.
// Increments are evaluated by the store, never read-modify-write.
type PointsLedger struct {
	store Store
}

func NewPointsLedger(store Store) *PointsLedger {
	return &PointsLedger{store: store}
}

// Credit adds delta to the account's balance and returns the new balance.
func (l *PointsLedger) Credit(ctx context.Context, accountID, delta int64) (int64, error) {
	if err := validateDelta(delta); err != nil {
		return 0, err
	}

	var balance int64
	err := l.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		b, err := l.credit(ctx, tx, accountID, delta)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (l *PointsLedger) credit(ctx context.Context, tx Tx, accountID, delta int64) (int64, error) {
	if err := validateDelta(delta); err != nil {
		return 0, err
	}
	balance, err := tx.Points().Increment(ctx, accountID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to credit %d points to account %d: %w", delta, accountID, err)
	}
	return balance, nil
}

func validateDelta(delta int64) error {
	if delta <= 0 {
		return invalid("credit delta must be positive, got %d", delta)
	}
	return nil
}
