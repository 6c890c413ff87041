package progression

import (
	"context"
	"fmt"
	"time"
)

// TrophyAwarder grants each trophy to an account at most once.
// It only works inside a transaction that already holds the account lock.
type TrophyAwarder struct {
	now func() time.Time
}

func NewTrophyAwarder(now func() time.Time) *TrophyAwarder {
	if now == nil {
		now = time.Now
	}
	return &TrophyAwarder{now: now}
}

func (a *TrophyAwarder) award(ctx context.Context, tx Tx, accountID, trophyID int64) (TrophyGrant, error) {
	exists, err := tx.Trophies().Exists(ctx, trophyID)
	if err != nil {
		return TrophyGrant{}, fmt.Errorf("failed to look up trophy %d: %w", trophyID, err)
	}
	if !exists {
		return TrophyGrant{}, notFound("trophy %d does not exist", trophyID)
	}

	grant := TrophyGrant{
		AccountID: accountID,
		TrophyID:  trophyID,
		AwardedAt: a.now(),
	}
	inserted, err := tx.Trophies().InsertGrant(ctx, &grant)
	if err != nil {
		return TrophyGrant{}, fmt.Errorf("failed to insert trophy grant: %w", err)
	}
	if !inserted {
		return TrophyGrant{}, conflict("account %d already holds trophy %d", accountID, trophyID)
	}
	return grant, nil
}
