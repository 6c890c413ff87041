package progression

import (
	"context"
	"fmt"
)

// Leaderboard returns accounts ordered by balance descending. Ties are broken
// by account id ascending, so the order is deterministic. A non-positive
// limit uses the configured default.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > e.cfg.LeaderboardLimit {
		limit = e.cfg.LeaderboardLimit
	}

	var entries []LeaderboardEntry
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		rows, err := tx.Points().Leaderboard(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to load leaderboard: %w", err)
		}
		entries = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Balance returns the account's points, zero when nothing was credited yet.
func (e *Engine) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		b, err := tx.Points().Balance(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}
		balance = b
		return nil
	})
	return balance, err
}

func (e *Engine) Visits(ctx context.Context, accountID int64) ([]VisitedLocation, error) {
	var visits []VisitedLocation
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		v, err := tx.Visits().ListByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load visits: %w", err)
		}
		visits = v
		return nil
	})
	return visits, err
}

func (e *Engine) Participations(ctx context.Context, accountID int64, completedOnly bool) ([]Participation, error) {
	var participations []Participation
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		p, err := tx.Participations().ListByAccount(ctx, accountID, completedOnly)
		if err != nil {
			return fmt.Errorf("failed to load participations: %w", err)
		}
		participations = p
		return nil
	})
	return participations, err
}

func (e *Engine) TrophyRoom(ctx context.Context, accountID int64) ([]TrophyRoomEntry, error) {
	var entries []TrophyRoomEntry
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}
		g, err := tx.Trophies().ListGrants(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load trophy room: %w", err)
		}
		entries = g
		return nil
	})
	return entries, err
}

// Statistics summarizes an account's progress from one consistent snapshot.
func (e *Engine) Statistics(ctx context.Context, accountID int64) (Statistics, error) {
	stats := Statistics{AccountID: accountID}
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := requireAccount(ctx, tx, accountID); err != nil {
			return err
		}

		visits, err := tx.Visits().CountByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to count visits: %w", err)
		}
		stats.Visits = visits

		participations, err := tx.Participations().ListByAccount(ctx, accountID, false)
		if err != nil {
			return fmt.Errorf("failed to load participations: %w", err)
		}
		stats.StartedStorylines = len(participations)
		for _, p := range participations {
			if p.Completed() {
				stats.CompletedStorylines++
			}
		}

		grants, err := tx.Trophies().ListGrants(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load trophies: %w", err)
		}
		stats.Trophies = len(grants)

		balance, err := tx.Points().Balance(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to load balance: %w", err)
		}
		stats.Balance = balance
		return nil
	})
	if err != nil {
		return Statistics{}, err
	}
	return stats, nil
}
