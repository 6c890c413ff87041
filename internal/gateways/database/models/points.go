package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PointsAccount holds the running point balance of one account. The balance
// is only ever changed with store-side increments.
type PointsAccount struct {
	bun.BaseModel `bun:"table:points_accounts,alias:pa"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AccountID int64     `bun:"account_id,notnull"`
	Balance   int64     `bun:"balance,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// LeaderboardRow is the projection scanned by the leaderboard query.
type LeaderboardRow struct {
	AccountID int64  `bun:"account_id"`
	Username  string `bun:"username"`
	Balance   int64  `bun:"balance"`
}
