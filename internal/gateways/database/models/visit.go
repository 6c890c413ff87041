package models

import (
	"time"

	"github.com/uptrace/bun"
)

type LocationVisit struct {
	bun.BaseModel `bun:"table:location_visits,alias:lv"`

	ID         int64     `bun:"id,pk,autoincrement"`
	AccountID  int64     `bun:"account_id,notnull"`
	LocationID int64     `bun:"location_id,notnull"`
	VisitedAt  time.Time `bun:"visited_at,notnull"`

	// Relations
	Location *Location `bun:"rel:belongs-to,join:location_id=id"`
}
