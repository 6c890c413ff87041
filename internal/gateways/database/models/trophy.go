package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Trophy struct {
	bun.BaseModel `bun:"table:trophies,alias:t"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description,notnull"`
}

type TrophyGrant struct {
	bun.BaseModel `bun:"table:trophy_grants,alias:tg"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AccountID int64     `bun:"account_id,notnull"`
	TrophyID  int64     `bun:"trophy_id,notnull"`
	AwardedAt time.Time `bun:"awarded_at,notnull"`

	// Relations
	Trophy *Trophy `bun:"rel:belongs-to,join:trophy_id=id"`
}
