package models

import (
	"time"

	"github.com/uptrace/bun"
)

type StorylineParticipation struct {
	bun.BaseModel `bun:"table:storyline_participations,alias:sp"`

	ID          int64      `bun:"id,pk,autoincrement"`
	AccountID   int64      `bun:"account_id,notnull"`
	StorylineID int64      `bun:"storyline_id,notnull"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
}
