package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Username    string    `bun:"username,notnull"`
	DeviceToken string    `bun:"device_token"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}
