package models

import (
	"github.com/uptrace/bun"
)

type Location struct {
	bun.BaseModel `bun:"table:locations,alias:l"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Latitude    string `bun:"latitude,notnull"`
	Longitude   string `bun:"longitude,notnull"`
	Description string `bun:"description,notnull"`
}

type Storyline struct {
	bun.BaseModel `bun:"table:storylines,alias:s"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Description string `bun:"description,notnull"`
}

// StorylineLocation is one membership edge between a storyline and a location.
type StorylineLocation struct {
	bun.BaseModel `bun:"table:storyline_locations,alias:sl"`

	StorylineID int64 `bun:"storyline_id,pk"`
	LocationID  int64 `bun:"location_id,pk"`
}
