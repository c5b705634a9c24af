package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/ce-community/cebot/internal/domain/catalog"
)

// GameSnapshot stores the last known state of a game as a jsonb document.
type GameSnapshot struct {
	bun.BaseModel `bun:"table:game_snapshots,alias:gs"`

	ID          string           `bun:"id,pk,type:text"`
	Name        string           `bun:"name,notnull"`
	Category    catalog.Category `bun:"category,notnull,type:text"`
	Document    *catalog.Game    `bun:"document,type:jsonb,notnull"`
	LastUpdated time.Time        `bun:"last_updated,notnull"`
	StoredAt    time.Time        `bun:"stored_at,notnull,default:current_timestamp"`
}

type UserSnapshot struct {
	bun.BaseModel `bun:"table:user_snapshots,alias:us"`

	ID          string        `bun:"id,pk,type:text"`
	DisplayName string        `bun:"display_name"`
	Document    *catalog.User `bun:"document,type:jsonb,notnull"`
	StoredAt    time.Time     `bun:"stored_at,notnull,default:current_timestamp"`
}

// PassRecord keeps the summary of each reconciliation pass.
type PassRecord struct {
	bun.BaseModel `bun:"table:pass_records,alias:pr"`

	ID         string          `bun:"id,pk,type:text"`
	StartedAt  time.Time       `bun:"started_at,notnull"`
	FinishedAt time.Time       `bun:"finished_at,notnull"`
	Events     int             `bun:"events,notnull"`
	Errors     int             `bun:"errors,notnull"`
	Report     json.RawMessage `bun:"report,type:jsonb"`
}
