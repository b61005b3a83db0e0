package models

import (
	"time"
)

// StoredJob is a JobRecord as persisted for one owner.
type StoredJob struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	JobRecord
	Source    string    `json:"source"`
	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertSummary counts what a batch upsert did.
type UpsertSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}
