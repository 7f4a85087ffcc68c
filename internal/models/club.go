package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Club represents a tenant: one Toastmasters club.
type Club struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Settings  json.RawMessage `json:"settings,omitempty"` // per-club options (locale, default template, ...)
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
