package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotState is the lifecycle state of an agenda slot.
type SlotState string

const (
	SlotStateActive    SlotState = "active"
	SlotStateWaiting   SlotState = "waiting"
	SlotStateCancelled SlotState = "cancelled"
)

// ParseSlotState validates a stored slot state.
func ParseSlotState(s string) (SlotState, error) {
	switch SlotState(s) {
	case SlotStateActive, SlotStateWaiting, SlotStateCancelled:
		return SlotState(s), nil
	}
	return "", fmt.Errorf("unknown slot state %q", s)
}

// Slot is one assignable position in a meeting's agenda. The snapshot fields
// (Credentials, ProjectCode, PathwayName) mirror the primary owner at the time
// of the last assignment and are cleared when the slot becomes unowned.
type Slot struct {
	ID          uuid.UUID  `json:"id"`
	MeetingID   uuid.UUID  `json:"meeting_id"`
	Seq         int        `json:"seq"` // agenda ordering key
	RoleID      uuid.UUID  `json:"role_id"`
	Title       *string    `json:"title,omitempty"` // e.g. speech title
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	DurationMin *int       `json:"duration_min,omitempty"`
	DurationMax *int       `json:"duration_max,omitempty"`
	State       SlotState  `json:"state"`
	Credentials *string    `json:"credentials,omitempty"`
	ProjectCode *string    `json:"project_code,omitempty"`
	PathwayName *string    `json:"pathway_name,omitempty"`
	MediaID     *uuid.UUID `json:"media_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SlotSnapshot is the derived owner-dependent part of a slot.
type SlotSnapshot struct {
	Credentials *string
	ProjectCode *string
	PathwayName *string
	ProjectID   *uuid.UUID
}

// SlotMedia is a file attached to a slot (e.g. speech handout or recording).
type SlotMedia struct {
	ID        uuid.UUID `json:"id"`
	StoreKey  string    `json:"store_key"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
