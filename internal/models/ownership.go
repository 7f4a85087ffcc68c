package models

import (
	"time"

	"github.com/google/uuid"
)

// Ownership is one row of the canonical "who owns what" relation.
//
// SlotID semantics depend on the role's cardinality:
//   - single_distinct: SlotID set; unique per (meeting, role, slot).
//   - single_shared:   SlotID nil; the row applies to every slot of the role
//     in the meeting; unique per (meeting, role, contact).
//   - multi:           SlotID set; several rows per slot, ranked.
type Ownership struct {
	ID        uuid.UUID  `json:"id"`
	MeetingID uuid.UUID  `json:"meeting_id"`
	RoleID    uuid.UUID  `json:"role_id"`
	ContactID uuid.UUID  `json:"contact_id"`
	SlotID    *uuid.UUID `json:"slot_id,omitempty"`
	Rank      int        `json:"rank"` // order within a multi-owner slot; 0 is primary
	CreatedAt time.Time  `json:"created_at"`
}

// WaitlistEntry queues a contact for a slot, FIFO by CreatedAt.
// A contact appears at most once per slot.
type WaitlistEntry struct {
	ID        uuid.UUID `json:"id"`
	SlotID    uuid.UUID `json:"slot_id"`
	ContactID uuid.UUID `json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`
}
