package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketClass classifies a roster entry for attendance display.
type TicketClass string

const (
	TicketOfficer   TicketClass = "officer"
	TicketMember    TicketClass = "member"
	TicketRoleTaker TicketClass = "role_taker"
	TicketGuest     TicketClass = "guest"
)

// ParseTicketClass validates a stored ticket class.
func ParseTicketClass(s string) (TicketClass, error) {
	switch TicketClass(s) {
	case TicketOfficer, TicketMember, TicketRoleTaker, TicketGuest:
		return TicketClass(s), nil
	}
	return "", fmt.Errorf("unknown ticket class %q", s)
}

// RosterEntry is the per-meeting attendance record of one contact.
// OrderNumber is set only for officers (>= 1000, assigned monotonically).
// The entry persists even after the contact's role set shrinks to empty.
type RosterEntry struct {
	ID          uuid.UUID   `json:"id"`
	MeetingID   uuid.UUID   `json:"meeting_id"`
	ContactID   uuid.UUID   `json:"contact_id"`
	Ticket      TicketClass `json:"ticket"`
	OrderNumber *int        `json:"order_number,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RosterRole links a roster entry to one role the contact holds in the meeting.
type RosterRole struct {
	RosterID uuid.UUID `json:"roster_id"`
	RoleID   uuid.UUID `json:"role_id"`
}
