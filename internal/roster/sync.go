// Package roster maintains the per-meeting attendance record. The sync
// functions here run inside the booking engine's transaction; the repository
// and handler serve the attendance read surface and guest RSVP.
package roster

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
)

// SyncStore is the slice of the engine's transactional store the roster sync
// needs.
type SyncStore interface {
	Contact(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	RosterEntry(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error)
	InsertRosterEntry(ctx context.Context, e *models.RosterEntry) error
	MaxOfficerOrder(ctx context.Context, meetingID uuid.UUID) (int, error)
	AddRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error
	RemoveRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error
}

// Assign records that a contact now holds a role in a meeting. The roster
// entry is created lazily on the first role the contact acquires; role
// additions are deduplicated by the store.
func Assign(ctx context.Context, s SyncStore, meetingID, contactID, roleID uuid.UUID) error {
	entry, err := s.RosterEntry(ctx, meetingID, contactID)
	if err != nil {
		return err
	}
	if entry == nil {
		contact, err := s.Contact(ctx, contactID)
		if err != nil {
			return err
		}
		if contact == nil {
			return fmt.Errorf("contact %s not found", contactID)
		}
		entry = &models.RosterEntry{
			MeetingID: meetingID,
			ContactID: contactID,
		}
		switch contact.Type {
		case models.ContactOfficer:
			maxOrder, err := s.MaxOfficerOrder(ctx, meetingID)
			if err != nil {
				return err
			}
			if maxOrder < 999 {
				maxOrder = 999
			}
			order := maxOrder + 1
			entry.Ticket = models.TicketOfficer
			entry.OrderNumber = &order
		case models.ContactMember:
			entry.Ticket = models.TicketMember
		default:
			entry.Ticket = models.TicketRoleTaker
		}
		if err := s.InsertRosterEntry(ctx, entry); err != nil {
			return err
		}
	}
	return s.AddRosterRole(ctx, entry.ID, roleID)
}

// Unassign removes a role from the contact's roster role set. The entry
// itself stays in place for attendance even when the set becomes empty.
func Unassign(ctx context.Context, s SyncStore, meetingID, contactID, roleID uuid.UUID) error {
	entry, err := s.RosterEntry(ctx, meetingID, contactID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	return s.RemoveRosterRole(ctx, entry.ID, roleID)
}
