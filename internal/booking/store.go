package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
)

// Store is the persistence surface the engine mutates within one transaction.
// Lookups return (nil, nil) when the row does not exist; the engine maps that
// to NotFound. All writes happen through this interface only.
type Store interface {
	Meeting(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	Role(ctx context.Context, id uuid.UUID) (*models.Role, error)
	Contact(ctx context.Context, id uuid.UUID) (*models.Contact, error)

	Slot(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	SlotsOfMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Slot, error)
	SlotsOfRole(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Slot, error)
	UpdateSlotSnapshot(ctx context.Context, slotID uuid.UUID, snap models.SlotSnapshot) error
	UpdateSlotState(ctx context.Context, slotID uuid.UUID, state models.SlotState) error

	// Ownership rows. SlotOwnerships returns rows bound to the slot, ordered
	// by rank; RoleOwnerships returns every row of (meeting, role) including
	// slot-less single_shared rows; ContactOwnerships returns every row the
	// contact holds in the meeting.
	SlotOwnerships(ctx context.Context, slotID uuid.UUID) ([]models.Ownership, error)
	RoleOwnerships(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Ownership, error)
	ContactOwnerships(ctx context.Context, meetingID, contactID uuid.UUID) ([]models.Ownership, error)
	InsertOwnership(ctx context.Context, o *models.Ownership) error
	UpdateOwnershipRank(ctx context.Context, id uuid.UUID, rank int) error
	DeleteOwnership(ctx context.Context, id uuid.UUID) error

	// Waitlist, FIFO by creation time.
	Waitlist(ctx context.Context, slotID uuid.UUID) ([]models.WaitlistEntry, error)
	InsertWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error
	DeleteWaitlistEntry(ctx context.Context, id uuid.UUID) error

	// Roster, mutated only by the sync step of an engine call.
	RosterEntry(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error)
	InsertRosterEntry(ctx context.Context, e *models.RosterEntry) error
	MaxOfficerOrder(ctx context.Context, meetingID uuid.UUID) (int, error)
	AddRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error
	RemoveRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error

	// Education lookups for snapshot derivation (read-only).
	Pathway(ctx context.Context, id uuid.UUID) (*models.Pathway, error)
	Project(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ProjectByCode(ctx context.Context, pathwayID uuid.UUID, level, number int) (*models.Project, error)

	// Meeting deletion cascade. The call order in DeleteMeeting is part of
	// the contract: waitlist, ownership, roster, votes, slots (with media
	// unlink), then the meeting row.
	DeleteWaitlistForMeeting(ctx context.Context, meetingID uuid.UUID) error
	DeleteOwnershipForMeeting(ctx context.Context, meetingID uuid.UUID) error
	DeleteRosterForMeeting(ctx context.Context, meetingID uuid.UUID) error
	DeleteVotesForMeeting(ctx context.Context, meetingID uuid.UUID) error
	DeleteSlotsForMeeting(ctx context.Context, meetingID uuid.UUID) error
	DeleteMeetingRow(ctx context.Context, meetingID uuid.UUID) error
}

// Runner executes fn atomically and serialized per meeting. Partial state is
// never visible to other callers; a returned error rolls everything back.
type Runner interface {
	InMeetingTx(ctx context.Context, meetingID uuid.UUID, fn func(Store) error) error
}
