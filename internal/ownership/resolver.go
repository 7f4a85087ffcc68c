// Package ownership answers "who owns what" for meeting role slots. It is the
// single read path over the ownership relation; the branching on role
// cardinality lives here and nowhere else.
package ownership

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
)

// Source is the minimal read surface the resolver needs. Both the engine's
// transactional store and the plain repositories satisfy it.
type Source interface {
	Role(ctx context.Context, id uuid.UUID) (*models.Role, error)
	SlotOwnerships(ctx context.Context, slotID uuid.UUID) ([]models.Ownership, error)
	RoleOwnerships(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Ownership, error)
	ContactOwnerships(ctx context.Context, meetingID, contactID uuid.UUID) ([]models.Ownership, error)
}

// Resolver derives owner sets from ownership rows.
type Resolver struct {
	src Source
}

// NewResolver creates a resolver over src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// OwnersOfSlot returns the ordered owner rows of a slot. For a single_shared
// role the role-level owner set is returned regardless of which slot of the
// shared group is asked.
func (r *Resolver) OwnersOfSlot(ctx context.Context, slot *models.Slot) ([]models.Ownership, error) {
	role, err := r.src.Role(ctx, slot.RoleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, fmt.Errorf("slot %s references unknown role %s", slot.ID, slot.RoleID)
	}
	card, err := models.ParseCardinality(string(role.Cardinality))
	if err != nil {
		return nil, err
	}
	if card == models.CardinalitySingleShared {
		return r.src.RoleOwnerships(ctx, slot.MeetingID, slot.RoleID)
	}
	return r.src.SlotOwnerships(ctx, slot.ID)
}

// PrimaryOwner returns the first owner of a slot, the representative for the
// credential and project-code snapshots, or nil when the slot is unowned.
func (r *Resolver) PrimaryOwner(ctx context.Context, slot *models.Slot) (*models.Ownership, error) {
	owners, err := r.OwnersOfSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, nil
	}
	o := owners[0]
	return &o, nil
}

// RolesOfContact returns the distinct roles a contact holds in a meeting.
func (r *Resolver) RolesOfContact(ctx context.Context, meetingID, contactID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.src.ContactOwnerships(ctx, meetingID, contactID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(rows))
	var roles []uuid.UUID
	for _, row := range rows {
		if _, ok := seen[row.RoleID]; ok {
			continue
		}
		seen[row.RoleID] = struct{}{}
		roles = append(roles, row.RoleID)
	}
	return roles, nil
}

// HoldersOfRole returns the distinct contacts holding a role in a meeting.
func (r *Resolver) HoldersOfRole(ctx context.Context, meetingID, roleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.src.RoleOwnerships(ctx, meetingID, roleID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]struct{}, len(rows))
	var contacts []uuid.UUID
	for _, row := range rows {
		if _, ok := seen[row.ContactID]; ok {
			continue
		}
		seen[row.ContactID] = struct{}{}
		contacts = append(contacts, row.ContactID)
	}
	return contacts, nil
}
