package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/ownership"
	"github.com/gavel-club/backend/internal/roster"
)

// applyAssign replaces the owner set of a slot and converges all derived
// state: ownership rows, slot snapshots (across the shared group when the
// role is single_shared), roster entries and waitlist cleanup. It is the one
// shared write path under Book, Assign, Cancel and waitlist promotion.
func applyAssign(ctx context.Context, s Store, role *models.Role, slot *models.Slot, newOwners []uuid.UUID) ([]uuid.UUID, error) {
	if role.Cardinality.SingleOwner() && len(newOwners) > 1 {
		return nil, notBookable("role allows a single owner")
	}
	newIndex := make(map[uuid.UUID]int, len(newOwners))
	for i, c := range newOwners {
		if _, dup := newIndex[c]; dup {
			return nil, notBookable("duplicate contact in owner list")
		}
		newIndex[c] = i
	}

	resolver := ownership.NewResolver(s)
	oldRows, err := resolver.OwnersOfSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	oldSet := make(map[uuid.UUID]struct{}, len(oldRows))
	for _, row := range oldRows {
		oldSet[row.ContactID] = struct{}{}
	}

	// Retained owners settle on their index in newOwners so the rank order
	// stays the primary-owner order. The rank is unique per slot, so rows
	// that move park on negative ranks until the final positions are free.
	var kept []models.Ownership
	rerank := false
	for _, row := range oldRows {
		i, keep := newIndex[row.ContactID]
		if !keep {
			continue
		}
		kept = append(kept, row)
		if row.Rank != i {
			rerank = true
		}
	}
	if rerank {
		for _, row := range kept {
			if err := s.UpdateOwnershipRank(ctx, row.ID, -(newIndex[row.ContactID] + 1)); err != nil {
				return nil, err
			}
		}
	}

	for _, row := range oldRows {
		if _, keep := newIndex[row.ContactID]; keep {
			continue
		}
		if err := s.DeleteOwnership(ctx, row.ID); err != nil {
			return nil, err
		}
		if err := roster.Unassign(ctx, s, slot.MeetingID, row.ContactID, role.ID); err != nil {
			return nil, err
		}
	}

	var added []uuid.UUID
	for i, c := range newOwners {
		if _, had := oldSet[c]; had {
			continue
		}
		row := &models.Ownership{
			MeetingID: slot.MeetingID,
			RoleID:    role.ID,
			ContactID: c,
			Rank:      i,
		}
		// single_shared rows are slot-less: one owner set for the whole group.
		if role.Cardinality != models.CardinalitySingleShared {
			slotID := slot.ID
			row.SlotID = &slotID
		}
		if err := s.InsertOwnership(ctx, row); err != nil {
			return nil, err
		}
		if err := roster.Assign(ctx, s, slot.MeetingID, c, role.ID); err != nil {
			return nil, err
		}
		added = append(added, c)
	}
	if rerank {
		for _, row := range kept {
			if err := s.UpdateOwnershipRank(ctx, row.ID, newIndex[row.ContactID]); err != nil {
				return nil, err
			}
		}
	}

	var primary *models.Contact
	if len(newOwners) > 0 {
		primary, err = s.Contact(ctx, newOwners[0])
		if err != nil {
			return nil, err
		}
		if primary == nil {
			return nil, notFound("contact")
		}
	}
	snap, err := deriveSnapshot(ctx, s, role, slot, primary)
	if err != nil {
		return nil, err
	}

	// Snapshot targets: the whole shared group, or just this slot.
	targets := []models.Slot{*slot}
	siblings, err := s.SlotsOfRole(ctx, slot.MeetingID, role.ID)
	if err != nil {
		return nil, err
	}
	if role.Cardinality == models.CardinalitySingleShared {
		targets = targets[:0]
		for _, sl := range siblings {
			if sl.State != models.SlotStateCancelled {
				targets = append(targets, sl)
			}
		}
	}
	affected := make([]uuid.UUID, 0, len(targets))
	for _, sl := range targets {
		if err := s.UpdateSlotSnapshot(ctx, sl.ID, snap); err != nil {
			return nil, err
		}
		affected = append(affected, sl.ID)
	}

	// New owners leave every queue of this role: the slot's own and those of
	// its siblings.
	if len(added) > 0 {
		addedSet := make(map[uuid.UUID]struct{}, len(added))
		for _, c := range added {
			addedSet[c] = struct{}{}
		}
		for _, sl := range siblings {
			entries, err := s.Waitlist(ctx, sl.ID)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if _, ok := addedSet[entry.ContactID]; ok {
					if err := s.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	for _, sl := range targets {
		if err := refreshSlotState(ctx, s, sl.ID); err != nil {
			return nil, err
		}
	}

	if err := verifyCardinality(ctx, s, role, slot); err != nil {
		return nil, err
	}
	return affected, nil
}

// refreshSlotState reconciles the stored lifecycle state of a slot with its
// owner set and waitlist: waiting when unowned with a queue, active otherwise.
// Cancelled slots are terminal.
func refreshSlotState(ctx context.Context, s Store, slotID uuid.UUID) error {
	slot, err := s.Slot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot == nil || slot.State == models.SlotStateCancelled {
		return nil
	}
	resolver := ownership.NewResolver(s)
	owners, err := resolver.OwnersOfSlot(ctx, slot)
	if err != nil {
		return err
	}
	wl, err := s.Waitlist(ctx, slotID)
	if err != nil {
		return err
	}
	state := models.SlotStateActive
	if len(owners) == 0 && len(wl) > 0 {
		state = models.SlotStateWaiting
	}
	if state == slot.State {
		return nil
	}
	return s.UpdateSlotState(ctx, slotID, state)
}

// verifyCardinality re-checks the owner-count invariant after the writes.
// A violation means a lost race slipped past the constraints; the transaction
// must roll back.
func verifyCardinality(ctx context.Context, s Store, role *models.Role, slot *models.Slot) error {
	if !role.Cardinality.SingleOwner() {
		return nil
	}
	if role.Cardinality == models.CardinalitySingleShared {
		rows, err := s.RoleOwnerships(ctx, slot.MeetingID, role.ID)
		if err != nil {
			return err
		}
		if len(rows) > 1 {
			return fatalErr("shared role has multiple owners")
		}
		return nil
	}
	rows, err := s.SlotOwnerships(ctx, slot.ID)
	if err != nil {
		return err
	}
	if len(rows) > 1 {
		return fatalErr("single-owner slot has multiple owners")
	}
	return nil
}
