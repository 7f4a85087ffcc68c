// Package booking is the meeting role assignment engine. All mutation of
// ownership, waitlists, slot snapshots and roster rows goes through the four
// public transitions here; every call is atomic per meeting.
package booking

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/ownership"
)

// State is the caller-visible outcome state of a booking transition.
type State string

const (
	StateOpen       State = "open"
	StateOwned      State = "owned"
	StateWaitlisted State = "waitlisted"
)

// Target addresses either a concrete slot or a role; when only the role is
// given the engine picks the best open slot of that role deterministically.
type Target struct {
	SlotID *uuid.UUID
	RoleID *uuid.UUID
}

// BookResult is the outcome of a self-booking attempt.
type BookResult struct {
	OK     bool      `json:"ok"`
	State  State     `json:"state"`
	Reason string    `json:"reason"`
	SlotID uuid.UUID `json:"slot_id"`
}

// CancelResult is the outcome of a cancellation.
type CancelResult struct {
	OK       bool       `json:"ok"`
	Reason   string     `json:"reason"`
	Promoted *uuid.UUID `json:"promoted,omitempty"`
}

// AssignResult is the outcome of a privileged owner replacement.
type AssignResult struct {
	OK            bool        `json:"ok"`
	Reason        string      `json:"reason"`
	AffectedSlots []uuid.UUID `json:"affected_slots"`
}

// ApproveResult is the outcome of a waitlist approval.
type ApproveResult struct {
	OK       bool       `json:"ok"`
	Reason   string     `json:"reason"`
	Promoted *uuid.UUID `json:"promoted,omitempty"`
}

// Event describes a committed booking change, published after the transaction
// so projections and realtime listeners can converge.
type Event struct {
	Type      string      `json:"type"` // owned | waitlisted | assigned | cancelled | promoted | meeting_deleted
	MeetingID uuid.UUID   `json:"meeting_id"`
	SlotIDs   []uuid.UUID `json:"slot_ids,omitempty"`
	ContactID *uuid.UUID  `json:"contact_id,omitempty"`
}

// Notifier receives events after a transition has committed.
type Notifier interface {
	BookingChanged(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event)

// BookingChanged calls f.
func (f NotifierFunc) BookingChanged(ctx context.Context, ev Event) { f(ctx, ev) }

// Engine executes booking transitions.
type Engine struct {
	runner Runner
	notify Notifier
	logger *zap.Logger
}

// NewEngine creates an engine. notify may be nil.
func NewEngine(runner Runner, notify Notifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = NotifierFunc(func(context.Context, Event) {})
	}
	return &Engine{runner: runner, notify: notify, logger: logger}
}

// Book handles a contact's self-booking of a role or a concrete slot.
// Pre-checks run in a fixed order and the first failure returns without side
// effect; an occupied or approval-gated slot turns the attempt into a
// waitlist join.
func (e *Engine) Book(ctx context.Context, meetingID uuid.UUID, target Target, contactID uuid.UUID) (BookResult, error) {
	var res BookResult
	err := e.runner.InMeetingTx(ctx, meetingID, func(s Store) error {
		meeting, err := s.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return notFound("meeting")
		}
		if !meeting.Status.Bookable() {
			return notBookable("meeting is not open for booking")
		}
		contact, err := s.Contact(ctx, contactID)
		if err != nil {
			return err
		}
		if contact == nil {
			return notFound("contact")
		}

		var slot *models.Slot
		var role *models.Role
		switch {
		case target.SlotID != nil:
			slot, err = s.Slot(ctx, *target.SlotID)
			if err != nil {
				return err
			}
			if slot == nil || slot.MeetingID != meetingID {
				return notFound("slot")
			}
			if slot.State == models.SlotStateCancelled {
				return notBookable("slot is cancelled")
			}
			role, err = roleOf(ctx, s, slot.RoleID)
			if err != nil {
				return err
			}
		case target.RoleID != nil:
			role, err = roleOf(ctx, s, *target.RoleID)
			if err != nil {
				return err
			}
			slot, err = bestSlot(ctx, s, meetingID, role)
			if err != nil {
				return err
			}
			if slot == nil {
				return notBookable("no open slot for this role")
			}
		default:
			return notBookable("no slot or role given")
		}

		if role.MembersOnly && !contact.Type.IsMember() {
			return notBookable("role is for members only")
		}

		// Duplicate-role prevention: holding any other slot of the same role
		// in the meeting rejects the booking. For single_shared, already
		// being a holder is an idempotent no-op.
		held, err := s.ContactOwnerships(ctx, meetingID, contactID)
		if err != nil {
			return err
		}
		for _, h := range held {
			if h.RoleID != role.ID {
				continue
			}
			if role.Cardinality == models.CardinalitySingleShared ||
				(h.SlotID != nil && *h.SlotID == slot.ID) {
				res = BookResult{OK: true, State: StateOwned, Reason: "already booked", SlotID: slot.ID}
				return nil
			}
			return notBookable("already booked a role of this type")
		}

		resolver := ownership.NewResolver(s)
		owners, err := resolver.OwnersOfSlot(ctx, slot)
		if err != nil {
			return err
		}

		if len(owners) > 0 && role.Cardinality.SingleOwner() {
			return joinWaitlist(ctx, s, slot, contactID, "waitlisted", &res)
		}
		if role.ApprovalRequired {
			return joinWaitlist(ctx, s, slot, contactID, "added to waitlist for approval", &res)
		}

		newOwners := make([]uuid.UUID, 0, len(owners)+1)
		for _, o := range owners {
			newOwners = append(newOwners, o.ContactID)
		}
		newOwners = append(newOwners, contactID)
		if _, err := applyAssign(ctx, s, role, slot, newOwners); err != nil {
			return err
		}
		res = BookResult{OK: true, State: StateOwned, Reason: "booked", SlotID: slot.ID}
		return nil
	})
	if err != nil {
		return BookResult{Reason: ReasonOf(err)}, err
	}
	e.notify.BookingChanged(ctx, Event{
		Type:      string(res.State),
		MeetingID: meetingID,
		SlotIDs:   []uuid.UUID{res.SlotID},
		ContactID: &contactID,
	})
	return res, nil
}

// Assign replaces the owner set of a slot. It is privileged: approval gates
// and duplicate-role prevention do not apply. For a single_shared role the
// replacement propagates to every slot of the role in the meeting.
func (e *Engine) Assign(ctx context.Context, meetingID, slotID uuid.UUID, contacts []uuid.UUID) (AssignResult, error) {
	var res AssignResult
	err := e.runner.InMeetingTx(ctx, meetingID, func(s Store) error {
		meeting, err := s.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return notFound("meeting")
		}
		if meeting.Status == models.MeetingCancelled {
			return notBookable("meeting is cancelled")
		}
		slot, err := s.Slot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil || slot.MeetingID != meetingID {
			return notFound("slot")
		}
		role, err := roleOf(ctx, s, slot.RoleID)
		if err != nil {
			return err
		}
		for _, c := range contacts {
			contact, err := s.Contact(ctx, c)
			if err != nil {
				return err
			}
			if contact == nil {
				return notFound("contact")
			}
		}
		affected, err := applyAssign(ctx, s, role, slot, contacts)
		if err != nil {
			return err
		}
		res = AssignResult{OK: true, Reason: "assigned", AffectedSlots: affected}
		return nil
	})
	if err != nil {
		return AssignResult{Reason: ReasonOf(err)}, err
	}
	e.notify.BookingChanged(ctx, Event{Type: "assigned", MeetingID: meetingID, SlotIDs: res.AffectedSlots})
	return res, nil
}

// Cancel removes a contact from a slot's owner set. When the slot becomes
// unowned and the role needs no approval, the earliest waitlisted contact is
// promoted in the same transaction.
func (e *Engine) Cancel(ctx context.Context, meetingID, slotID, contactID uuid.UUID) (CancelResult, error) {
	var res CancelResult
	var affected []uuid.UUID
	err := e.runner.InMeetingTx(ctx, meetingID, func(s Store) error {
		meeting, err := s.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return notFound("meeting")
		}
		if meeting.Status == models.MeetingCancelled {
			return notBookable("meeting is cancelled")
		}
		slot, err := s.Slot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil || slot.MeetingID != meetingID {
			return notFound("slot")
		}
		role, err := roleOf(ctx, s, slot.RoleID)
		if err != nil {
			return err
		}
		resolver := ownership.NewResolver(s)
		owners, err := resolver.OwnersOfSlot(ctx, slot)
		if err != nil {
			return err
		}
		newOwners := make([]uuid.UUID, 0, len(owners))
		found := false
		for _, o := range owners {
			if o.ContactID == contactID {
				found = true
				continue
			}
			newOwners = append(newOwners, o.ContactID)
		}
		if !found {
			// Not an owner: a waitlisted contact cancels by withdrawing their
			// queue entry. For single_shared roles the queue spans siblings.
			entries, err := waitlistForRole(ctx, s, slot, role)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if entry.ContactID != contactID {
					continue
				}
				if err := s.DeleteWaitlistEntry(ctx, entry.ID); err != nil {
					return err
				}
				if err := refreshSlotState(ctx, s, entry.SlotID); err != nil {
					return err
				}
				affected = []uuid.UUID{entry.SlotID}
				res = CancelResult{OK: true, Reason: "removed from waitlist"}
				return nil
			}
			return notBookable("not an owner of this slot")
		}
		affected, err = applyAssign(ctx, s, role, slot, newOwners)
		if err != nil {
			return err
		}
		res = CancelResult{OK: true, Reason: "cancelled"}

		// Auto-promote. Approval roles stay open: the waitlist there means
		// "pending approval", not "accepted".
		if len(newOwners) == 0 && !role.ApprovalRequired {
			promoted, moreAffected, err := promoteEarliest(ctx, s, slot, role)
			if err != nil {
				return err
			}
			if promoted != nil {
				res.Promoted = promoted
				affected = append(affected, moreAffected...)
			}
		}
		return nil
	})
	if err != nil {
		return CancelResult{Reason: ReasonOf(err)}, err
	}
	ev := Event{Type: "cancelled", MeetingID: meetingID, SlotIDs: affected, ContactID: &contactID}
	if res.Promoted != nil {
		ev.Type = "promoted"
	}
	e.notify.BookingChanged(ctx, ev)
	return res, nil
}

// ApproveWaitlist promotes the earliest waitlisted contact of an
// approval-gated slot to owner. Returns OK=false with reason "empty" when
// nobody is waiting.
func (e *Engine) ApproveWaitlist(ctx context.Context, meetingID, slotID uuid.UUID) (ApproveResult, error) {
	var res ApproveResult
	err := e.runner.InMeetingTx(ctx, meetingID, func(s Store) error {
		meeting, err := s.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return notFound("meeting")
		}
		slot, err := s.Slot(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil || slot.MeetingID != meetingID {
			return notFound("slot")
		}
		role, err := roleOf(ctx, s, slot.RoleID)
		if err != nil {
			return err
		}
		// An empty queue is a soft result, reported before the ownership
		// guard so re-approving an already promoted slot reads as "empty".
		entries, err := waitlistForRole(ctx, s, slot, role)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			res = ApproveResult{OK: false, Reason: "empty"}
			return nil
		}
		resolver := ownership.NewResolver(s)
		owners, err := resolver.OwnersOfSlot(ctx, slot)
		if err != nil {
			return err
		}
		if len(owners) > 0 && role.Cardinality.SingleOwner() {
			return notBookable("slot already has an owner")
		}
		promoted, _, err := promoteEarliest(ctx, s, slot, role)
		if err != nil {
			return err
		}
		if promoted == nil {
			res = ApproveResult{OK: false, Reason: "empty"}
			return nil
		}
		res = ApproveResult{OK: true, Reason: "approved", Promoted: promoted}
		return nil
	})
	if err != nil {
		return ApproveResult{Reason: ReasonOf(err)}, err
	}
	if res.OK {
		e.notify.BookingChanged(ctx, Event{Type: "promoted", MeetingID: meetingID, SlotIDs: []uuid.UUID{slotID}, ContactID: res.Promoted})
	}
	return res, nil
}

// DeleteMeeting removes a meeting and everything hanging off it. The cascade
// order (waitlist, ownership, roster, votes, slots with media, meeting) is
// part of the contract.
func (e *Engine) DeleteMeeting(ctx context.Context, meetingID uuid.UUID) error {
	err := e.runner.InMeetingTx(ctx, meetingID, func(s Store) error {
		meeting, err := s.Meeting(ctx, meetingID)
		if err != nil {
			return err
		}
		if meeting == nil {
			return notFound("meeting")
		}
		if err := s.DeleteWaitlistForMeeting(ctx, meetingID); err != nil {
			return err
		}
		if err := s.DeleteOwnershipForMeeting(ctx, meetingID); err != nil {
			return err
		}
		if err := s.DeleteRosterForMeeting(ctx, meetingID); err != nil {
			return err
		}
		if err := s.DeleteVotesForMeeting(ctx, meetingID); err != nil {
			return err
		}
		if err := s.DeleteSlotsForMeeting(ctx, meetingID); err != nil {
			return err
		}
		return s.DeleteMeetingRow(ctx, meetingID)
	})
	if err != nil {
		return err
	}
	e.notify.BookingChanged(ctx, Event{Type: "meeting_deleted", MeetingID: meetingID})
	return nil
}

// roleOf loads a role and validates its configuration. A missing role or an
// unknown cardinality is a configuration error for the caller, never a
// silent default.
func roleOf(ctx context.Context, s Store, roleID uuid.UUID) (*models.Role, error) {
	role, err := s.Role(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, configErr("unknown role "+roleID.String(), nil)
	}
	if _, err := models.ParseCardinality(string(role.Cardinality)); err != nil {
		return nil, configErr("invalid role configuration", err)
	}
	return role, nil
}

// bestSlot picks the slot a role-addressed booking lands on: unowned first,
// then shortest waitlist, then lowest agenda position.
func bestSlot(ctx context.Context, s Store, meetingID uuid.UUID, role *models.Role) (*models.Slot, error) {
	slots, err := s.SlotsOfRole(ctx, meetingID, role.ID)
	if err != nil {
		return nil, err
	}
	resolver := ownership.NewResolver(s)
	type candidate struct {
		slot  models.Slot
		owned bool
		queue int
	}
	var cands []candidate
	for _, sl := range slots {
		if sl.State == models.SlotStateCancelled {
			continue
		}
		owners, err := resolver.OwnersOfSlot(ctx, &sl)
		if err != nil {
			return nil, err
		}
		wl, err := s.Waitlist(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		cands = append(cands, candidate{slot: sl, owned: len(owners) > 0, queue: len(wl)})
	}
	if len(cands) == 0 {
		return nil, nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].owned != cands[j].owned {
			return !cands[i].owned
		}
		if cands[i].queue != cands[j].queue {
			return cands[i].queue < cands[j].queue
		}
		return cands[i].slot.Seq < cands[j].slot.Seq
	})
	best := cands[0].slot
	return &best, nil
}

// joinWaitlist appends the contact to the slot's queue, idempotently.
func joinWaitlist(ctx context.Context, s Store, slot *models.Slot, contactID uuid.UUID, reason string, res *BookResult) error {
	wl, err := s.Waitlist(ctx, slot.ID)
	if err != nil {
		return err
	}
	for _, entry := range wl {
		if entry.ContactID == contactID {
			*res = BookResult{OK: true, State: StateWaitlisted, Reason: "already waitlisted", SlotID: slot.ID}
			return nil
		}
	}
	if err := s.InsertWaitlistEntry(ctx, &models.WaitlistEntry{SlotID: slot.ID, ContactID: contactID}); err != nil {
		return err
	}
	if err := refreshSlotState(ctx, s, slot.ID); err != nil {
		return err
	}
	*res = BookResult{OK: true, State: StateWaitlisted, Reason: reason, SlotID: slot.ID}
	return nil
}

// promoteEarliest promotes the first waitlisted contact of the slot (or, for
// a single_shared role, of the whole shared group) to owner. The waitlist
// entry disappears as part of the assignment.
func promoteEarliest(ctx context.Context, s Store, slot *models.Slot, role *models.Role) (*uuid.UUID, []uuid.UUID, error) {
	entries, err := waitlistForRole(ctx, s, slot, role)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, nil
	}
	earliest := entries[0]
	target := slot
	if earliest.SlotID != slot.ID {
		target, err = s.Slot(ctx, earliest.SlotID)
		if err != nil {
			return nil, nil, err
		}
		if target == nil {
			return nil, nil, fatalErr("waitlist entry references missing slot")
		}
	}
	newOwners := []uuid.UUID{earliest.ContactID}
	if role.Cardinality == models.CardinalityMulti {
		resolver := ownership.NewResolver(s)
		owners, err := resolver.OwnersOfSlot(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		newOwners = newOwners[:0]
		for _, o := range owners {
			newOwners = append(newOwners, o.ContactID)
		}
		newOwners = append(newOwners, earliest.ContactID)
	}
	affected, err := applyAssign(ctx, s, role, target, newOwners)
	if err != nil {
		return nil, nil, err
	}
	promoted := earliest.ContactID
	return &promoted, affected, nil
}

// waitlistForRole returns the queue feeding a slot: per-slot for distinct and
// multi roles, role-wide (merged FIFO over all sibling slots) for
// single_shared roles.
func waitlistForRole(ctx context.Context, s Store, slot *models.Slot, role *models.Role) ([]models.WaitlistEntry, error) {
	if role.Cardinality != models.CardinalitySingleShared {
		return s.Waitlist(ctx, slot.ID)
	}
	slots, err := s.SlotsOfRole(ctx, slot.MeetingID, role.ID)
	if err != nil {
		return nil, err
	}
	var all []models.WaitlistEntry
	for _, sl := range slots {
		entries, err := s.Waitlist(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}
