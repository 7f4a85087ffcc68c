package projection

import (
	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
)

// PersonalizeFor derives the viewer-specific slot fields on a copy of the
// shared view: the caller's own waitlist position and whether each slot is
// open to them. Bookable mirrors the engine's pre-checks; true means a
// booking attempt would be accepted, as ownership or a queue position.
func (v *MeetingView) PersonalizeFor(contactID uuid.UUID, viewerType models.ContactType) *MeetingView {
	held := map[uuid.UUID]bool{}
	for _, sv := range v.Slots {
		for _, o := range sv.Owners {
			if o.ContactID == contactID {
				held[sv.RoleID] = true
			}
		}
	}
	out := *v
	out.Slots = append([]SlotView(nil), v.Slots...)
	for i := range out.Slots {
		sv := &out.Slots[i]
		sv.MyWaitlistPosition = nil
		for _, w := range sv.Waitlist {
			if w.ContactID == contactID {
				pos := w.Position
				sv.MyWaitlistPosition = &pos
				break
			}
		}
		bookable := sv.State != string(models.SlotStateCancelled)
		if held[sv.RoleID] {
			bookable = false
		}
		if sv.MembersOnly && !viewerType.IsMember() {
			bookable = false
		}
		if sv.MyWaitlistPosition != nil {
			bookable = false
		}
		sv.Bookable = bookable
	}
	return &out
}
