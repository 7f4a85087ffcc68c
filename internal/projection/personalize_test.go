package projection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavel-club/backend/internal/models"
)

func TestPersonalizeForViewer(t *testing.T) {
	viewer := uuid.New()
	other := uuid.New()
	speakerRole := uuid.New()
	timerRole := uuid.New()
	officerRole := uuid.New()

	view := &MeetingView{
		MeetingID: uuid.New(),
		Slots: []SlotView{
			{
				SlotID:   uuid.New(),
				RoleID:   speakerRole,
				RoleName: "Speaker",
				State:    string(models.SlotStateActive),
				Owners:   []OwnerView{{ContactID: viewer, Rank: 0}},
				Waitlist: []WaitView{},
			},
			{
				SlotID:   uuid.New(),
				RoleID:   speakerRole,
				RoleName: "Speaker",
				State:    string(models.SlotStateActive),
				Owners:   []OwnerView{},
				Waitlist: []WaitView{},
			},
			{
				SlotID:   uuid.New(),
				RoleID:   timerRole,
				RoleName: "Timer",
				State:    string(models.SlotStateActive),
				Owners:   []OwnerView{{ContactID: other, Rank: 0}},
				Waitlist: []WaitView{{ContactID: viewer, Position: 1}},
			},
			{
				SlotID:      uuid.New(),
				RoleID:      officerRole,
				RoleName:    "General Evaluator",
				MembersOnly: true,
				State:       string(models.SlotStateActive),
				Owners:      []OwnerView{},
				Waitlist:    []WaitView{},
			},
			{
				SlotID:   uuid.New(),
				RoleID:   uuid.New(),
				RoleName: "Evaluator",
				State:    string(models.SlotStateCancelled),
				Owners:   []OwnerView{},
				Waitlist: []WaitView{},
			},
		},
	}

	got := view.PersonalizeFor(viewer, models.ContactGuest)

	// Holding one Speaker slot blocks the sibling of the same role.
	assert.False(t, got.Slots[0].Bookable)
	assert.False(t, got.Slots[1].Bookable)
	// Already queued on the Timer slot.
	assert.False(t, got.Slots[2].Bookable)
	require.NotNil(t, got.Slots[2].MyWaitlistPosition)
	assert.Equal(t, 1, *got.Slots[2].MyWaitlistPosition)
	// Members-only role rejects a guest; cancelled slots are closed for all.
	assert.False(t, got.Slots[3].Bookable)
	assert.False(t, got.Slots[4].Bookable)

	// A member without the role and without a queue entry may book.
	member := view.PersonalizeFor(other, models.ContactMember)
	assert.True(t, member.Slots[1].Bookable)
	assert.True(t, member.Slots[3].Bookable)
	assert.Nil(t, member.Slots[1].MyWaitlistPosition)

	// The shared view stays viewer-neutral.
	assert.False(t, view.Slots[2].Bookable)
	assert.Nil(t, view.Slots[2].MyWaitlistPosition)
}
