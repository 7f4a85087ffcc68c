package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/models"
	"github.com/gavel-club/backend/internal/ownership"
)

type fixture struct {
	store   *memStore
	eng     *Engine
	meeting *models.Meeting
}

func seed(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	meeting := &models.Meeting{
		ID:       uuid.New(),
		ClubID:   uuid.New(),
		Number:   501,
		Title:    "Regular Meeting #501",
		StartsAt: time.Date(2025, 1, 13, 19, 0, 0, 0, time.UTC),
		Status:   models.MeetingOpen,
	}
	s.meetings[meeting.ID] = meeting
	return &fixture{store: s, eng: NewEngine(s, nil, zap.NewNop()), meeting: meeting}
}

func (f *fixture) addRole(name string, card models.Cardinality, mutate func(*models.Role)) *models.Role {
	r := &models.Role{
		ID:          uuid.New(),
		Name:        name,
		Category:    models.RoleCategoryFunctional,
		Cardinality: card,
	}
	if mutate != nil {
		mutate(r)
	}
	f.store.roles[r.ID] = r
	return r
}

func (f *fixture) addSlot(role *models.Role, seq int) *models.Slot {
	sl := &models.Slot{
		ID:        uuid.New(),
		MeetingID: f.meeting.ID,
		Seq:       seq,
		RoleID:    role.ID,
		State:     models.SlotStateActive,
	}
	f.store.slots[sl.ID] = sl
	return sl
}

func (f *fixture) addContact(name string, typ models.ContactType) *models.Contact {
	c := &models.Contact{
		ID:       uuid.New(),
		ClubID:   f.meeting.ClubID,
		Email:    name + "@club.test",
		FullName: name,
		Type:     typ,
	}
	f.store.contacts[c.ID] = c
	return c
}

func (f *fixture) owners(t *testing.T, slotID uuid.UUID) []uuid.UUID {
	t.Helper()
	slot, err := f.store.Slot(context.Background(), slotID)
	require.NoError(t, err)
	require.NotNil(t, slot)
	rows, err := ownership.NewResolver(f.store).OwnersOfSlot(context.Background(), slot)
	require.NoError(t, err)
	out := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ContactID)
	}
	return out
}

func (f *fixture) queue(t *testing.T, slotID uuid.UUID) []uuid.UUID {
	t.Helper()
	entries, err := f.store.Waitlist(context.Background(), slotID)
	require.NoError(t, err)
	out := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ContactID)
	}
	return out
}

func TestBookDistinctSpeakerSlots(t *testing.T) {
	f := seed(t)
	speaker := f.addRole("Speaker", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.Category = models.RoleCategorySpeech
	})
	s1 := f.addSlot(speaker, 1)
	s2 := f.addSlot(speaker, 2)
	a := f.addContact("alice", models.ContactMember)
	b := f.addContact("bob", models.ContactMember)
	ctx := context.Background()

	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s1.ID}, a.ID)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, StateOwned, res.State)
	assert.Equal(t, []uuid.UUID{a.ID}, f.owners(t, s1.ID))

	// Second slot of the same role is off limits for the same contact.
	_, err = f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s2.ID}, a.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotBookable, KindOf(err))
	assert.Equal(t, "already booked a role of this type", ReasonOf(err))
	assert.Empty(t, f.owners(t, s2.ID))

	res, err = f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s2.ID}, b.ID)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []uuid.UUID{b.ID}, f.owners(t, s2.ID))
}

func TestSharedRolePropagatesToAllSlots(t *testing.T) {
	f := seed(t)
	ahc := f.addRole("Ah-Counter", models.CardinalitySingleShared, nil)
	s1 := f.addSlot(ahc, 1)
	s2 := f.addSlot(ahc, 2)
	s3 := f.addSlot(ahc, 3)
	c := f.addContact("carol", models.ContactMember)
	ctx := context.Background()

	res, err := f.eng.Assign(ctx, f.meeting.ID, s2.ID, []uuid.UUID{c.ID})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Len(t, res.AffectedSlots, 3)

	for _, id := range []uuid.UUID{s1.ID, s2.ID, s3.ID} {
		assert.Equal(t, []uuid.UUID{c.ID}, f.owners(t, id))
	}

	// Booking any shared slot while already a holder is a no-op.
	bres, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s3.ID}, c.ID)
	require.NoError(t, err)
	assert.True(t, bres.OK)
	assert.Equal(t, "already booked", bres.Reason)
}

func TestApprovalRoleWaitlistsThenApproves(t *testing.T) {
	f := seed(t)
	ps := f.addRole("Prepared Speech", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.ApprovalRequired = true
	})
	slot := f.addSlot(ps, 1)
	d := f.addContact("dave", models.ContactMember)
	ctx := context.Background()

	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, d.ID)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, StateWaitlisted, res.State)
	assert.Equal(t, "added to waitlist for approval", res.Reason)
	assert.Empty(t, f.owners(t, slot.ID))
	assert.Equal(t, []uuid.UUID{d.ID}, f.queue(t, slot.ID))

	stored, _ := f.store.Slot(ctx, slot.ID)
	assert.Equal(t, models.SlotStateWaiting, stored.State)

	ares, err := f.eng.ApproveWaitlist(ctx, f.meeting.ID, slot.ID)
	require.NoError(t, err)
	assert.True(t, ares.OK)
	require.NotNil(t, ares.Promoted)
	assert.Equal(t, d.ID, *ares.Promoted)
	assert.Equal(t, []uuid.UUID{d.ID}, f.owners(t, slot.ID))
	assert.Empty(t, f.queue(t, slot.ID))

	// Approving again with nobody waiting is a soft failure.
	ares, err = f.eng.ApproveWaitlist(ctx, f.meeting.ID, slot.ID)
	require.NoError(t, err)
	assert.False(t, ares.OK)
	assert.Equal(t, "empty", ares.Reason)
}

func TestAutoPromoteOnCancel(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	e := f.addContact("erin", models.ContactMember)
	fc := f.addContact("frank", models.ContactMember)
	g := f.addContact("grace", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, e.ID)
	require.NoError(t, err)
	for _, c := range []uuid.UUID{fc.ID, g.ID} {
		res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c)
		require.NoError(t, err)
		assert.Equal(t, StateWaitlisted, res.State)
	}
	assert.Equal(t, []uuid.UUID{fc.ID, g.ID}, f.queue(t, slot.ID))

	cres, err := f.eng.Cancel(ctx, f.meeting.ID, slot.ID, e.ID)
	require.NoError(t, err)
	assert.True(t, cres.OK)
	require.NotNil(t, cres.Promoted)
	assert.Equal(t, fc.ID, *cres.Promoted)
	assert.Equal(t, []uuid.UUID{fc.ID}, f.owners(t, slot.ID))
	assert.Equal(t, []uuid.UUID{g.ID}, f.queue(t, slot.ID))

	cres, err = f.eng.Cancel(ctx, f.meeting.ID, slot.ID, fc.ID)
	require.NoError(t, err)
	require.NotNil(t, cres.Promoted)
	assert.Equal(t, g.ID, *cres.Promoted)
	assert.Equal(t, []uuid.UUID{g.ID}, f.owners(t, slot.ID))
	assert.Empty(t, f.queue(t, slot.ID))
}

func TestApprovalRoleDoesNotAutoPromote(t *testing.T) {
	f := seed(t)
	ps := f.addRole("Prepared Speech", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.ApprovalRequired = true
	})
	slot := f.addSlot(ps, 1)
	owner := f.addContact("hana", models.ContactMember)
	waiter := f.addContact("ivan", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{owner.ID})
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	cres, err := f.eng.Cancel(ctx, f.meeting.ID, slot.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, cres.OK)
	assert.Nil(t, cres.Promoted)
	assert.Empty(t, f.owners(t, slot.ID))
	assert.Equal(t, []uuid.UUID{waiter.ID}, f.queue(t, slot.ID))
}

func TestSnapshotProjectCode(t *testing.T) {
	f := seed(t)
	pm := &models.Pathway{ID: uuid.New(), Name: "Presentation Mastery", Abbr: "PM", Kind: models.PathwayKindPathway}
	f.store.pathways[pm.ID] = pm
	proj := &models.Project{ID: uuid.New(), PathwayID: pm.ID, Name: "Persuasive Speaking", Level: 3, Number: 1}
	f.store.projects[proj.ID] = proj

	ps := f.addRole("Prepared Speech", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.Category = models.RoleCategorySpeech
		r.ProjectBearing = true
	})
	slot := f.addSlot(ps, 1)
	cred := "PM2"
	next := "PM3.1"
	h := f.addContact("hugo", models.ContactMember)
	h.PathwayID = &pm.ID
	h.Credentials = &cred
	h.NextProject = &next
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, h.ID)
	require.NoError(t, err)

	stored, _ := f.store.Slot(ctx, slot.ID)
	require.NotNil(t, stored.ProjectCode)
	assert.Equal(t, "PM3.1", *stored.ProjectCode)
	require.NotNil(t, stored.ProjectID)
	assert.Equal(t, proj.ID, *stored.ProjectID)
	require.NotNil(t, stored.Credentials)
	assert.Equal(t, "PM2", *stored.Credentials)
	require.NotNil(t, stored.PathwayName)
	assert.Equal(t, "Presentation Mastery", *stored.PathwayName)
}

func TestSnapshotFallbackLevelCode(t *testing.T) {
	f := seed(t)
	pm := &models.Pathway{ID: uuid.New(), Name: "Presentation Mastery", Abbr: "PM", Kind: models.PathwayKindPathway}
	f.store.pathways[pm.ID] = pm

	ps := f.addRole("Prepared Speech", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.ProjectBearing = true
	})
	slot := f.addSlot(ps, 1)
	cred := "PM2"
	h := f.addContact("hugo", models.ContactMember)
	h.PathwayID = &pm.ID
	h.Credentials = &cred
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, h.ID)
	require.NoError(t, err)

	stored, _ := f.store.Slot(ctx, slot.ID)
	require.NotNil(t, stored.ProjectCode)
	assert.Equal(t, "PM3", *stored.ProjectCode)
	assert.Nil(t, stored.ProjectID)
}

func TestSnapshotClearedOnCancel(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	cred := "DL4"
	c := f.addContact("erin", models.ContactMember)
	c.Credentials = &cred
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c.ID)
	require.NoError(t, err)
	stored, _ := f.store.Slot(ctx, slot.ID)
	require.NotNil(t, stored.Credentials)
	assert.Equal(t, "DL4", *stored.Credentials)

	_, err = f.eng.Cancel(ctx, f.meeting.ID, slot.ID, c.ID)
	require.NoError(t, err)
	stored, _ = f.store.Slot(ctx, slot.ID)
	assert.Nil(t, stored.Credentials)
	assert.Nil(t, stored.ProjectCode)
}

func TestBookThenCancelRestoresState(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	c := f.addContact("erin", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c.ID)
	require.NoError(t, err)
	_, err = f.eng.Cancel(ctx, f.meeting.ID, slot.ID, c.ID)
	require.NoError(t, err)

	assert.Empty(t, f.owners(t, slot.ID))
	assert.Empty(t, f.queue(t, slot.ID))
	stored, _ := f.store.Slot(ctx, slot.ID)
	assert.Equal(t, models.SlotStateActive, stored.State)
}

func TestAssignIdempotent(t *testing.T) {
	f := seed(t)
	ge := f.addRole("General Evaluator", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(ge, 1)
	c := f.addContact("erin", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{c.ID})
	require.NoError(t, err)
	before := len(f.store.ownerships)

	_, err = f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{c.ID})
	require.NoError(t, err)
	assert.Equal(t, before, len(f.store.ownerships))
	assert.Equal(t, []uuid.UUID{c.ID}, f.owners(t, slot.ID))
}

func TestMultiRoleIsAdditive(t *testing.T) {
	f := seed(t)
	tt := f.addRole("Table Topics Participant", models.CardinalityMulti, nil)
	slot := f.addSlot(tt, 1)
	a := f.addContact("alice", models.ContactMember)
	b := f.addContact("bob", models.ContactMember)
	ctx := context.Background()

	for _, c := range []uuid.UUID{a.ID, b.ID} {
		res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c)
		require.NoError(t, err)
		assert.Equal(t, StateOwned, res.State)
	}
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, f.owners(t, slot.ID))
	assert.Empty(t, f.queue(t, slot.ID))
}

func TestMembersOnlyRejectsGuests(t *testing.T) {
	f := seed(t)
	ge := f.addRole("General Evaluator", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.MembersOnly = true
	})
	slot := f.addSlot(ge, 1)
	guest := f.addContact("gus", models.ContactGuest)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, guest.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotBookable, KindOf(err))
	assert.Equal(t, "role is for members only", ReasonOf(err))
	assert.Empty(t, f.owners(t, slot.ID))
}

func TestBookRejectedWhenMeetingNotBookable(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	c := f.addContact("erin", models.ContactMember)
	ctx := context.Background()

	for _, status := range []models.MeetingStatus{models.MeetingFinished, models.MeetingCancelled} {
		f.store.meetings[f.meeting.ID].Status = status
		_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c.ID)
		require.Error(t, err)
		assert.Equal(t, KindNotBookable, KindOf(err))
	}
}

func TestBookByRolePicksBestSlot(t *testing.T) {
	f := seed(t)
	speaker := f.addRole("Speaker", models.CardinalitySingleDistinct, nil)
	s1 := f.addSlot(speaker, 1)
	s2 := f.addSlot(speaker, 2)
	a := f.addContact("alice", models.ContactMember)
	b := f.addContact("bob", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, s1.ID, []uuid.UUID{a.ID})
	require.NoError(t, err)

	// Role-addressed booking lands on the unowned slot.
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{RoleID: &speaker.ID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StateOwned, res.State)
	assert.Equal(t, s2.ID, res.SlotID)
}

func TestUnknownRoleIsConfigError(t *testing.T) {
	f := seed(t)
	sl := &models.Slot{ID: uuid.New(), MeetingID: f.meeting.ID, Seq: 1, RoleID: uuid.New(), State: models.SlotStateActive}
	f.store.slots[sl.ID] = sl
	c := f.addContact("erin", models.ContactMember)

	_, err := f.eng.Book(context.Background(), f.meeting.ID, Target{SlotID: &sl.ID}, c.ID)
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestRosterSyncTicketsAndOrderNumbers(t *testing.T) {
	f := seed(t)
	pres := f.addRole("President", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.Category = models.RoleCategoryOfficer
	})
	saa := f.addRole("Sergeant at Arms", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.Category = models.RoleCategoryOfficer
	})
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	sPres := f.addSlot(pres, 1)
	sSaa := f.addSlot(saa, 2)
	sTmr := f.addSlot(tmr, 3)

	o1 := f.addContact("president", models.ContactOfficer)
	o2 := f.addContact("saa", models.ContactOfficer)
	guest := f.addContact("gus", models.ContactGuest)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, sPres.ID, []uuid.UUID{o1.ID})
	require.NoError(t, err)
	_, err = f.eng.Assign(ctx, f.meeting.ID, sSaa.ID, []uuid.UUID{o2.ID})
	require.NoError(t, err)
	_, err = f.eng.Assign(ctx, f.meeting.ID, sTmr.ID, []uuid.UUID{guest.ID})
	require.NoError(t, err)

	e1, err := f.store.RosterEntry(ctx, f.meeting.ID, o1.ID)
	require.NoError(t, err)
	require.NotNil(t, e1)
	assert.Equal(t, models.TicketOfficer, e1.Ticket)
	require.NotNil(t, e1.OrderNumber)
	assert.Equal(t, 1000, *e1.OrderNumber)

	e2, err := f.store.RosterEntry(ctx, f.meeting.ID, o2.ID)
	require.NoError(t, err)
	require.NotNil(t, e2.OrderNumber)
	assert.Equal(t, 1001, *e2.OrderNumber)

	eg, err := f.store.RosterEntry(ctx, f.meeting.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketRoleTaker, eg.Ticket)
	assert.Nil(t, eg.OrderNumber)

	// Cancelling the role leaves the roster entry in place, role set empty.
	_, err = f.eng.Cancel(ctx, f.meeting.ID, sTmr.ID, guest.ID)
	require.NoError(t, err)
	eg, err = f.store.RosterEntry(ctx, f.meeting.ID, guest.ID)
	require.NoError(t, err)
	require.NotNil(t, eg)
	assert.Empty(t, f.store.rosterRoles[eg.ID])
}

func TestSharedRoleCancelPromotesRoleWide(t *testing.T) {
	f := seed(t)
	ahc := f.addRole("Ah-Counter", models.CardinalitySingleShared, nil)
	s1 := f.addSlot(ahc, 1)
	s2 := f.addSlot(ahc, 2)
	owner := f.addContact("carol", models.ContactMember)
	waiter := f.addContact("dave", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, s1.ID, []uuid.UUID{owner.ID})
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s2.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	// Cancelling on a different sibling still promotes from the role-wide queue.
	cres, err := f.eng.Cancel(ctx, f.meeting.ID, s1.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, cres.Promoted)
	assert.Equal(t, waiter.ID, *cres.Promoted)
	assert.Equal(t, []uuid.UUID{waiter.ID}, f.owners(t, s1.ID))
	assert.Equal(t, []uuid.UUID{waiter.ID}, f.owners(t, s2.ID))
}

func TestDeleteMeetingCascade(t *testing.T) {
	f := seed(t)
	speaker := f.addRole("Speaker", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(speaker, 1)
	a := f.addContact("alice", models.ContactMember)
	b := f.addContact("bob", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, a.ID)
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	require.NoError(t, f.eng.DeleteMeeting(ctx, f.meeting.ID))

	assert.Empty(t, f.store.ownerships)
	assert.Empty(t, f.store.waitlist)
	assert.Empty(t, f.store.rosters)
	assert.Empty(t, f.store.slots)
	m, err := f.store.Meeting(ctx, f.meeting.ID)
	require.NoError(t, err)
	assert.Nil(t, m)

	err = f.eng.DeleteMeeting(ctx, f.meeting.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCancelWithdrawsWaitlistEntry(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	owner := f.addContact("erin", models.ContactMember)
	waiter := f.addContact("frank", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, owner.ID)
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	// Cancelling while waitlisted withdraws the queue entry and leaves the
	// owner untouched.
	cres, err := f.eng.Cancel(ctx, f.meeting.ID, slot.ID, waiter.ID)
	require.NoError(t, err)
	assert.True(t, cres.OK)
	assert.Equal(t, "removed from waitlist", cres.Reason)
	assert.Nil(t, cres.Promoted)
	assert.Equal(t, []uuid.UUID{owner.ID}, f.owners(t, slot.ID))
	assert.Empty(t, f.queue(t, slot.ID))

	// With neither an ownership nor a queue entry there is nothing to cancel.
	_, err = f.eng.Cancel(ctx, f.meeting.ID, slot.ID, waiter.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotBookable, KindOf(err))
}

func TestSharedWaitlistWithdrawalSpansSiblings(t *testing.T) {
	f := seed(t)
	ahc := f.addRole("Ah-Counter", models.CardinalitySingleShared, nil)
	s1 := f.addSlot(ahc, 1)
	s2 := f.addSlot(ahc, 2)
	owner := f.addContact("carol", models.ContactMember)
	waiter := f.addContact("dave", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, s1.ID, []uuid.UUID{owner.ID})
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &s2.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	// Withdrawing through a different sibling finds the role-wide entry.
	cres, err := f.eng.Cancel(ctx, f.meeting.ID, s1.ID, waiter.ID)
	require.NoError(t, err)
	assert.True(t, cres.OK)
	assert.Equal(t, "removed from waitlist", cres.Reason)
	assert.Empty(t, f.queue(t, s1.ID))
	assert.Empty(t, f.queue(t, s2.ID))
}

func TestAssignReorderMovesPrimaryOwner(t *testing.T) {
	f := seed(t)
	tt := f.addRole("Table Topics Participant", models.CardinalityMulti, nil)
	slot := f.addSlot(tt, 1)
	credA, credB := "PM2", "DL4"
	a := f.addContact("alice", models.ContactMember)
	a.Credentials = &credA
	b := f.addContact("bob", models.ContactMember)
	b.Credentials = &credB
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, f.owners(t, slot.ID))
	stored, _ := f.store.Slot(ctx, slot.ID)
	require.NotNil(t, stored.Credentials)
	assert.Equal(t, "PM2", *stored.Credentials)

	// Reordering the same owners moves the primary; the resolver order and
	// the snapshot must agree on the new first contact.
	_, err = f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, f.owners(t, slot.ID))
	stored, _ = f.store.Slot(ctx, slot.ID)
	require.NotNil(t, stored.Credentials)
	assert.Equal(t, "DL4", *stored.Credentials)
}

func TestMultiBookAfterCancelReusesRank(t *testing.T) {
	f := seed(t)
	tt := f.addRole("Table Topics Participant", models.CardinalityMulti, nil)
	slot := f.addSlot(tt, 1)
	a := f.addContact("alice", models.ContactMember)
	b := f.addContact("bob", models.ContactMember)
	c := f.addContact("carol", models.ContactMember)
	ctx := context.Background()

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, id)
		require.NoError(t, err)
	}
	_, err := f.eng.Cancel(ctx, f.meeting.ID, slot.ID, a.ID)
	require.NoError(t, err)

	// The freed rank must be reusable; the store rejects duplicate ranks.
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StateOwned, res.State)
	assert.Equal(t, []uuid.UUID{b.ID, c.ID}, f.owners(t, slot.ID))
}

func TestApproveWaitlistOnOwnedSlotRejected(t *testing.T) {
	f := seed(t)
	ps := f.addRole("Prepared Speech", models.CardinalitySingleDistinct, func(r *models.Role) {
		r.ApprovalRequired = true
	})
	slot := f.addSlot(ps, 1)
	owner := f.addContact("hana", models.ContactMember)
	waiter := f.addContact("ivan", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Assign(ctx, f.meeting.ID, slot.ID, []uuid.UUID{owner.ID})
	require.NoError(t, err)
	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, StateWaitlisted, res.State)

	_, err = f.eng.ApproveWaitlist(ctx, f.meeting.ID, slot.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotBookable, KindOf(err))
	assert.Equal(t, "slot already has an owner", ReasonOf(err))
	assert.Equal(t, []uuid.UUID{waiter.ID}, f.queue(t, slot.ID))
}

func TestRepeatedWaitlistJoinIsIdempotent(t *testing.T) {
	f := seed(t)
	tmr := f.addRole("Timer", models.CardinalitySingleDistinct, nil)
	slot := f.addSlot(tmr, 1)
	owner := f.addContact("erin", models.ContactMember)
	waiter := f.addContact("frank", models.ContactMember)
	ctx := context.Background()

	_, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, owner.ID)
	require.NoError(t, err)

	res, err := f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, "waitlisted", res.Reason)

	res, err = f.eng.Book(ctx, f.meeting.ID, Target{SlotID: &slot.ID}, waiter.ID)
	require.NoError(t, err)
	assert.Equal(t, "already waitlisted", res.Reason)
	assert.Len(t, f.queue(t, slot.ID), 1)
}
