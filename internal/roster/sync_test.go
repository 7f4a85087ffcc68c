package roster

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavel-club/backend/internal/models"
)

type fakeSyncStore struct {
	contacts map[uuid.UUID]*models.Contact
	entries  map[uuid.UUID]*models.RosterEntry // keyed by contact id
	roles    map[uuid.UUID]map[uuid.UUID]bool  // roster id -> role ids
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		contacts: map[uuid.UUID]*models.Contact{},
		entries:  map[uuid.UUID]*models.RosterEntry{},
		roles:    map[uuid.UUID]map[uuid.UUID]bool{},
	}
}

func (f *fakeSyncStore) addContact(typ models.ContactType) uuid.UUID {
	id := uuid.New()
	f.contacts[id] = &models.Contact{ID: id, Type: typ}
	return id
}

func (f *fakeSyncStore) Contact(_ context.Context, id uuid.UUID) (*models.Contact, error) {
	return f.contacts[id], nil
}

func (f *fakeSyncStore) RosterEntry(_ context.Context, _, contactID uuid.UUID) (*models.RosterEntry, error) {
	return f.entries[contactID], nil
}

func (f *fakeSyncStore) InsertRosterEntry(_ context.Context, e *models.RosterEntry) error {
	e.ID = uuid.New()
	f.entries[e.ContactID] = e
	f.roles[e.ID] = map[uuid.UUID]bool{}
	return nil
}

func (f *fakeSyncStore) MaxOfficerOrder(_ context.Context, _ uuid.UUID) (int, error) {
	max := 0
	for _, e := range f.entries {
		if e.OrderNumber != nil && *e.OrderNumber > max {
			max = *e.OrderNumber
		}
	}
	return max, nil
}

func (f *fakeSyncStore) AddRosterRole(_ context.Context, rosterID, roleID uuid.UUID) error {
	f.roles[rosterID][roleID] = true
	return nil
}

func (f *fakeSyncStore) RemoveRosterRole(_ context.Context, rosterID, roleID uuid.UUID) error {
	delete(f.roles[rosterID], roleID)
	return nil
}

func TestAssignCreatesEntryWithTicket(t *testing.T) {
	ctx := context.Background()
	s := newFakeSyncStore()
	meetingID := uuid.New()
	roleID := uuid.New()

	member := s.addContact(models.ContactMember)
	require.NoError(t, Assign(ctx, s, meetingID, member, roleID))
	entry := s.entries[member]
	require.NotNil(t, entry)
	assert.Equal(t, models.TicketMember, entry.Ticket)
	assert.Nil(t, entry.OrderNumber)

	guest := s.addContact(models.ContactGuest)
	require.NoError(t, Assign(ctx, s, meetingID, guest, roleID))
	assert.Equal(t, models.TicketRoleTaker, s.entries[guest].Ticket)
}

func TestOfficerOrderNumbersStartAt1000(t *testing.T) {
	ctx := context.Background()
	s := newFakeSyncStore()
	meetingID := uuid.New()
	roleID := uuid.New()

	first := s.addContact(models.ContactOfficer)
	second := s.addContact(models.ContactOfficer)
	require.NoError(t, Assign(ctx, s, meetingID, first, roleID))
	require.NoError(t, Assign(ctx, s, meetingID, second, roleID))

	require.NotNil(t, s.entries[first].OrderNumber)
	require.NotNil(t, s.entries[second].OrderNumber)
	assert.Equal(t, 1000, *s.entries[first].OrderNumber)
	assert.Equal(t, 1001, *s.entries[second].OrderNumber)
	assert.Equal(t, models.TicketOfficer, s.entries[first].Ticket)
}

func TestUnassignKeepsEntry(t *testing.T) {
	ctx := context.Background()
	s := newFakeSyncStore()
	meetingID := uuid.New()
	roleID := uuid.New()
	contact := s.addContact(models.ContactMember)

	require.NoError(t, Assign(ctx, s, meetingID, contact, roleID))
	entry := s.entries[contact]
	require.True(t, s.roles[entry.ID][roleID])

	require.NoError(t, Unassign(ctx, s, meetingID, contact, roleID))
	assert.Empty(t, s.roles[entry.ID])
	assert.NotNil(t, s.entries[contact], "entry stays for attendance")
}

func TestAssignUnknownContactFails(t *testing.T) {
	ctx := context.Background()
	s := newFakeSyncStore()
	err := Assign(ctx, s, uuid.New(), uuid.New(), uuid.New())
	assert.Error(t, err)
}

func TestAssignDeduplicatesRoles(t *testing.T) {
	ctx := context.Background()
	s := newFakeSyncStore()
	meetingID := uuid.New()
	roleID := uuid.New()
	contact := s.addContact(models.ContactMember)

	require.NoError(t, Assign(ctx, s, meetingID, contact, roleID))
	require.NoError(t, Assign(ctx, s, meetingID, contact, roleID))
	assert.Len(t, s.roles[s.entries[contact].ID], 1)
}
