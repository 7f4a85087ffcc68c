package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gavel-club/backend/internal/models"
)

// memStore is an in-memory Store and Runner for engine tests. It is
// serialized by a single mutex; the engine's pre-checks fail before any write,
// so rollback is not modeled.
type memStore struct {
	mu          sync.Mutex
	meetings    map[uuid.UUID]*models.Meeting
	roles       map[uuid.UUID]*models.Role
	contacts    map[uuid.UUID]*models.Contact
	slots       map[uuid.UUID]*models.Slot
	ownerships  map[uuid.UUID]*models.Ownership
	waitlist    map[uuid.UUID]*models.WaitlistEntry
	rosters     map[uuid.UUID]*models.RosterEntry
	rosterRoles map[uuid.UUID]map[uuid.UUID]struct{}
	pathways    map[uuid.UUID]*models.Pathway
	projects    map[uuid.UUID]*models.Project
	now         time.Time
}

func newMemStore() *memStore {
	return &memStore{
		meetings:    map[uuid.UUID]*models.Meeting{},
		roles:       map[uuid.UUID]*models.Role{},
		contacts:    map[uuid.UUID]*models.Contact{},
		slots:       map[uuid.UUID]*models.Slot{},
		ownerships:  map[uuid.UUID]*models.Ownership{},
		waitlist:    map[uuid.UUID]*models.WaitlistEntry{},
		rosters:     map[uuid.UUID]*models.RosterEntry{},
		rosterRoles: map[uuid.UUID]map[uuid.UUID]struct{}{},
		pathways:    map[uuid.UUID]*models.Pathway{},
		projects:    map[uuid.UUID]*models.Project{},
		now:         time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp for FIFO ordering.
func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memStore) InMeetingTx(ctx context.Context, meetingID uuid.UUID, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *memStore) Meeting(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	if mt, ok := m.meetings[id]; ok {
		cp := *mt
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Role(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	if r, ok := m.roles[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Contact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	if c, ok := m.contacts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Slot(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	if sl, ok := m.slots[id]; ok {
		cp := *sl
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) SlotsOfMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Slot, error) {
	var list []models.Slot
	for _, sl := range m.slots {
		if sl.MeetingID == meetingID {
			list = append(list, *sl)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (m *memStore) SlotsOfRole(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Slot, error) {
	var list []models.Slot
	for _, sl := range m.slots {
		if sl.MeetingID == meetingID && sl.RoleID == roleID {
			list = append(list, *sl)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	return list, nil
}

func (m *memStore) UpdateSlotSnapshot(ctx context.Context, slotID uuid.UUID, snap models.SlotSnapshot) error {
	sl := m.slots[slotID]
	sl.Credentials = snap.Credentials
	sl.ProjectCode = snap.ProjectCode
	sl.PathwayName = snap.PathwayName
	sl.ProjectID = snap.ProjectID
	return nil
}

func (m *memStore) UpdateSlotState(ctx context.Context, slotID uuid.UUID, state models.SlotState) error {
	m.slots[slotID].State = state
	return nil
}

func (m *memStore) ownershipList(match func(*models.Ownership) bool) []models.Ownership {
	var list []models.Ownership
	for _, o := range m.ownerships {
		if match(o) {
			list = append(list, *o)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Rank != list[j].Rank {
			return list[i].Rank < list[j].Rank
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (m *memStore) SlotOwnerships(ctx context.Context, slotID uuid.UUID) ([]models.Ownership, error) {
	return m.ownershipList(func(o *models.Ownership) bool {
		return o.SlotID != nil && *o.SlotID == slotID
	}), nil
}

func (m *memStore) RoleOwnerships(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Ownership, error) {
	return m.ownershipList(func(o *models.Ownership) bool {
		return o.MeetingID == meetingID && o.RoleID == roleID
	}), nil
}

func (m *memStore) ContactOwnerships(ctx context.Context, meetingID, contactID uuid.UUID) ([]models.Ownership, error) {
	return m.ownershipList(func(o *models.Ownership) bool {
		return o.MeetingID == meetingID && o.ContactID == contactID
	}), nil
}

// ownershipRankTaken mirrors the store's unique rank indexes: one per
// (slot, rank) for slot-bound rows, one per (meeting, role, rank) for
// slot-less shared rows.
func (m *memStore) ownershipRankTaken(o *models.Ownership) bool {
	for _, ex := range m.ownerships {
		if ex.ID == o.ID || ex.Rank != o.Rank {
			continue
		}
		if o.SlotID != nil && ex.SlotID != nil && *ex.SlotID == *o.SlotID {
			return true
		}
		if o.SlotID == nil && ex.SlotID == nil && ex.MeetingID == o.MeetingID && ex.RoleID == o.RoleID {
			return true
		}
	}
	return false
}

func (m *memStore) InsertOwnership(ctx context.Context, o *models.Ownership) error {
	o.ID = uuid.New()
	o.CreatedAt = m.tick()
	if m.ownershipRankTaken(o) {
		return &Error{Kind: KindConflict, Reason: "slot was taken concurrently"}
	}
	cp := *o
	m.ownerships[o.ID] = &cp
	return nil
}

func (m *memStore) UpdateOwnershipRank(ctx context.Context, id uuid.UUID, rank int) error {
	o := m.ownerships[id]
	moved := *o
	moved.Rank = rank
	if m.ownershipRankTaken(&moved) {
		return &Error{Kind: KindConflict, Reason: "slot was taken concurrently"}
	}
	o.Rank = rank
	return nil
}

func (m *memStore) DeleteOwnership(ctx context.Context, id uuid.UUID) error {
	delete(m.ownerships, id)
	return nil
}

func (m *memStore) Waitlist(ctx context.Context, slotID uuid.UUID) ([]models.WaitlistEntry, error) {
	var list []models.WaitlistEntry
	for _, e := range m.waitlist {
		if e.SlotID == slotID {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *memStore) InsertWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = m.tick()
	cp := *e
	m.waitlist[e.ID] = &cp
	return nil
}

func (m *memStore) DeleteWaitlistEntry(ctx context.Context, id uuid.UUID) error {
	delete(m.waitlist, id)
	return nil
}

func (m *memStore) RosterEntry(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error) {
	for _, e := range m.rosters {
		if e.MeetingID == meetingID && e.ContactID == contactID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) InsertRosterEntry(ctx context.Context, e *models.RosterEntry) error {
	e.ID = uuid.New()
	e.CreatedAt = m.tick()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.rosters[e.ID] = &cp
	m.rosterRoles[e.ID] = map[uuid.UUID]struct{}{}
	return nil
}

func (m *memStore) MaxOfficerOrder(ctx context.Context, meetingID uuid.UUID) (int, error) {
	max := 0
	for _, e := range m.rosters {
		if e.MeetingID == meetingID && e.OrderNumber != nil && *e.OrderNumber > max {
			max = *e.OrderNumber
		}
	}
	return max, nil
}

func (m *memStore) AddRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error {
	m.rosterRoles[rosterID][roleID] = struct{}{}
	return nil
}

func (m *memStore) RemoveRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error {
	delete(m.rosterRoles[rosterID], roleID)
	return nil
}

func (m *memStore) Pathway(ctx context.Context, id uuid.UUID) (*models.Pathway, error) {
	if p, ok := m.pathways[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Project(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) ProjectByCode(ctx context.Context, pathwayID uuid.UUID, level, number int) (*models.Project, error) {
	for _, p := range m.projects {
		if p.PathwayID == pathwayID && p.Level == level && p.Number == number {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) DeleteWaitlistForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	for id, e := range m.waitlist {
		if sl, ok := m.slots[e.SlotID]; ok && sl.MeetingID == meetingID {
			delete(m.waitlist, id)
		}
	}
	return nil
}

func (m *memStore) DeleteOwnershipForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	for id, o := range m.ownerships {
		if o.MeetingID == meetingID {
			delete(m.ownerships, id)
		}
	}
	return nil
}

func (m *memStore) DeleteRosterForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	for id, e := range m.rosters {
		if e.MeetingID == meetingID {
			delete(m.rosterRoles, id)
			delete(m.rosters, id)
		}
	}
	return nil
}

func (m *memStore) DeleteVotesForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	return nil
}

func (m *memStore) DeleteSlotsForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	for id, sl := range m.slots {
		if sl.MeetingID == meetingID {
			delete(m.slots, id)
		}
	}
	return nil
}

func (m *memStore) DeleteMeetingRow(ctx context.Context, meetingID uuid.UUID) error {
	delete(m.meetings, meetingID)
	return nil
}
