package projection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OwnerView is one contact shown on a slot, in rank order.
type OwnerView struct {
	ContactID uuid.UUID `json:"contact_id"`
	FullName  string    `json:"full_name"`
	AvatarKey *string   `json:"avatar_key,omitempty"`
	Rank      int       `json:"rank"`
}

// WaitView is one waitlisted contact, in FIFO order.
type WaitView struct {
	ContactID uuid.UUID `json:"contact_id"`
	FullName  string    `json:"full_name"`
	Position  int       `json:"position"`
}

// SlotView is the read model of one agenda slot with its resolved owners.
// Bookable and MyWaitlistPosition are viewer-specific: they stay zero in the
// shared view and are filled by PersonalizeFor.
type SlotView struct {
	SlotID             uuid.UUID   `json:"slot_id"`
	Seq                int         `json:"seq"`
	RoleID             uuid.UUID   `json:"role_id"`
	RoleName           string      `json:"role_name"`
	Category           string      `json:"category"`
	Cardinality        string      `json:"cardinality"`
	MembersOnly        bool        `json:"members_only"`
	ApprovalRequired   bool        `json:"approval_required"`
	State              string      `json:"state"`
	Title              *string     `json:"title,omitempty"`
	StartsAt           *time.Time  `json:"starts_at,omitempty"`
	DurationMin        *int        `json:"duration_min,omitempty"`
	DurationMax        *int        `json:"duration_max,omitempty"`
	Credentials        *string     `json:"credentials,omitempty"`
	ProjectCode        *string     `json:"project_code,omitempty"`
	PathwayName        *string     `json:"pathway_name,omitempty"`
	Owners             []OwnerView `json:"owners"`
	Waitlist           []WaitView  `json:"waitlist"`
	Bookable           bool        `json:"bookable"`
	MyWaitlistPosition *int        `json:"my_waitlist_position,omitempty"`
}

// MeetingView is the full booking projection of one meeting: the agenda in
// order, slots grouped by award category and the role names each contact holds.
type MeetingView struct {
	MeetingID    uuid.UUID              `json:"meeting_id"`
	Slots        []SlotView             `json:"slots"`
	ByCategory   map[string][]uuid.UUID `json:"by_category"`   // category -> slot ids
	ContactRoles map[string][]string    `json:"contact_roles"` // contact id -> role names
	GeneratedAt  time.Time              `json:"generated_at"`
}

// Builder assembles meeting projections from the primary store.
type Builder struct {
	pool *pgxpool.Pool
}

// NewBuilder creates a projection builder.
func NewBuilder(pool *pgxpool.Pool) *Builder {
	return &Builder{pool: pool}
}

// Build assembles the projection of one meeting. Shared-role owners are
// resolved onto every sibling slot of the role.
func (b *Builder) Build(ctx context.Context, meetingID uuid.UUID) (*MeetingView, error) {
	view := &MeetingView{
		MeetingID:    meetingID,
		ByCategory:   map[string][]uuid.UUID{},
		ContactRoles: map[string][]string{},
		GeneratedAt:  time.Now().UTC(),
	}

	const slotsQ = `SELECT s.id, s.seq, s.role_id, r.name, r.category, r.cardinality,
			r.members_only, r.approval_required, s.state,
			s.title, s.starts_at, s.duration_min, s.duration_max,
			s.credentials, s.project_code, s.pathway_name
		FROM slots s
		JOIN roles r ON r.id = s.role_id
		WHERE s.meeting_id = $1
		ORDER BY s.seq`
	rows, err := b.pool.Query(ctx, slotsQ, meetingID)
	if err != nil {
		return nil, err
	}
	index := map[uuid.UUID]int{}
	roleSlots := map[uuid.UUID][]uuid.UUID{}
	for rows.Next() {
		var sv SlotView
		if err := rows.Scan(&sv.SlotID, &sv.Seq, &sv.RoleID, &sv.RoleName, &sv.Category, &sv.Cardinality,
			&sv.MembersOnly, &sv.ApprovalRequired, &sv.State,
			&sv.Title, &sv.StartsAt, &sv.DurationMin, &sv.DurationMax,
			&sv.Credentials, &sv.ProjectCode, &sv.PathwayName); err != nil {
			rows.Close()
			return nil, err
		}
		sv.Owners = []OwnerView{}
		sv.Waitlist = []WaitView{}
		index[sv.SlotID] = len(view.Slots)
		roleSlots[sv.RoleID] = append(roleSlots[sv.RoleID], sv.SlotID)
		view.ByCategory[sv.Category] = append(view.ByCategory[sv.Category], sv.SlotID)
		view.Slots = append(view.Slots, sv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const ownersQ = `SELECT o.slot_id, o.role_id, o.contact_id, c.full_name, c.avatar_key, o.owner_rank
		FROM ownership o
		JOIN contacts c ON c.id = o.contact_id
		WHERE o.meeting_id = $1
		ORDER BY o.owner_rank, o.created_at`
	rows, err = b.pool.Query(ctx, ownersQ, meetingID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var slotID *uuid.UUID
		var roleID, contactID uuid.UUID
		var ov OwnerView
		if err := rows.Scan(&slotID, &roleID, &contactID, &ov.FullName, &ov.AvatarKey, &ov.Rank); err != nil {
			rows.Close()
			return nil, err
		}
		ov.ContactID = contactID
		// Slot-less rows belong to a shared role and appear on every sibling.
		targets := roleSlots[roleID]
		if slotID != nil {
			targets = []uuid.UUID{*slotID}
		}
		for _, id := range targets {
			if i, ok := index[id]; ok {
				view.Slots[i].Owners = append(view.Slots[i].Owners, ov)
			}
		}
		key := contactID.String()
		roleName := ""
		for _, id := range targets {
			if i, ok := index[id]; ok {
				roleName = view.Slots[i].RoleName
				break
			}
		}
		if roleName != "" && !contains(view.ContactRoles[key], roleName) {
			view.ContactRoles[key] = append(view.ContactRoles[key], roleName)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const waitQ = `SELECT w.slot_id, w.contact_id, c.full_name
		FROM waitlist w
		JOIN slots s ON s.id = w.slot_id
		JOIN contacts c ON c.id = w.contact_id
		WHERE s.meeting_id = $1
		ORDER BY w.created_at`
	rows, err = b.pool.Query(ctx, waitQ, meetingID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var slotID, contactID uuid.UUID
		var fullName string
		if err := rows.Scan(&slotID, &contactID, &fullName); err != nil {
			rows.Close()
			return nil, err
		}
		if i, ok := index[slotID]; ok {
			view.Slots[i].Waitlist = append(view.Slots[i].Waitlist, WaitView{
				ContactID: contactID,
				FullName:  fullName,
				Position:  len(view.Slots[i].Waitlist) + 1,
			})
		}
	}
	rows.Close()
	return view, rows.Err()
}

// RolesOfContact returns the role names a contact holds across a meeting,
// derived from the same ownership rows the projection uses.
func (b *Builder) RolesOfContact(ctx context.Context, meetingID, contactID uuid.UUID) ([]string, error) {
	const q = `SELECT DISTINCT r.name FROM ownership o
		JOIN roles r ON r.id = o.role_id
		WHERE o.meeting_id = $1 AND o.contact_id = $2
		ORDER BY r.name`
	rows, err := b.pool.Query(ctx, q, meetingID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
