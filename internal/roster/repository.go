package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

// AttendeeRow is one row for GET /meetings/:id/roster.
type AttendeeRow struct {
	ContactID   uuid.UUID          `json:"contact_id"`
	Name        string             `json:"name"`
	Ticket      models.TicketClass `json:"ticket"`
	OrderNumber *int               `json:"order_number,omitempty"`
	Roles       []string           `json:"roles"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Repository handles roster persistence outside the engine transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roster repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByMeeting returns the attendance list for a meeting. Officers sort
// first by order number, then everyone else by arrival.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]AttendeeRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ro.contact_id, c.full_name, ro.ticket, ro.order_number, ro.created_at,
		        COALESCE(array_agg(rl.name ORDER BY rl.name) FILTER (WHERE rl.name IS NOT NULL), '{}')
		 FROM rosters ro
		 JOIN contacts c ON c.id = ro.contact_id
		 LEFT JOIN roster_roles rr ON rr.roster_id = ro.id
		 LEFT JOIN roles rl ON rl.id = rr.role_id
		 WHERE ro.meeting_id = $1
		 GROUP BY ro.contact_id, c.full_name, ro.ticket, ro.order_number, ro.created_at
		 ORDER BY ro.order_number NULLS LAST, ro.created_at`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []AttendeeRow
	for rows.Next() {
		var row AttendeeRow
		if err := rows.Scan(&row.ContactID, &row.Name, &row.Ticket, &row.OrderNumber, &row.CreatedAt, &row.Roles); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

// GetEntry returns the roster entry of one contact in a meeting, or nil.
func (r *Repository) GetEntry(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error) {
	const query = `SELECT id, meeting_id, contact_id, ticket, order_number, created_at, updated_at
		FROM rosters WHERE meeting_id = $1 AND contact_id = $2`
	var e models.RosterEntry
	err := r.pool.QueryRow(ctx, query, meetingID, contactID).
		Scan(&e.ID, &e.MeetingID, &e.ContactID, &e.Ticket, &e.OrderNumber, &e.CreatedAt, &e.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RSVP inserts a role-less roster entry so a contact appears in the
// attendance list without holding a role. The ticket follows the contact's
// standing (guests get a guest ticket). Idempotent on re-RSVP.
func (r *Repository) RSVP(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error) {
	const query = `INSERT INTO rosters (id, meeting_id, contact_id, ticket)
		SELECT gen_random_uuid(), $1, c.id,
		       CASE WHEN c.type = 'guest' THEN 'guest' ELSE 'member' END
		FROM contacts c WHERE c.id = $2
		ON CONFLICT (meeting_id, contact_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, meeting_id, contact_id, ticket, order_number, created_at, updated_at`
	var e models.RosterEntry
	err := r.pool.QueryRow(ctx, query, meetingID, contactID).
		Scan(&e.ID, &e.MeetingID, &e.ContactID, &e.Ticket, &e.OrderNumber, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GuestRSVP registers a visitor by email: a guest contact is created on first
// visit (existing contacts of any standing are reused) and put on the roster.
func (r *Repository) GuestRSVP(ctx context.Context, clubID, meetingID uuid.UUID, email, fullName string) (*models.RosterEntry, error) {
	var contactID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (club_id, email, full_name, type, access_role)
		 VALUES ($1, $2, $3, 'guest', 'member')
		 ON CONFLICT (club_id, email) DO UPDATE SET updated_at = NOW()
		 RETURNING id`,
		clubID, email, fullName).Scan(&contactID)
	if err != nil {
		return nil, err
	}
	return r.RSVP(ctx, meetingID, contactID)
}

// CancelRSVP removes a contact's roster entry when it has no roles attached.
// Returns false when the entry still carries roles (the engine owns it then).
func (r *Repository) CancelRSVP(ctx context.Context, meetingID, contactID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM rosters ro
		 WHERE ro.meeting_id = $1 AND ro.contact_id = $2
		   AND NOT EXISTS (SELECT 1 FROM roster_roles rr WHERE rr.roster_id = ro.id)`,
		meetingID, contactID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
