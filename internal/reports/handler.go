// Package reports aggregates participation statistics for a club.
package reports

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/middleware"
	"github.com/gavel-club/backend/pkg/response"
)

// Handler handles GET /reports/*.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a reports handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// ClubSummary is the JSON shape for the club participation report.
type ClubSummary struct {
	MeetingsHeld      int     `json:"meetings_held"`
	MeetingsUpcoming  int     `json:"meetings_upcoming"`
	ActiveMembers     int     `json:"active_members"`
	RolesFilled       int     `json:"roles_filled"`
	RolesOpen         int     `json:"roles_open"`
	FillRatePercent   float64 `json:"fill_rate_percent"`
	WaitlistedEntries int     `json:"waitlisted_entries"`
	GuestVisits       int     `json:"guest_visits"`
}

// MemberRow is one member's participation line.
type MemberRow struct {
	ContactID     uuid.UUID  `json:"contact_id"`
	Name          string     `json:"name"`
	MeetingsIn    int        `json:"meetings_attended"`
	RolesTaken    int        `json:"roles_taken"`
	SpeechesGiven int        `json:"speeches_given"`
	LastSeen      *time.Time `json:"last_seen,omitempty"`
}

// ClubReport handles GET /reports/club (officer/admin).
func (h *Handler) ClubReport(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	ctx := c.Request.Context()

	var out ClubSummary
	const meetQ = `SELECT
		COUNT(*) FILTER (WHERE status = 'finished'),
		COUNT(*) FILTER (WHERE status IN ('draft', 'open'))
		FROM meetings WHERE club_id = $1`
	if err := h.pool.QueryRow(ctx, meetQ, clubID).Scan(&out.MeetingsHeld, &out.MeetingsUpcoming); err != nil {
		response.Internal(c, "failed to load meeting counts")
		return
	}

	const slotQ = `SELECT
		COUNT(*) FILTER (WHERE owned),
		COUNT(*) FILTER (WHERE NOT owned)
		FROM (
			SELECT EXISTS (
				SELECT 1 FROM ownership o
				WHERE o.slot_id = s.id
				   OR (o.slot_id IS NULL AND o.meeting_id = s.meeting_id AND o.role_id = s.role_id)
			) AS owned
			FROM slots s JOIN meetings m ON m.id = s.meeting_id
			WHERE m.club_id = $1 AND s.state <> 'cancelled'
		) t`
	if err := h.pool.QueryRow(ctx, slotQ, clubID).Scan(&out.RolesFilled, &out.RolesOpen); err != nil {
		response.Internal(c, "failed to load slot counts")
		return
	}
	if total := out.RolesFilled + out.RolesOpen; total > 0 {
		out.FillRatePercent = float64(out.RolesFilled) / float64(total) * 100
	}

	const activeQ = `SELECT COUNT(DISTINCT ro.contact_id)
		FROM rosters ro JOIN meetings m ON m.id = ro.meeting_id
		WHERE m.club_id = $1 AND ro.ticket IN ('member', 'officer')`
	_ = h.pool.QueryRow(ctx, activeQ, clubID).Scan(&out.ActiveMembers)

	const waitQ = `SELECT COUNT(*) FROM waitlist w
		JOIN slots s ON s.id = w.slot_id
		JOIN meetings m ON m.id = s.meeting_id WHERE m.club_id = $1`
	_ = h.pool.QueryRow(ctx, waitQ, clubID).Scan(&out.WaitlistedEntries)

	const guestQ = `SELECT COUNT(*) FROM rosters ro
		JOIN meetings m ON m.id = ro.meeting_id
		WHERE m.club_id = $1 AND ro.ticket = 'guest'`
	_ = h.pool.QueryRow(ctx, guestQ, clubID).Scan(&out.GuestVisits)

	response.OK(c, out)
}

// MemberReport handles GET /reports/members (officer/admin). Lists each
// member with attendance, role and speech counts across finished meetings.
func (h *Handler) MemberReport(c *gin.Context) {
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	ctx := c.Request.Context()

	const q = `SELECT c.id, c.full_name,
		COUNT(DISTINCT ro.meeting_id),
		COUNT(rr.role_id),
		COUNT(rr.role_id) FILTER (WHERE rl.category = 'speech'),
		MAX(ro.created_at)
		FROM contacts c
		LEFT JOIN rosters ro ON ro.contact_id = c.id
		LEFT JOIN roster_roles rr ON rr.roster_id = ro.id
		LEFT JOIN roles rl ON rl.id = rr.role_id
		WHERE c.club_id = $1 AND c.type IN ('member', 'officer')
		GROUP BY c.id, c.full_name
		ORDER BY COUNT(DISTINCT ro.meeting_id) DESC, c.full_name`
	rows, err := h.pool.Query(ctx, q, clubID)
	if err != nil {
		response.Internal(c, "failed to load member report")
		return
	}
	defer rows.Close()

	list := []MemberRow{}
	for rows.Next() {
		var row MemberRow
		if err := rows.Scan(&row.ContactID, &row.Name, &row.MeetingsIn, &row.RolesTaken, &row.SpeechesGiven, &row.LastSeen); err != nil {
			response.Internal(c, "failed to scan member report")
			return
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to load member report")
		return
	}
	response.OK(c, gin.H{"members": list})
}

// MeetingReport handles GET /reports/meetings/:id (officer/admin). Per
// meeting: attendance, fill rate and award winners.
func (h *Handler) MeetingReport(c *gin.Context) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	clubID := c.MustGet(middleware.ContextClubID).(uuid.UUID)
	ctx := c.Request.Context()

	var exists bool
	if err := h.pool.QueryRow(ctx,
		`SELECT true FROM meetings WHERE id = $1 AND club_id = $2`, meetingID, clubID).Scan(&exists); err != nil {
		response.NotFound(c, "meeting not found")
		return
	}

	out := gin.H{}
	var attendees, guests int
	const rosterQ = `SELECT COUNT(*), COUNT(*) FILTER (WHERE ticket = 'guest') FROM rosters WHERE meeting_id = $1`
	if err := h.pool.QueryRow(ctx, rosterQ, meetingID).Scan(&attendees, &guests); err != nil {
		response.Internal(c, "failed to load attendance")
		return
	}
	out["attendees"] = attendees
	out["guests"] = guests

	var booked, open int
	const slotQ = `SELECT
		COUNT(*) FILTER (WHERE owned),
		COUNT(*) FILTER (WHERE NOT owned)
		FROM (
			SELECT EXISTS (
				SELECT 1 FROM ownership o
				WHERE o.slot_id = s.id
				   OR (o.slot_id IS NULL AND o.meeting_id = s.meeting_id AND o.role_id = s.role_id)
			) AS owned
			FROM slots s WHERE s.meeting_id = $1 AND s.state <> 'cancelled'
		) t`
	if err := h.pool.QueryRow(ctx, slotQ, meetingID).Scan(&booked, &open); err != nil {
		response.Internal(c, "failed to load slots")
		return
	}
	out["slots_booked"] = booked
	out["slots_open"] = open

	type winner struct {
		Category  string     `json:"category"`
		NomineeID *uuid.UUID `json:"nominee_id,omitempty"`
		Votes     int        `json:"votes"`
	}
	winners := []winner{}
	const winQ = `SELECT vc.name, v.nominee_id, COUNT(*)
		FROM vote_categories vc
		JOIN votes v ON v.category_id = vc.id
		WHERE vc.meeting_id = $1 AND NOT vc.open
		GROUP BY vc.name, v.nominee_id
		ORDER BY vc.name, COUNT(*) DESC`
	rows, err := h.pool.Query(ctx, winQ, meetingID)
	if err == nil {
		defer rows.Close()
		seen := map[string]bool{}
		for rows.Next() {
			var w winner
			if err := rows.Scan(&w.Category, &w.NomineeID, &w.Votes); err != nil {
				break
			}
			if seen[w.Category] {
				continue
			}
			seen[w.Category] = true
			winners = append(winners, w)
		}
	}
	out["awards"] = winners

	response.OK(c, out)
}
