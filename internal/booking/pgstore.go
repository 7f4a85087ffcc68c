package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

// PGRunner executes engine transitions inside a Postgres transaction,
// serialized per meeting with an advisory lock. The lock covers sibling
// slots of shared roles without enumerating them for row locks.
type PGRunner struct {
	pool *pgxpool.Pool
}

// NewPGRunner creates a runner over the pool.
func NewPGRunner(pool *pgxpool.Pool) *PGRunner {
	return &PGRunner{pool: pool}
}

// InMeetingTx runs fn in one transaction holding the meeting's advisory lock.
func (r *PGRunner) InMeetingTx(ctx context.Context, meetingID uuid.UUID, fn func(Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, meetingID); err != nil {
		return classify(err)
	}
	if err := fn(&pgStore{tx: tx}); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

// classify maps database failures onto the engine error kinds. Engine errors
// pass through unmodified.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransient, Reason: "timeout", Cause: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation: lost a race on a single-owner slot
			return &Error{Kind: KindConflict, Reason: "slot was taken concurrently", Cause: err}
		case "40001", "40P01": // serialization failure, deadlock
			return &Error{Kind: KindTransient, Reason: "transient database conflict", Cause: err}
		}
	}
	return &Error{Kind: KindTransient, Reason: "database error", Cause: err}
}

// pgStore implements Store over one transaction.
type pgStore struct {
	tx pgx.Tx
}

func (s *pgStore) Meeting(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	const q = `SELECT id, club_id, number, title, starts_at, status, template, created_by, created_at, updated_at
		FROM meetings WHERE id = $1`
	var m models.Meeting
	err := s.tx.QueryRow(ctx, q, id).Scan(&m.ID, &m.ClubID, &m.Number, &m.Title, &m.StartsAt, &m.Status, &m.Template, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *pgStore) Role(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	const q = `SELECT id, club_id, name, category, cardinality, approval_required, members_only, project_bearing, created_at, updated_at
		FROM roles WHERE id = $1`
	var r models.Role
	err := s.tx.QueryRow(ctx, q, id).Scan(&r.ID, &r.ClubID, &r.Name, &r.Category, &r.Cardinality, &r.ApprovalRequired, &r.MembersOnly, &r.ProjectBearing, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *pgStore) Contact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	const q = `SELECT id, club_id, email, full_name, password_hash, type, access_role, pathway_id, credentials, next_project, avatar_key, created_at, updated_at
		FROM contacts WHERE id = $1`
	var c models.Contact
	err := s.tx.QueryRow(ctx, q, id).Scan(&c.ID, &c.ClubID, &c.Email, &c.FullName, &c.PasswordHash, &c.Type, &c.AccessRole, &c.PathwayID, &c.Credentials, &c.NextProject, &c.AvatarKey, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const slotColumns = `id, meeting_id, seq, role_id, title, project_id, starts_at, duration_min, duration_max, state, credentials, project_code, pathway_name, media_id, created_at, updated_at`

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var sl models.Slot
	err := row.Scan(&sl.ID, &sl.MeetingID, &sl.Seq, &sl.RoleID, &sl.Title, &sl.ProjectID, &sl.StartsAt, &sl.DurationMin, &sl.DurationMax, &sl.State, &sl.Credentials, &sl.ProjectCode, &sl.PathwayName, &sl.MediaID, &sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (s *pgStore) Slot(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	sl, err := scanSlot(s.tx.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sl, err
}

func (s *pgStore) slotList(ctx context.Context, q string, args ...any) ([]models.Slot, error) {
	rows, err := s.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *sl)
	}
	return list, rows.Err()
}

func (s *pgStore) SlotsOfMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Slot, error) {
	return s.slotList(ctx, `SELECT `+slotColumns+` FROM slots WHERE meeting_id = $1 ORDER BY seq`, meetingID)
}

func (s *pgStore) SlotsOfRole(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Slot, error) {
	return s.slotList(ctx, `SELECT `+slotColumns+` FROM slots WHERE meeting_id = $1 AND role_id = $2 ORDER BY seq`, meetingID, roleID)
}

func (s *pgStore) UpdateSlotSnapshot(ctx context.Context, slotID uuid.UUID, snap models.SlotSnapshot) error {
	const q = `UPDATE slots SET credentials = $1, project_code = $2, pathway_name = $3, project_id = $4, updated_at = NOW() WHERE id = $5`
	_, err := s.tx.Exec(ctx, q, snap.Credentials, snap.ProjectCode, snap.PathwayName, snap.ProjectID, slotID)
	return err
}

func (s *pgStore) UpdateSlotState(ctx context.Context, slotID uuid.UUID, state models.SlotState) error {
	_, err := s.tx.Exec(ctx, `UPDATE slots SET state = $1, updated_at = NOW() WHERE id = $2`, state, slotID)
	return err
}

const ownershipColumns = `id, meeting_id, role_id, contact_id, slot_id, owner_rank, created_at`

func (s *pgStore) ownershipList(ctx context.Context, q string, args ...any) ([]models.Ownership, error) {
	rows, err := s.tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Ownership
	for rows.Next() {
		var o models.Ownership
		if err := rows.Scan(&o.ID, &o.MeetingID, &o.RoleID, &o.ContactID, &o.SlotID, &o.Rank, &o.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (s *pgStore) SlotOwnerships(ctx context.Context, slotID uuid.UUID) ([]models.Ownership, error) {
	return s.ownershipList(ctx, `SELECT `+ownershipColumns+` FROM ownership WHERE slot_id = $1 ORDER BY owner_rank, created_at`, slotID)
}

func (s *pgStore) RoleOwnerships(ctx context.Context, meetingID, roleID uuid.UUID) ([]models.Ownership, error) {
	return s.ownershipList(ctx, `SELECT `+ownershipColumns+` FROM ownership WHERE meeting_id = $1 AND role_id = $2 ORDER BY owner_rank, created_at`, meetingID, roleID)
}

func (s *pgStore) ContactOwnerships(ctx context.Context, meetingID, contactID uuid.UUID) ([]models.Ownership, error) {
	return s.ownershipList(ctx, `SELECT `+ownershipColumns+` FROM ownership WHERE meeting_id = $1 AND contact_id = $2 ORDER BY created_at`, meetingID, contactID)
}

func (s *pgStore) InsertOwnership(ctx context.Context, o *models.Ownership) error {
	const q = `INSERT INTO ownership (id, meeting_id, role_id, contact_id, slot_id, owner_rank)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return s.tx.QueryRow(ctx, q, o.MeetingID, o.RoleID, o.ContactID, o.SlotID, o.Rank).Scan(&o.ID, &o.CreatedAt)
}

func (s *pgStore) UpdateOwnershipRank(ctx context.Context, id uuid.UUID, rank int) error {
	_, err := s.tx.Exec(ctx, `UPDATE ownership SET owner_rank = $1 WHERE id = $2`, rank, id)
	return err
}

func (s *pgStore) DeleteOwnership(ctx context.Context, id uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM ownership WHERE id = $1`, id)
	return err
}

func (s *pgStore) Waitlist(ctx context.Context, slotID uuid.UUID) ([]models.WaitlistEntry, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, slot_id, contact_id, created_at FROM waitlist WHERE slot_id = $1 ORDER BY created_at`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WaitlistEntry
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.SlotID, &e.ContactID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (s *pgStore) InsertWaitlistEntry(ctx context.Context, e *models.WaitlistEntry) error {
	const q = `INSERT INTO waitlist (id, slot_id, contact_id) VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, created_at`
	return s.tx.QueryRow(ctx, q, e.SlotID, e.ContactID).Scan(&e.ID, &e.CreatedAt)
}

func (s *pgStore) DeleteWaitlistEntry(ctx context.Context, id uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM waitlist WHERE id = $1`, id)
	return err
}

func (s *pgStore) RosterEntry(ctx context.Context, meetingID, contactID uuid.UUID) (*models.RosterEntry, error) {
	const q = `SELECT id, meeting_id, contact_id, ticket, order_number, created_at, updated_at
		FROM rosters WHERE meeting_id = $1 AND contact_id = $2`
	var e models.RosterEntry
	err := s.tx.QueryRow(ctx, q, meetingID, contactID).Scan(&e.ID, &e.MeetingID, &e.ContactID, &e.Ticket, &e.OrderNumber, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *pgStore) InsertRosterEntry(ctx context.Context, e *models.RosterEntry) error {
	const q = `INSERT INTO rosters (id, meeting_id, contact_id, ticket, order_number)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return s.tx.QueryRow(ctx, q, e.MeetingID, e.ContactID, e.Ticket, e.OrderNumber).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (s *pgStore) MaxOfficerOrder(ctx context.Context, meetingID uuid.UUID) (int, error) {
	var max int
	err := s.tx.QueryRow(ctx, `SELECT COALESCE(MAX(order_number), 0) FROM rosters WHERE meeting_id = $1`, meetingID).Scan(&max)
	return max, err
}

func (s *pgStore) AddRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO roster_roles (roster_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, rosterID, roleID)
	return err
}

func (s *pgStore) RemoveRosterRole(ctx context.Context, rosterID, roleID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM roster_roles WHERE roster_id = $1 AND role_id = $2`, rosterID, roleID)
	return err
}

func (s *pgStore) Pathway(ctx context.Context, id uuid.UUID) (*models.Pathway, error) {
	var p models.Pathway
	err := s.tx.QueryRow(ctx, `SELECT id, name, abbr, kind FROM pathways WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Abbr, &p.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStore) Project(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.tx.QueryRow(ctx, `SELECT id, pathway_id, name, level, number FROM projects WHERE id = $1`, id).Scan(&p.ID, &p.PathwayID, &p.Name, &p.Level, &p.Number)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStore) ProjectByCode(ctx context.Context, pathwayID uuid.UUID, level, number int) (*models.Project, error) {
	var p models.Project
	err := s.tx.QueryRow(ctx, `SELECT id, pathway_id, name, level, number FROM projects WHERE pathway_id = $1 AND level = $2 AND number = $3`, pathwayID, level, number).
		Scan(&p.ID, &p.PathwayID, &p.Name, &p.Level, &p.Number)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *pgStore) DeleteWaitlistForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM waitlist WHERE slot_id IN (SELECT id FROM slots WHERE meeting_id = $1)`, meetingID)
	return err
}

func (s *pgStore) DeleteOwnershipForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM ownership WHERE meeting_id = $1`, meetingID)
	return err
}

func (s *pgStore) DeleteRosterForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	if _, err := s.tx.Exec(ctx, `DELETE FROM roster_roles WHERE roster_id IN (SELECT id FROM rosters WHERE meeting_id = $1)`, meetingID); err != nil {
		return err
	}
	_, err := s.tx.Exec(ctx, `DELETE FROM rosters WHERE meeting_id = $1`, meetingID)
	return err
}

func (s *pgStore) DeleteVotesForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	if _, err := s.tx.Exec(ctx, `DELETE FROM votes WHERE meeting_id = $1`, meetingID); err != nil {
		return err
	}
	_, err := s.tx.Exec(ctx, `DELETE FROM vote_categories WHERE meeting_id = $1`, meetingID)
	return err
}

// DeleteSlotsForMeeting unlinks attached media first, then removes both the
// slots and their media rows.
func (s *pgStore) DeleteSlotsForMeeting(ctx context.Context, meetingID uuid.UUID) error {
	rows, err := s.tx.Query(ctx, `SELECT media_id FROM slots WHERE meeting_id = $1 AND media_id IS NOT NULL`, meetingID)
	if err != nil {
		return err
	}
	var mediaIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		mediaIDs = append(mediaIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if _, err := s.tx.Exec(ctx, `UPDATE slots SET media_id = NULL WHERE meeting_id = $1`, meetingID); err != nil {
		return err
	}
	for _, id := range mediaIDs {
		if _, err := s.tx.Exec(ctx, `DELETE FROM slot_media WHERE id = $1`, id); err != nil {
			return err
		}
	}
	_, err = s.tx.Exec(ctx, `DELETE FROM slots WHERE meeting_id = $1`, meetingID)
	return err
}

func (s *pgStore) DeleteMeetingRow(ctx context.Context, meetingID uuid.UUID) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, meetingID)
	return err
}
