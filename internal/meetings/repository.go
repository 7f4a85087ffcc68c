package meetings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

const slotColumns = `id, meeting_id, seq, role_id, title, project_id, starts_at, duration_min, duration_max,
	state, credentials, project_code, pathway_name, media_id, created_at, updated_at`

// Repository handles meeting and slot persistence outside the booking
// transaction scope. Reads here feed handlers and projections; every
// owner-affecting write goes through the booking engine instead.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a meeting, assigning the next running number within the club.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	const q = `INSERT INTO meetings (id, club_id, number, title, starts_at, status, template, created_by)
		VALUES (gen_random_uuid(), $1,
			(SELECT COALESCE(MAX(number), 0) + 1 FROM meetings WHERE club_id = $1),
			$2, $3, $4, $5, $6)
		RETURNING id, number, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, m.ClubID, m.Title, m.StartsAt, string(m.Status), m.Template, m.CreatedBy).
		Scan(&m.ID, &m.Number, &m.CreatedAt, &m.UpdatedAt)
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	const q = `SELECT id, club_id, number, title, starts_at, status, template, created_by, created_at, updated_at
		FROM meetings WHERE id = $1`
	var m models.Meeting
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.ClubID, &m.Number, &m.Title, &m.StartsAt,
		&m.Status, &m.Template, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns a club's meetings, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, clubID uuid.UUID, status *models.MeetingStatus) ([]models.Meeting, error) {
	base := `SELECT id, club_id, number, title, starts_at, status, template, created_by, created_at, updated_at
		FROM meetings WHERE club_id = $1`
	args := []interface{}{clubID}
	if status != nil {
		base += ` AND status = $2`
		args = append(args, string(*status))
	}
	rows, err := r.pool.Query(ctx, base+` ORDER BY starts_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.ClubID, &m.Number, &m.Title, &m.StartsAt,
			&m.Status, &m.Template, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Update updates title and start time.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title string, startsAt *time.Time) error {
	const q = `UPDATE meetings SET title = $2, starts_at = COALESCE($3, starts_at), updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, title, startsAt)
	return err
}

// UpdateStatus moves a meeting through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MeetingStatus) error {
	_, err := r.pool.Exec(ctx, `UPDATE meetings SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var sl models.Slot
	err := row.Scan(&sl.ID, &sl.MeetingID, &sl.Seq, &sl.RoleID, &sl.Title, &sl.ProjectID,
		&sl.StartsAt, &sl.DurationMin, &sl.DurationMax, &sl.State,
		&sl.Credentials, &sl.ProjectCode, &sl.PathwayName, &sl.MediaID, &sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

// CreateSlots bulk-inserts the agenda slots of a meeting.
func (r *Repository) CreateSlots(ctx context.Context, slots []models.Slot) error {
	batch := &pgx.Batch{}
	const q = `INSERT INTO slots (id, meeting_id, seq, role_id, title, project_id, starts_at, duration_min, duration_max, state)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range slots {
		sl := &slots[i]
		batch.Queue(q, sl.MeetingID, sl.Seq, sl.RoleID, sl.Title, sl.ProjectID,
			sl.StartsAt, sl.DurationMin, sl.DurationMax, string(models.SlotStateActive))
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range slots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetSlot returns a slot by ID.
func (r *Repository) GetSlot(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	return scanSlot(r.pool.QueryRow(ctx, q, id))
}

// ListSlots returns the agenda of a meeting in order.
func (r *Repository) ListSlots(ctx context.Context, meetingID uuid.UUID) ([]models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE meeting_id = $1 ORDER BY seq`
	rows, err := r.pool.Query(ctx, q, meetingID)
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

// AddSlot appends one slot after the current agenda.
func (r *Repository) AddSlot(ctx context.Context, sl *models.Slot) error {
	const q = `INSERT INTO slots (id, meeting_id, seq, role_id, title, project_id, starts_at, duration_min, duration_max, state)
		VALUES (gen_random_uuid(), $1,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM slots WHERE meeting_id = $1),
			$2, $3, $4, $5, $6, $7, $8)
		RETURNING id, seq, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, sl.MeetingID, sl.RoleID, sl.Title, sl.ProjectID,
		sl.StartsAt, sl.DurationMin, sl.DurationMax, string(models.SlotStateActive)).
		Scan(&sl.ID, &sl.Seq, &sl.CreatedAt, &sl.UpdatedAt)
}

// UpdateSlot updates the editable agenda fields of a slot.
func (r *Repository) UpdateSlot(ctx context.Context, id uuid.UUID, title *string, projectID *uuid.UUID, startsAt *time.Time, durationMin, durationMax *int) error {
	const q = `UPDATE slots SET title = $2, project_id = $3, starts_at = $4,
			duration_min = $5, duration_max = $6, updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, title, projectID, startsAt, durationMin, durationMax)
	return err
}

// CancelSlot marks a slot cancelled. Ownership and waitlist rows are cleared
// by the booking engine before this is called.
func (r *Repository) CancelSlot(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE slots SET state = 'cancelled', updated_at = NOW() WHERE id = $1`, id)
	return err
}

// CreateMedia inserts a slot media row and links it to the slot.
func (r *Repository) CreateMedia(ctx context.Context, slotID uuid.UUID, storeKey, mimeType string) (*models.SlotMedia, error) {
	var m models.SlotMedia
	err := r.pool.QueryRow(ctx,
		`INSERT INTO slot_media (id, store_key, mime_type) VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, store_key, mime_type, created_at`, storeKey, mimeType).
		Scan(&m.ID, &m.StoreKey, &m.MimeType, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if _, err := r.pool.Exec(ctx, `UPDATE slots SET media_id = $2, updated_at = NOW() WHERE id = $1`, slotID, m.ID); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMedia returns a slot media row by ID.
func (r *Repository) GetMedia(ctx context.Context, id uuid.UUID) (*models.SlotMedia, error) {
	var m models.SlotMedia
	err := r.pool.QueryRow(ctx, `SELECT id, store_key, mime_type, created_at FROM slot_media WHERE id = $1`, id).
		Scan(&m.ID, &m.StoreKey, &m.MimeType, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
