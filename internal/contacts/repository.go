// Package contacts manages member profiles and officer-side contact
// administration.
package contacts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

const contactColumns = `id, club_id, email, full_name, COALESCE(password_hash,''), type, access_role,
	pathway_id, credentials, next_project, avatar_key, created_at, updated_at`

// Repository handles contact persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a contacts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanContact(row pgx.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.ClubID, &c.Email, &c.FullName, &c.PasswordHash, &c.Type, &c.AccessRole,
		&c.PathwayID, &c.Credentials, &c.NextProject, &c.AvatarKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns a contact scoped to a club.
func (r *Repository) GetByID(ctx context.Context, clubID, id uuid.UUID) (*models.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND club_id = $2`
	return scanContact(r.pool.QueryRow(ctx, q, id, clubID))
}

// ProfileUpdate carries the fields a contact may change on their own profile.
// Nil pointers leave the column untouched.
type ProfileUpdate struct {
	FullName    *string
	PathwayID   *uuid.UUID
	Credentials *string
	NextProject *string
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, u ProfileUpdate) (*models.Contact, error) {
	q := `UPDATE contacts SET
		full_name = COALESCE($2, full_name),
		pathway_id = COALESCE($3, pathway_id),
		credentials = COALESCE($4, credentials),
		next_project = COALESCE($5, next_project),
		updated_at = NOW()
		WHERE id = $1
		RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, id, u.FullName, u.PathwayID, u.Credentials, u.NextProject))
}

// ClearNextProject empties the next_project column. COALESCE-based updates
// cannot express "set to NULL", so this is its own statement.
func (r *Repository) ClearNextProject(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE contacts SET next_project = NULL, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// SetAvatarKey stores the S3 object key of the contact's avatar and returns
// the previous key so the caller can delete the old object.
func (r *Repository) SetAvatarKey(ctx context.Context, id uuid.UUID, key *string) (old *string, err error) {
	err = r.pool.QueryRow(ctx,
		`UPDATE contacts c SET avatar_key = $2, updated_at = NOW()
		 FROM (SELECT avatar_key FROM contacts WHERE id = $1) prev
		 WHERE c.id = $1
		 RETURNING prev.avatar_key`,
		id, key).Scan(&old)
	return old, err
}

// CreateManaged inserts a contact without credentials. Officers use it to
// add guests and fellow officers who have not registered themselves.
func (r *Repository) CreateManaged(ctx context.Context, clubID uuid.UUID, email, fullName string, typ models.ContactType, accessRole string) (*models.Contact, error) {
	q := `INSERT INTO contacts (club_id, email, full_name, type, access_role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, clubID, email, fullName, string(typ), accessRole))
}

// UpdateStanding changes a contact's club standing and access role, e.g.
// promoting a guest to member or a member to officer.
func (r *Repository) UpdateStanding(ctx context.Context, clubID, id uuid.UUID, typ models.ContactType, accessRole string) (*models.Contact, error) {
	q := `UPDATE contacts SET type = $3, access_role = $4, updated_at = NOW()
		WHERE id = $1 AND club_id = $2
		RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, id, clubID, string(typ), accessRole))
}

// ListPathways returns the education pathways available for profiles.
// Presentation series are listed too so officers can attach them to slots,
// but only kind=pathway tracks feed profile-based project resolution.
func (r *Repository) ListPathways(ctx context.Context) ([]models.Pathway, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, abbr, kind FROM pathways ORDER BY abbr`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Pathway
	for rows.Next() {
		var p models.Pathway
		if err := rows.Scan(&p.ID, &p.Name, &p.Abbr, &p.Kind); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
