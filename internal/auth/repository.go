package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

const contactColumns = `id, club_id, email, full_name, COALESCE(password_hash,''), type, access_role,
	pathway_id, credentials, next_project, avatar_key, created_at, updated_at`

// Repository handles contact account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
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

// GetByID returns a contact by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return scanContact(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail returns a contact of a club by email.
func (r *Repository) GetByEmail(ctx context.Context, clubID uuid.UUID, email string) (*models.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE club_id = $1 AND email = $2`
	return scanContact(r.pool.QueryRow(ctx, q, clubID, email))
}

// Create inserts a new contact account.
func (r *Repository) Create(ctx context.Context, clubID uuid.UUID, email, passwordHash, fullName string, typ models.ContactType, accessRole string) (*models.Contact, error) {
	q := `INSERT INTO contacts (club_id, email, password_hash, full_name, type, access_role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, q, clubID, email, passwordHash, fullName, string(typ), accessRole))
}
