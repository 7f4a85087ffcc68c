package clubs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

// Repository handles club persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clubs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a club.
func (r *Repository) Create(ctx context.Context, club *models.Club) error {
	const q = `INSERT INTO clubs (id, name, slug, settings)
		VALUES (gen_random_uuid(), $1, $2, COALESCE($3, '{}'::jsonb))
		RETURNING id, created_at, updated_at`
	var settings any
	if len(club.Settings) > 0 {
		settings = string(club.Settings)
	}
	return r.pool.QueryRow(ctx, q, club.Name, club.Slug, settings).
		Scan(&club.ID, &club.CreatedAt, &club.UpdatedAt)
}

// GetByID returns a club by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	const q = `SELECT id, name, slug, settings, created_at, updated_at FROM clubs WHERE id = $1`
	var club models.Club
	err := r.pool.QueryRow(ctx, q, id).Scan(&club.ID, &club.Name, &club.Slug, &club.Settings, &club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &club, nil
}

// GetBySlug returns a club by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Club, error) {
	const q = `SELECT id, name, slug, settings, created_at, updated_at FROM clubs WHERE slug = $1`
	var club models.Club
	err := r.pool.QueryRow(ctx, q, slug).Scan(&club.ID, &club.Name, &club.Slug, &club.Settings, &club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &club, nil
}

// UpdateSettings replaces the club's settings document.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, settings json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `UPDATE clubs SET settings = $2, updated_at = NOW() WHERE id = $1`, id, string(settings))
	return err
}

// ListContacts returns every contact of a club ordered by name.
func (r *Repository) ListContacts(ctx context.Context, clubID uuid.UUID) ([]models.Contact, error) {
	const q = `SELECT id, club_id, email, full_name, type, access_role,
			pathway_id, credentials, next_project, avatar_key, created_at, updated_at
		FROM contacts WHERE club_id = $1 ORDER BY full_name, email`
	rows, err := r.pool.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.ClubID, &c.Email, &c.FullName, &c.Type, &c.AccessRole,
			&c.PathwayID, &c.Credentials, &c.NextProject, &c.AvatarKey, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
