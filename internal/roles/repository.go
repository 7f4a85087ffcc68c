package roles

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

const roleColumns = `id, club_id, name, category, cardinality, approval_required, members_only, project_bearing, created_at, updated_at`

// Repository handles role and role alias persistence. Roles with a NULL
// club_id are the global registry; a club-local role with the same name
// overrides the global one for that club.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a roles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var r models.Role
	err := row.Scan(&r.ID, &r.ClubID, &r.Name, &r.Category, &r.Cardinality,
		&r.ApprovalRequired, &r.MembersOnly, &r.ProjectBearing, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetByID returns a role by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	q := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`
	return scanRole(r.pool.QueryRow(ctx, q, id))
}

// GetByName returns the effective role of a club by name: the club-local
// override when present, the global role otherwise.
func (r *Repository) GetByName(ctx context.Context, clubID uuid.UUID, name string) (*models.Role, error) {
	q := `SELECT ` + roleColumns + ` FROM roles
		WHERE name = $2 AND (club_id = $1 OR club_id IS NULL)
		ORDER BY club_id NULLS LAST
		LIMIT 1`
	return scanRole(r.pool.QueryRow(ctx, q, clubID, name))
}

// ListEffective returns the effective registry for a club: every global role,
// with club-local overrides replacing globals of the same name.
func (r *Repository) ListEffective(ctx context.Context, clubID uuid.UUID) ([]models.Role, error) {
	q := `SELECT DISTINCT ON (name) ` + roleColumns + ` FROM roles
		WHERE club_id = $1 OR club_id IS NULL
		ORDER BY name, club_id NULLS LAST`
	rows, err := r.pool.Query(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *role)
	}
	return list, rows.Err()
}

// Create inserts a club-local role.
func (r *Repository) Create(ctx context.Context, role *models.Role) error {
	q := `INSERT INTO roles (id, club_id, name, category, cardinality, approval_required, members_only, project_bearing)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, role.ClubID, role.Name, string(role.Category), string(role.Cardinality),
		role.ApprovalRequired, role.MembersOnly, role.ProjectBearing).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

// Update changes the flags of a club-local role. Global roles are immutable
// through the API; a club overrides them by creating a local role instead.
func (r *Repository) Update(ctx context.Context, role *models.Role) error {
	q := `UPDATE roles SET category = $2, cardinality = $3, approval_required = $4, members_only = $5,
			project_bearing = $6, updated_at = NOW()
		WHERE id = $1 AND club_id IS NOT NULL
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, role.ID, string(role.Category), string(role.Cardinality),
		role.ApprovalRequired, role.MembersOnly, role.ProjectBearing).Scan(&role.UpdatedAt)
}

// Delete removes a club-local role.
func (r *Repository) Delete(ctx context.Context, clubID, roleID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND club_id = $2`, roleID, clubID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListAliases returns every alias of the given role names.
func (r *Repository) ListAliases(ctx context.Context) ([]models.RoleAlias, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, alias, role_name, created_at FROM role_aliases ORDER BY alias`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RoleAlias
	for rows.Next() {
		var a models.RoleAlias
		if err := rows.Scan(&a.ID, &a.Alias, &a.RoleName, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ResolveAlias returns the canonical role name for an alias, or the input
// unchanged when no alias matches.
func (r *Repository) ResolveAlias(ctx context.Context, name string) (string, error) {
	var canonical string
	err := r.pool.QueryRow(ctx, `SELECT role_name FROM role_aliases WHERE alias = $1`, name).Scan(&canonical)
	if err == pgx.ErrNoRows {
		return name, nil
	}
	if err != nil {
		return "", err
	}
	return canonical, nil
}
