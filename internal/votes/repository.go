package votes

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gavel-club/backend/internal/models"
)

// Repository handles vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a votes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCategory inserts a new award category for a meeting.
func (r *Repository) CreateCategory(ctx context.Context, vc *models.VoteCategory) error {
	const query = `INSERT INTO vote_categories (id, meeting_id, name, open)
		VALUES (gen_random_uuid(), $1, $2, TRUE)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, vc.MeetingID, vc.Name).Scan(&vc.ID, &vc.CreatedAt)
}

// GetCategory returns a category by ID.
func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.VoteCategory, error) {
	const query = `SELECT id, meeting_id, name, open, created_at FROM vote_categories WHERE id = $1`
	var vc models.VoteCategory
	err := r.pool.QueryRow(ctx, query, id).Scan(&vc.ID, &vc.MeetingID, &vc.Name, &vc.Open, &vc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

// ListCategories returns the categories of a meeting.
func (r *Repository) ListCategories(ctx context.Context, meetingID uuid.UUID) ([]models.VoteCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, name, open, created_at FROM vote_categories WHERE meeting_id = $1 ORDER BY created_at`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VoteCategory
	for rows.Next() {
		var vc models.VoteCategory
		if err := rows.Scan(&vc.ID, &vc.MeetingID, &vc.Name, &vc.Open, &vc.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, vc)
	}
	return list, rows.Err()
}

// CloseCategory stops accepting ballots in a category.
func (r *Repository) CloseCategory(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE vote_categories SET open = FALSE WHERE id = $1`, id)
	return err
}

// Cast records a ballot. One per voter per category; re-casting replaces the nominee.
func (r *Repository) Cast(ctx context.Context, categoryID, meetingID, voterID, nomineeID uuid.UUID) error {
	const query = `INSERT INTO votes (id, category_id, meeting_id, voter_id, nominee_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		ON CONFLICT (category_id, voter_id) DO UPDATE SET nominee_id = EXCLUDED.nominee_id, created_at = NOW()`
	_, err := r.pool.Exec(ctx, query, categoryID, meetingID, voterID, nomineeID)
	return err
}

// Tally aggregates the ballots of one category.
func (r *Repository) Tally(ctx context.Context, categoryID uuid.UUID) (*models.VoteTally, error) {
	vc, err := r.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	tally := &models.VoteTally{CategoryID: vc.ID, Category: vc.Name, Counts: map[string]int{}}
	rows, err := r.pool.Query(ctx,
		`SELECT nominee_id, COUNT(*) FROM votes WHERE category_id = $1 GROUP BY nominee_id ORDER BY COUNT(*) DESC`,
		categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	best := 0
	for rows.Next() {
		var nominee uuid.UUID
		var count int
		if err := rows.Scan(&nominee, &count); err != nil {
			return nil, err
		}
		tally.Counts[nominee.String()] = count
		if count > best {
			best = count
			id := nominee
			tally.Winner = &id
		}
	}
	return tally, rows.Err()
}
