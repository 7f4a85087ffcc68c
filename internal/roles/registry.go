package roles

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/models"
)

// Registry serves the effective role set of a club with a Redis read-through
// cache in front of the repository. Writes to club-local roles invalidate the
// club's cache entries.
type Registry struct {
	repo   *Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRegistry creates a role registry. cache may be nil, in which case every
// read goes to the database.
func NewRegistry(repo *Repository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

func listKey(clubID uuid.UUID) string { return "roles:" + clubID.String() }

// Effective returns the effective role registry of a club.
func (g *Registry) Effective(ctx context.Context, clubID uuid.UUID) ([]models.Role, error) {
	if g.cache != nil {
		raw, err := g.cache.Get(ctx, listKey(clubID)).Result()
		if err == nil {
			var list []models.Role
			if err := json.Unmarshal([]byte(raw), &list); err == nil {
				return list, nil
			}
		} else if err != redis.Nil {
			g.logger.Warn("role cache read failed", zap.Error(err))
		}
	}
	list, err := g.repo.ListEffective(ctx, clubID)
	if err != nil {
		return nil, err
	}
	if g.cache != nil {
		if raw, err := json.Marshal(list); err == nil {
			if err := g.cache.Set(ctx, listKey(clubID), raw, g.ttl).Err(); err != nil {
				g.logger.Warn("role cache write failed", zap.Error(err))
			}
		}
	}
	return list, nil
}

// Resolve returns the effective role of a club for a (possibly aliased) name.
func (g *Registry) Resolve(ctx context.Context, clubID uuid.UUID, name string) (*models.Role, error) {
	canonical, err := g.repo.ResolveAlias(ctx, name)
	if err != nil {
		return nil, err
	}
	list, err := g.Effective(ctx, clubID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == canonical {
			return &list[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops the cached registry of a club after a write.
func (g *Registry) Invalidate(ctx context.Context, clubID uuid.UUID) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Del(ctx, listKey(clubID)).Err(); err != nil {
		g.logger.Warn("role cache invalidate failed", zap.Error(err))
	}
}
