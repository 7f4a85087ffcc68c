package projection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache memoizes meeting projections in Redis, keyed per meeting. The cached
// view is viewer-neutral; viewer-specific fields come from PersonalizeFor on
// top of it at read time. The worker invalidates entries when booking events
// arrive, the TTL bounds staleness when it does not.
type Cache struct {
	builder *Builder
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCache creates a projection cache. client may be nil, in which case every
// read rebuilds the projection.
func NewCache(builder *Builder, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{builder: builder, client: client, ttl: ttl, logger: logger}
}

func cacheKey(meetingID uuid.UUID) string { return "projection:" + meetingID.String() }

// Get returns the projection of a meeting, from cache when fresh.
func (c *Cache) Get(ctx context.Context, meetingID uuid.UUID) (*MeetingView, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, cacheKey(meetingID)).Result()
		if err == nil {
			var view MeetingView
			if err := json.Unmarshal([]byte(raw), &view); err == nil {
				return &view, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("projection cache read failed", zap.Error(err))
		}
	}
	view, err := c.builder.Build(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if c.client != nil {
		if raw, err := json.Marshal(view); err == nil {
			if err := c.client.Set(ctx, cacheKey(meetingID), raw, c.ttl).Err(); err != nil {
				c.logger.Warn("projection cache write failed", zap.Error(err))
			}
		}
	}
	return view, nil
}

// Invalidate drops the cached projection of a meeting.
func (c *Cache) Invalidate(ctx context.Context, meetingID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(meetingID)).Err(); err != nil {
		c.logger.Warn("projection cache invalidate failed", zap.Error(err))
	}
}
