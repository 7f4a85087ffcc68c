package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gavel-club/backend/internal/projection"
	"github.com/gavel-club/backend/internal/realtime"
	"github.com/gavel-club/backend/pkg/queue"
)

// BookingEventProcessor consumes booking change jobs: invalidate the cached
// meeting projection, rebuild it, and push the fresh view to connected
// clients via Redis pub/sub.
type BookingEventProcessor struct {
	cache  *projection.Cache
	pub    realtime.RedisPublisher
	queue  *queue.Queue
	logger *zap.Logger
}

// NewBookingEventProcessor creates a booking event processor.
func NewBookingEventProcessor(cache *projection.Cache, pub realtime.RedisPublisher, q *queue.Queue, logger *zap.Logger) *BookingEventProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingEventProcessor{cache: cache, pub: pub, queue: q, logger: logger}
}

// Process executes one booking event job.
func (p *BookingEventProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeBookingEvent {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.BookingEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	p.cache.Invalidate(ctx, payload.MeetingID)
	view, err := p.cache.Get(ctx, payload.MeetingID)
	if err != nil {
		return fmt.Errorf("rebuild projection: %w", err)
	}

	if p.pub != nil {
		body, err := json.Marshal(map[string]interface{}{
			"event_type": payload.EventType,
			"slot_ids":   payload.SlotIDs,
			"contact_id": payload.ContactID,
			"view":       view,
		})
		if err != nil {
			return fmt.Errorf("marshal update: %w", err)
		}
		if err := p.pub.PublishMeetingEvent(payload.MeetingID, "booking_update", body); err != nil {
			return fmt.Errorf("publish update: %w", err)
		}
	}

	p.logger.Info("booking event processed",
		zap.String("job_id", job.ID),
		zap.String("event_type", payload.EventType),
		zap.String("meeting_id", payload.MeetingID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *BookingEventProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("booking worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
