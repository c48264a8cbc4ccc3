package service

import (
	"context"
	"time"

	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/events"
)

const eventPublishTimeout = 3 * time.Second

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IEventService interface {
	Emit(ctx context.Context, event events.Event)
}

type eventService struct {
	publisher EventPublisher
	logger    logger.ILogger
}

// NewEventService wraps the bus publisher. A nil publisher turns Emit into a
// debug log so the API keeps working without NATS.
func NewEventService(publisher EventPublisher, log logger.ILogger) IEventService {
	return &eventService{publisher: publisher, logger: log}
}

// Emit publishes best-effort. Failures are logged, never returned.
func (s *eventService) Emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		s.logger.Debug("EVENTS", "Publisher not configured, event skipped", map[string]interface{}{
			"type": event.EventType(),
		})
		return
	}

	// Detached from the request so a finished HTTP call does not cancel the publish.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logger.Warn("EVENTS", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
