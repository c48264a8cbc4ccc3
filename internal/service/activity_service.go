package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/events"
	pktNats "ai-salesops-be/pkg/nats"
)

// ActivityDelivery pushes a frame to every connected client.
// Implemented by the websocket hub.
type ActivityDelivery interface {
	Broadcast(frame []byte)
}

// activityFeed lists the bus events relayed to connected clients.
var activityFeed = []string{
	events.TypePipelineRanked,
	events.TypeScoresRefreshed,
}

type ActivityService struct {
	subscriber *pktNats.Subscriber
	delivery   ActivityDelivery
	logger     logger.ILogger
}

func NewActivityService(sub *pktNats.Subscriber, delivery ActivityDelivery, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start subscribes to the activity feed.
func (s *ActivityService) Start(ctx context.Context) error {
	for _, eventType := range activityFeed {
		durable := fmt.Sprintf("activity-%s", eventType)
		if err := s.subscriber.Subscribe(ctx, eventType, durable, s.handleEvent); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	s.logger.Info("EVENTS", "Activity feed started", map[string]interface{}{"types": activityFeed})
	return nil
}

type activityFrame struct {
	Type       string                 `json:"type"`
	Event      string                 `json:"event"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt string                 `json:"occurred_at"`
}

func (s *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	frame, err := json.Marshal(activityFrame{
		Type:       "activity",
		Event:      event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	s.delivery.Broadcast(frame)
	return nil
}
