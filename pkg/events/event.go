package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types. Each is published on the bus as "salesops.<type>".
const (
	TypePipelineRanked   = "PIPELINE_RANKED"
	TypeAssistantReplied = "ASSISTANT_REPLIED"
	TypeScoresRefreshed  = "SCORES_REFRESHED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PIPELINE_RANKED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	ID         string
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

// Payload carries the event id and time alongside the data so consumers
// can deduplicate.
func (e BaseEvent) Payload() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Data)+2)
	for k, v := range e.Data {
		out[k] = v
	}
	out["event_id"] = e.ID
	out["occurred_at"] = e.OccurredAt.Format(time.RFC3339)
	return out
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// PipelineRanked is emitted after a full ranking of one record kind.
func PipelineRanked(kind string, count int, average float64, topName string) BaseEvent {
	return newEvent(TypePipelineRanked, map[string]interface{}{
		"kind":          kind,
		"count":         count,
		"average_score": average,
		"top_record":    topName,
	})
}

// AssistantReplied is emitted once per processed chat message.
func AssistantReplied(sessionID string, iterations int, tools []string, isError bool) BaseEvent {
	return newEvent(TypeAssistantReplied, map[string]interface{}{
		"session_id": sessionID,
		"iterations": iterations,
		"tools":      tools,
		"is_error":   isError,
	})
}

// ScoresRefreshed is emitted when a background refresh job finishes.
func ScoresRefreshed(jobID string, leads, opportunities int) BaseEvent {
	return newEvent(TypeScoresRefreshed, map[string]interface{}{
		"job_id":        jobID,
		"leads":         leads,
		"opportunities": opportunities,
	})
}
