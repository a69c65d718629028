package domain

import "time"

// EntityEvent is one append-only audit record against a bill, deed or note.
type EntityEvent struct {
	EventID    string         `json:"event_id"`
	EntityID   string         `json:"entity_id"`
	Type       string         `json:"type"`
	ActorID    string         `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}
