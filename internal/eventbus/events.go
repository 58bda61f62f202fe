package eventbus

import (
	"context"
	"time"
)

// EventType identifies what happened inside the engine.
type EventType string

// Engine lifecycle event types
const (
	// Backlog sync events
	EventBacklogSyncStarted EventType = "backlog_sync_started"
	EventBacklogSyncSuccess EventType = "backlog_sync_success"
	EventBacklogSyncFailure EventType = "backlog_sync_failure"

	// Critical-path analysis events
	EventAnalysisStarted EventType = "analysis_started"
	EventAnalysisSuccess EventType = "analysis_success"
	EventAnalysisFailure EventType = "analysis_failure"

	// ETA estimation events
	EventEtaStarted EventType = "eta_started"
	EventEtaSuccess EventType = "eta_success"
	EventEtaFailure EventType = "eta_failure"

	// Calendar scheduling events
	EventScheduleStarted EventType = "schedule_started"
	EventScheduleSuccess EventType = "schedule_success"
	EventScheduleFailure EventType = "schedule_failure"
)

// EventHandler is a function that handles events.
type EventHandler func(context.Context, Event) error

// Event is something that has happened within the engine.
type Event interface {
	Type() EventType
	Payload() interface{}
	Metadata() map[string]interface{}
	Timestamp() int64
	Source() string
}

// EventBus is the central event dispatch system.
type EventBus interface {
	// Publish sends an event to all subscribed handlers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for specific event types; the returned
	// subscription id can be used to unsubscribe.
	Subscribe(eventTypes []EventType, handler EventHandler) (string, error)

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) (string, error)

	// Unsubscribe removes a subscription by id.
	Unsubscribe(subscriptionID string) error

	// Close shuts the bus down, draining workers.
	Close() error
}

// BaseEvent is the plain implementation of Event.
type BaseEvent struct {
	eventType  EventType
	payload    interface{}
	metadata   map[string]interface{}
	timestamp  int64
	sourceInfo string
}

// NewEvent creates a new BaseEvent.
func NewEvent(eventType EventType, payload interface{}, source string, metadata map[string]interface{}) *BaseEvent {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &BaseEvent{
		eventType:  eventType,
		payload:    payload,
		metadata:   metadata,
		timestamp:  time.Now().UnixNano(),
		sourceInfo: source,
	}
}

func (e *BaseEvent) Type() EventType                  { return e.eventType }
func (e *BaseEvent) Payload() interface{}             { return e.payload }
func (e *BaseEvent) Metadata() map[string]interface{} { return e.metadata }
func (e *BaseEvent) Timestamp() int64                 { return e.timestamp }
func (e *BaseEvent) Source() string                   { return e.sourceInfo }

// WithMetadata adds one metadata entry and returns the same event, allowing
// fluent chaining.
func (e *BaseEvent) WithMetadata(key string, value interface{}) *BaseEvent {
	e.metadata[key] = value
	return e
}
