// Package eventbus provides the channel-based lifecycle event bus the
// engine publishes to. Handlers observe computations (sync, analysis, ETA,
// scheduling); the engine never blocks on them.
package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ChannelEventBus dispatches events to subscribers over a buffered channel
// processed by a small worker pool.
type ChannelEventBus struct {
	subscribers    map[EventType]map[string]EventHandler
	allSubscribers map[string]EventHandler

	eventChan chan eventWithContext
	done      chan struct{}
	closed    bool
	wg        sync.WaitGroup
	mutex     sync.RWMutex

	bufferSize  int
	workerCount int
}

type eventWithContext struct {
	ctx   context.Context
	event Event
}

// ChannelEventBusOption configures the bus.
type ChannelEventBusOption func(*ChannelEventBus)

// WithBufferSize sets the event channel buffer size.
func WithBufferSize(size int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.bufferSize = size
	}
}

// WithWorkerCount sets the number of event processing workers.
func WithWorkerCount(count int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.workerCount = count
	}
}

// NewChannelEventBus creates a new channel-based event bus and starts its
// worker pool.
func NewChannelEventBus(options ...ChannelEventBusOption) *ChannelEventBus {
	eb := &ChannelEventBus{
		subscribers:    make(map[EventType]map[string]EventHandler),
		allSubscribers: make(map[string]EventHandler),
		done:           make(chan struct{}),
		bufferSize:     100,
		workerCount:    2,
	}
	for _, option := range options {
		option(eb)
	}
	eb.eventChan = make(chan eventWithContext, eb.bufferSize)

	for i := 0; i < eb.workerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}
	return eb
}

func (eb *ChannelEventBus) worker() {
	defer eb.wg.Done()
	for {
		select {
		case <-eb.done:
			return
		case evt := <-eb.eventChan:
			eb.dispatch(evt)
		}
	}
}

// dispatch hands the event to every matching handler. Handler maps are
// copied under the read lock so handlers may subscribe/unsubscribe freely.
func (eb *ChannelEventBus) dispatch(evt eventWithContext) {
	if evt.ctx.Err() != nil {
		return
	}

	eb.mutex.RLock()
	handlers := make([]EventHandler, 0, len(eb.allSubscribers))
	if typed, exists := eb.subscribers[evt.event.Type()]; exists {
		for _, h := range typed {
			handlers = append(handlers, h)
		}
	}
	for _, h := range eb.allSubscribers {
		handlers = append(handlers, h)
	}
	eb.mutex.RUnlock()

	for _, handler := range handlers {
		if evt.ctx.Err() != nil {
			return
		}
		if err := handler(evt.ctx, evt.event); err != nil {
			// Handler failures never stop other handlers.
			log.Printf("Event handler error (event_type: %s): %v", evt.event.Type(), err)
		}
	}
}

// Publish sends an event to all subscribed handlers. It blocks only when
// the buffer is full, and respects context cancellation while waiting.
func (eb *ChannelEventBus) Publish(ctx context.Context, event Event) error {
	eb.mutex.RLock()
	closed := eb.closed
	eb.mutex.RUnlock()
	if closed {
		return fmt.Errorf("event bus is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-eb.done:
		return fmt.Errorf("event bus is closed")
	case eb.eventChan <- eventWithContext{ctx: ctx, event: event}:
		return nil
	}
}

// Subscribe registers a handler for specific event types.
func (eb *ChannelEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}
	for _, eventType := range eventTypes {
		if _, exists := eb.subscribers[eventType]; !exists {
			eb.subscribers[eventType] = make(map[string]EventHandler)
		}
		eb.subscribers[eventType][subscriptionID] = handler
	}
	return subscriptionID, nil
}

// SubscribeAll registers a handler for all event types.
func (eb *ChannelEventBus) SubscribeAll(handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}
	eb.allSubscribers[subscriptionID] = handler
	return subscriptionID, nil
}

// Unsubscribe removes a subscription by id.
func (eb *ChannelEventBus) Unsubscribe(subscriptionID string) error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	delete(eb.allSubscribers, subscriptionID)
	for eventType, subscribers := range eb.subscribers {
		if _, exists := subscribers[subscriptionID]; exists {
			delete(eb.subscribers[eventType], subscriptionID)
		}
	}
	return nil
}

// Close shuts down the bus and waits for in-flight dispatches.
func (eb *ChannelEventBus) Close() error {
	eb.mutex.Lock()
	if eb.closed {
		eb.mutex.Unlock()
		return nil
	}
	eb.closed = true
	eb.mutex.Unlock()

	close(eb.done)
	eb.wg.Wait()
	return nil
}
