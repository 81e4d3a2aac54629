package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

// BaseEvent is embedded by concrete events. Data is the loggable payload and
// must never carry secrets.
type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// Publisher is the narrow view services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus is an in-process fan-out of events to subscribed handlers.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Info("event subscription added", "event_type", eventType, "subscribers", n)
}

// subscribers returns a snapshot so handlers run without the lock held.
func (eb *EventBus) subscribers(event Event) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	hs := eb.handlers[event.EventType()]
	if len(hs) == 0 {
		eb.logger.Debug("event has no subscribers", "event_type", event.EventType())
		return nil
	}
	return append([]Handler(nil), hs...)
}

// Publish hands the event to every subscriber on its own goroutine and
// returns at once. Subscribers see a context that survives the caller's
// cancellation; their errors are logged only.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	hs := eb.subscribers(event)
	if hs == nil {
		return nil
	}

	eb.logger.InfoContext(ctx, "dispatching event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"subscribers", len(hs))

	hctx := context.WithoutCancel(ctx)
	eb.inflight.Add(len(hs))
	for _, h := range hs {
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := h(hctx, event); err != nil {
				eb.logFailure(hctx, event, err)
			}
		}(h)
	}
	return nil
}

// PublishSync runs subscribers in order on the caller's goroutine and stops at
// the first error.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.subscribers(event) {
		if err := h(ctx, event); err != nil {
			eb.logFailure(ctx, event, err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// Wait blocks until every asynchronously dispatched handler has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

func (eb *EventBus) logFailure(ctx context.Context, event Event, err error) {
	eb.logger.ErrorContext(ctx, "event handler failed",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"error", err)
}
