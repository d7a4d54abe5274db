// Package events provides the in-process domain event dispatcher
package events

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alchemorsel/mealplan/internal/domain/shared"
	"go.uber.org/zap"
)

// AllEvents registers a handler for every event name
const AllEvents = "*"

// Dispatcher delivers domain events synchronously to registered handlers
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	logger   *zap.Logger
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger.Named("events"),
	}
}

var _ shared.EventDispatcher = (*Dispatcher)(nil)

// Register registers an event handler
func (d *Dispatcher) Register(eventName string, handler shared.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
	d.logger.Debug("Registered event handler", zap.String("event", eventName))
}

// Dispatch runs every handler for the event. A failing handler does not
// stop the others; all failures are returned together.
func (d *Dispatcher) Dispatch(event shared.DomainEvent) error {
	name := event.EventName()

	d.mu.RLock()
	handlers := make([]shared.EventHandler, 0, len(d.handlers[name])+len(d.handlers[AllEvents]))
	handlers = append(handlers, d.handlers[name]...)
	handlers = append(handlers, d.handlers[AllEvents]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug("No handlers registered for event", zap.String("event", name))
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// LogHandler writes each event to the log
func LogHandler(logger *zap.Logger) shared.EventHandler {
	logger = logger.Named("audit")
	return func(event shared.DomainEvent) error {
		logger.Info("Domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
			zap.Any("payload", event))
		return nil
	}
}
