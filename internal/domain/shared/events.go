// Package shared holds the small set of domain primitives used by more than one aggregate.
package shared

import "time"

// DomainEvent is something that happened to an aggregate and that other
// parts of the system may react to once it has been persisted.
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventDispatcher delivers domain events to registered handlers
type EventDispatcher interface {
	Dispatch(event DomainEvent) error
	Register(eventName string, handler EventHandler)
}

// EventHandler handles domain events
type EventHandler func(event DomainEvent) error

// AggregateRoot records pending events for an aggregate
type AggregateRoot struct {
	events []DomainEvent
}

// AddEvent queues an event for dispatch after the aggregate is saved
func (a *AggregateRoot) AddEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// Events returns and clears pending domain events
func (a *AggregateRoot) Events() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}

// PendingEvents returns queued events without clearing them
func (a *AggregateRoot) PendingEvents() []DomainEvent {
	return a.events
}
