package shared

import "context"

// EventHandler consumes domain events published after aggregates are
// persisted.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error

	// EventTypes lists the event types this handler wants. An empty
	// slice subscribes it to everything.
	EventTypes() []string
}

// EventPublisher is the write side of the bus. Application services
// publish an aggregate's queued events after a successful save.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the registration side of the bus.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for
	// the handler's own declared types when none are given.
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publishing and subscription with a lifecycle for
// implementations that run background workers.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
