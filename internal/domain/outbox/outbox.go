// Package outbox defines the event ports that tie the bounded contexts
// together: orders announce lifecycle changes, billing announces money
// movements, inventory announces settlements, and workers on the other
// side react. Handlers must tolerate replays; the bus may redeliver.
package outbox

import "context"

// Event is a domain event. The name doubles as the subscription key,
// dot-separated context and verb ("order.shipped", "payment.captured").
type Event interface {
	EventName() string
}

// Handler consumes one event. Returning an error is a signal for the bus
// to log and count the failure, not to retry; idempotent handlers make
// redelivery safe instead.
type Handler func(ctx context.Context, e Event) error

// Publisher accepts events for delivery to subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers a handler for one event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
