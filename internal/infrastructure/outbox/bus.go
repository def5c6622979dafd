package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domoutbox "github.com/shopvn-labs/commerce-core/internal/domain/outbox"
	"github.com/shopvn-labs/commerce-core/internal/observability"
)

var ErrBusClosed = errors.New("outbox: bus is closed")

const (
	defaultQueueSize      = 256
	defaultHandlerTimeout = 5 * time.Second
)

// Bus is an in-process publish/subscribe bridge between services. Events are
// handed to subscribers on a single dispatch goroutine per bus, in publish
// order, so handlers observe order.created before order.shipped for the same
// order. Handlers must be idempotent: a handler error is logged and counted,
// never retried here.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]domoutbox.Handler
	queue    chan domoutbox.Event
	closed   bool

	wg   sync.WaitGroup
	stop chan struct{}

	handlerTimeout time.Duration
	log            observability.Logger
	failures       observability.Counter
}

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan domoutbox.Event, n)
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

func NewBus(tel observability.Observability, opts ...Option) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	b := &Bus{
		handlers:       make(map[string][]domoutbox.Handler),
		queue:          make(chan domoutbox.Event, defaultQueueSize),
		stop:           make(chan struct{}),
		handlerTimeout: defaultHandlerTimeout,
		log:            tel.Logger().With(observability.F("component", "outbox-bus")),
		failures:       tel.Metrics().Counter(observability.MEventPublishFailures),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for an event name. Not safe to call after
// events for that name may already be flowing; register everything during
// startup.
func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

// Publish enqueues an event. It blocks when the queue is full and fails when
// the caller's context expires first.
func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- e:
		return nil
	case <-ctx.Done():
		b.failures.Add(1, observability.L("event", e.EventName()))
		return fmt.Errorf("outbox: enqueue %s: %w", e.EventName(), ctx.Err())
	case <-b.stop:
		return ErrBusClosed
	}
}

// Close stops intake, drains the queue, and waits for in-flight handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stop)
	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.queue:
			b.deliver(e)
		case <-b.stop:
			// Drain what was accepted before the stop.
			for {
				select {
				case e := <-b.queue:
					b.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(e domoutbox.Event) {
	b.mu.RLock()
	handlers := b.handlers[e.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(e, h)
	}
}

func (b *Bus) invoke(e domoutbox.Event, h domoutbox.Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.failures.Add(1, observability.L("event", e.EventName()))
			b.log.Error("event_handler_panic",
				observability.F("event", e.EventName()),
				observability.F("panic", fmt.Sprint(r)),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.handlerTimeout)
	defer cancel()
	if err := h(ctx, e); err != nil {
		b.failures.Add(1, observability.L("event", e.EventName()))
		b.log.Error("event_handler_failed",
			observability.F("event", e.EventName()),
			observability.Err(err),
		)
	}
}
