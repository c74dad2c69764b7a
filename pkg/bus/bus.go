package bus

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler consumes events published on a topic. Handlers run synchronously
// on the publisher's goroutine and must not block for long.
type Handler[T any] func(T)

// Bus is an in-process publish/subscribe mechanism with named topics.
// Delivery is synchronous and follows subscription order within a topic;
// concurrent publishers are serialized so subscribers observe events in
// emission order. A panicking handler is recovered and logged without
// affecting delivery to the remaining handlers.
//
// All methods are safe for concurrent use.
type Bus[T any] struct {
	mu        sync.RWMutex
	topics    map[string][]*handlerEntry[T]
	closed    bool
	logger    *slog.Logger
	deliverMu sync.Mutex
}

type handlerEntry[T any] struct {
	id string
	fn Handler[T]
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an empty bus.
func New[T any](opts ...Option) *Bus[T] {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return &Bus[T]{
		topics: make(map[string][]*handlerEntry[T]),
		logger: o.logger,
	}
}

// Subscribe registers a handler for a topic and returns a subscription
// whose Unsubscribe detaches it. Subscribing with a nil handler, or on a
// closed bus, returns an inert subscription.
func (b *Bus[T]) Subscribe(topic string, fn Handler[T]) *Subscription {
	sub := &Subscription{id: uuid.New().String(), topic: topic}
	if fn == nil {
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return sub
	}

	b.topics[topic] = append(b.topics[topic], &handlerEntry[T]{id: sub.id, fn: fn})
	sub.cancel = func() { b.unsubscribe(topic, sub.id) }
	return sub
}

// Publish delivers the payload to every handler subscribed to the topic,
// in subscription order. It returns after the last handler finishes.
// Publishing on a closed bus or on a topic with no subscribers is a no-op.
func (b *Bus[T]) Publish(topic string, payload T) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	entries := make([]*handlerEntry[T], len(b.topics[topic]))
	copy(entries, b.topics[topic])
	b.mu.RUnlock()

	if len(entries) == 0 {
		return
	}

	// Serialize deliveries so concurrent publishers cannot interleave
	// their events mid-fanout.
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	for _, e := range entries {
		b.invoke(topic, e, payload)
	}
}

// invoke runs one handler, isolating panics so a misbehaving subscriber
// cannot break delivery to the others.
func (b *Bus[T]) invoke(topic string, e *handlerEntry[T], payload T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("topic", topic),
				slog.String("subscription_id", e.id),
				slog.Any("panic", r))
		}
	}()
	e.fn(payload)
}

// SubscriberCount returns the number of handlers registered on a topic.
func (b *Bus[T]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close detaches all handlers and makes further Subscribe/Publish calls
// no-ops. Close is idempotent.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	clear(b.topics)
}

func (b *Bus[T]) unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[topic]
	for i, e := range entries {
		if e.id == id {
			b.topics[topic] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id     string
	topic  string
	cancel func()
	once   sync.Once
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Topic returns the topic the subscription is attached to.
func (s *Subscription) Topic() string { return s.topic }

// Unsubscribe detaches the handler. It is idempotent and safe to call
// concurrently with Publish; a delivery already in progress may still
// invoke the handler one last time.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
