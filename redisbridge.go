package notisync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notisync/pkg/bus"
	"github.com/dmitrymomot/notisync/pkg/logger"
)

// RedisPublisher is the slice of the go-redis client the bridge needs.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// envelope is the wire form of a mirrored event.
type envelope struct {
	Topic     string    `json:"topic"`
	Payload   Event     `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// RedisBridge mirrors engine events onto a Redis pub/sub channel so other
// processes can react to notification changes. Delivery is best effort: a
// failed PUBLISH is logged and dropped, never retried, and never blocks
// the engine's own subscribers for long.
type RedisBridge struct {
	rdb     RedisPublisher
	channel string
	log     *slog.Logger
	timeout time.Duration
}

// BridgeOption configures a RedisBridge.
type BridgeOption func(*RedisBridge)

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(log *slog.Logger) BridgeOption {
	return func(b *RedisBridge) {
		if log != nil {
			b.log = log
		}
	}
}

// WithPublishTimeout bounds each PUBLISH call. Defaults to 2s.
func WithPublishTimeout(d time.Duration) BridgeOption {
	return func(b *RedisBridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewRedisBridge creates a bridge that publishes JSON envelopes on the
// given channel.
func NewRedisBridge(rdb RedisPublisher, channel string, opts ...BridgeOption) *RedisBridge {
	b := &RedisBridge{
		rdb:     rdb,
		channel: channel,
		log:     slog.Default(),
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach subscribes the bridge to every engine topic and returns a detach
// function that removes the subscriptions.
func (b *RedisBridge) Attach(e *Engine) func() {
	subs := make([]*bus.Subscription, 0, len(AllTopics()))
	for _, topic := range AllTopics() {
		subs = append(subs, e.Subscribe(topic, b.forward))
	}
	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}

func (b *RedisBridge) forward(ev Event) {
	payload, err := json.Marshal(envelope{
		Topic:     ev.Topic(),
		Payload:   ev,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		b.log.Error("encode event failed",
			logger.Component("redisbridge"), logger.Topic(ev.Topic()), logger.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Error("publish event failed",
			logger.Component("redisbridge"), logger.Topic(ev.Topic()), logger.Error(err))
	}
}
