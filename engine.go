package notisync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notisync/pkg/async"
	"github.com/dmitrymomot/notisync/pkg/backoff"
	"github.com/dmitrymomot/notisync/pkg/bus"
	"github.com/dmitrymomot/notisync/pkg/logger"
	"github.com/dmitrymomot/notisync/pkg/notifications"
	"github.com/dmitrymomot/notisync/pkg/statemachine"
)

// Client is the transport surface the engine needs. *apiclient.Client
// implements it; tests substitute a fake.
type Client interface {
	List(ctx context.Context) ([]notifications.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
}

// Engine keeps a local notification cache in sync with the server and
// broadcasts changes on an event bus. Reads are served from the cache;
// mutations apply optimistically and revert if the remote call fails.
//
// An Engine is safe for concurrent use. Event handlers run on the
// publishing goroutine, which can be the poller's, so they must not call
// back into blocking Engine methods.
type Engine struct {
	client Client
	cache  *notifications.Cache
	events *bus.Bus[Event]
	poller *poller
	log    *slog.Logger

	// syncMu serializes direct syncs taken when the poller is stopped.
	syncMu sync.Mutex

	unreadMu   sync.Mutex
	lastUnread int
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	log          *slog.Logger
	pollInterval time.Duration
	policy       backoff.Policy
}

// WithLogger sets the logger used by the engine, its poller and its bus.
func WithLogger(log *slog.Logger) Option {
	return func(o *engineOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithPollInterval sets the recurring poll interval. Defaults to 30s.
func WithPollInterval(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithBackoffPolicy sets the retry policy applied to failed polls.
func WithBackoffPolicy(p backoff.Policy) Option {
	return func(o *engineOptions) {
		o.policy = p
	}
}

// WithConfig applies an environment-derived Config.
func WithConfig(cfg Config) Option {
	return func(o *engineOptions) {
		if cfg.PollInterval > 0 {
			o.pollInterval = cfg.PollInterval
		}
		o.policy = cfg.BackoffPolicy()
	}
}

// New creates an Engine around the given client. The engine starts idle;
// call Start to begin polling.
func New(client Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	o := &engineOptions{
		log:          slog.Default(),
		pollInterval: 30 * time.Second,
		policy:       backoff.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		client:     client,
		cache:      notifications.NewCache(),
		events:     bus.New[Event](bus.WithLogger(o.log)),
		log:        o.log,
		lastUnread: -1,
	}
	e.poller = newPoller(e.pollSync, o.pollInterval, o.policy, o.log, e.onPollingTerminal)
	return e, nil
}

// Subscribe registers a handler for one topic. Handlers on the same topic
// run synchronously in subscription order; a panicking handler is
// recovered and does not affect the others.
func (e *Engine) Subscribe(topic string, fn func(Event)) *bus.Subscription {
	return e.events.Subscribe(topic, fn)
}

// Start begins recurring polling. The first poll runs immediately. The
// given context bounds the whole polling cycle; cancelling it stops the
// loop. Starting an already polling engine is a no-op.
func (e *Engine) Start(ctx context.Context) {
	if !e.poller.start(ctx) {
		return
	}
	e.events.Publish(TopicPollingStarted, PollingStartedEvent{
		Generation: e.poller.currentGeneration(),
	})
}

// Stop halts polling, cancelling any in-flight poll or pending backoff
// timer, and waits for the loop to exit. The cache is left intact.
// Stopping an idle engine is a no-op.
func (e *Engine) Stop() {
	gen := e.poller.currentGeneration()
	if !e.poller.stop() {
		return
	}
	e.events.Publish(TopicPollingStopped, PollingStoppedEvent{Generation: gen})
}

// IsPolling reports whether the recurring poll loop is running.
func (e *Engine) IsPolling() bool {
	return e.poller.isRunning()
}

// State returns the polling lifecycle state.
func (e *Engine) State() statemachine.State {
	return e.poller.state()
}

// Notifications returns a copy of the cached list, newest first.
func (e *Engine) Notifications() []notifications.Notification {
	return e.cache.Snapshot()
}

// UnreadCount returns the unread counter derived from the cache.
func (e *Engine) UnreadCount() int {
	return e.cache.UnreadCount()
}

// Refresh forces an immediate out-of-band poll and waits for it. While
// polling it is executed by the poll loop, so it cannot overlap a
// scheduled poll and does not shift the schedule. On a stopped engine it
// performs a one-shot sync directly.
func (e *Engine) Refresh(ctx context.Context) error {
	err := e.poller.refresh(ctx)
	if errors.Is(err, errNotPolling) {
		e.syncMu.Lock()
		defer e.syncMu.Unlock()
		return e.pollSync(ctx, e.poller.currentGeneration())
	}
	return err
}

// RefreshAsync runs Refresh in the background and resolves with the
// unread count once the sync settles.
func (e *Engine) RefreshAsync(ctx context.Context) *async.Future[int] {
	return async.Run(ctx, func(ctx context.Context) (int, error) {
		if err := e.Refresh(ctx); err != nil {
			return 0, err
		}
		return e.cache.UnreadCount(), nil
	})
}

// SetPollingInterval changes the recurring interval. The change takes
// effect after the next scheduled tick. Non-positive values are ignored.
func (e *Engine) SetPollingInterval(d time.Duration) {
	e.poller.setInterval(d)
}

// Reset clears the cache and retry state without touching the polling
// lifecycle, then announces the now-empty list. Used on logout.
func (e *Engine) Reset() {
	e.cache.Reset()
	e.poller.resetFailures()
	e.events.Publish(TopicUpdated, UpdatedEvent{Notifications: []notifications.Notification{}})
	e.publishUnread()
}

// Close stops polling and shuts the bus down. The engine must not be
// used afterwards.
func (e *Engine) Close() {
	e.Stop()
	e.events.Close()
}

// MarkAsRead marks one notification as read. The cache flips immediately
// and events fire before the remote call; a remote failure reverts the
// edit, re-announces the count and returns the error. Marking an absent
// or already-read notification is a no-op.
func (e *Engine) MarkAsRead(ctx context.Context, id int64) error {
	if !e.cache.MarkRead(id) {
		return nil
	}
	e.publishUnread()

	if err := e.client.MarkRead(ctx, id); err != nil {
		e.log.ErrorContext(ctx, "mark read failed, reverting",
			logger.Component("engine"), logger.NotificationID(id), logger.Error(err))
		e.cache.RevertRead(id)
		e.publishUnread()
		return err
	}
	e.cache.ConfirmRead(id)
	return nil
}

// MarkAllAsRead marks every cached notification as read. If nothing is
// unread locally, neither events nor the remote call happen.
func (e *Engine) MarkAllAsRead(ctx context.Context) error {
	changed := e.cache.MarkAllRead()
	if len(changed) == 0 {
		return nil
	}
	e.publishUnread()

	if err := e.client.MarkAllRead(ctx); err != nil {
		e.log.ErrorContext(ctx, "mark all read failed, reverting",
			logger.Component("engine"), logger.Error(err))
		e.cache.RevertRead(changed...)
		e.publishUnread()
		return err
	}
	e.cache.ConfirmRead(changed...)
	return nil
}

// DeleteNotification removes one notification. The cache entry disappears
// immediately; a remote failure re-inserts it at its original sort
// position and re-announces the list. Deleting an absent id is a no-op.
func (e *Engine) DeleteNotification(ctx context.Context, id int64) error {
	removed, ok := e.cache.Delete(id)
	if !ok {
		return nil
	}
	e.events.Publish(TopicUpdated, UpdatedEvent{Notifications: e.cache.Snapshot()})
	e.publishUnread()

	if err := e.client.Delete(ctx, id); err != nil {
		e.log.ErrorContext(ctx, "delete failed, restoring",
			logger.Component("engine"), logger.NotificationID(id), logger.Error(err))
		e.cache.RevertDelete(removed)
		e.events.Publish(TopicUpdated, UpdatedEvent{Notifications: e.cache.Snapshot()})
		e.publishUnread()
		return err
	}
	e.cache.ConfirmDelete(id)
	return nil
}

// pollSync is the poller's sync function: fetch a snapshot, discard it if
// the cycle was superseded while the request was in flight, otherwise
// reconcile the cache and publish the resulting events.
func (e *Engine) pollSync(ctx context.Context, gen uint64) error {
	list, err := e.client.List(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil || gen != e.poller.currentGeneration() {
		return nil
	}
	e.applySnapshot(list)
	return nil
}

func (e *Engine) applySnapshot(list []notifications.Notification) {
	diff := e.cache.Replace(list)
	if diff.Changed {
		e.events.Publish(TopicUpdated, UpdatedEvent{Notifications: e.cache.Snapshot()})
	}
	e.publishUnread()
	if len(diff.Added) > 0 {
		e.events.Publish(TopicNew, NewEvent{
			Notifications: diff.Added,
			Count:         len(diff.Added),
		})
	}
}

// publishUnread announces the current unread count, suppressing
// consecutive duplicates. The count is read and published under one lock
// so concurrent mutations cannot deliver their events in inverted order
// and leave subscribers holding a stale final value.
func (e *Engine) publishUnread() {
	e.unreadMu.Lock()
	defer e.unreadMu.Unlock()

	count := e.cache.UnreadCount()
	if count == e.lastUnread {
		return
	}
	e.lastUnread = count
	e.events.Publish(TopicUnreadCount, UnreadCountEvent{Count: count})
}

func (e *Engine) onPollingTerminal(err error, failures int) {
	e.events.Publish(TopicPollingError, PollingErrorEvent{
		Err:                 err,
		ConsecutiveFailures: failures,
	})
}
