package notisync

import (
	"encoding/json"

	"github.com/dmitrymomot/notisync/pkg/notifications"
)

// Event bus topics published by the engine. Subscribe with
// Engine.Subscribe; payload types are listed per topic below.
const (
	// TopicUpdated fires when the cached notification list changed in any
	// way. Payload: UpdatedEvent.
	TopicUpdated = "notifications:updated"

	// TopicUnreadCount fires when the unread counter changed. It can fire
	// more often than TopicUpdated (optimistic mark-read) but never twice
	// in a row with the same value. Payload: UnreadCountEvent.
	TopicUnreadCount = "notifications:unread_count"

	// TopicNew fires when a poll brought notifications that were not in
	// the previous snapshot. Payload: NewEvent.
	TopicNew = "notifications:new"

	// TopicPollingStarted fires on Start. Payload: PollingStartedEvent.
	TopicPollingStarted = "notifications:polling_started"

	// TopicPollingStopped fires on Stop. Payload: PollingStoppedEvent.
	TopicPollingStopped = "notifications:polling_stopped"

	// TopicPollingError fires once when polling gives up after exhausting
	// its retries or hitting an auth error. Payload: PollingErrorEvent.
	TopicPollingError = "notifications:polling_error"
)

// AllTopics returns every topic the engine publishes on.
func AllTopics() []string {
	return []string{
		TopicUpdated,
		TopicUnreadCount,
		TopicNew,
		TopicPollingStarted,
		TopicPollingStopped,
		TopicPollingError,
	}
}

// Event is the payload contract of the engine's bus: each topic carries
// exactly one concrete event type.
type Event interface {
	Topic() string
}

// UpdatedEvent carries a read-only copy of the full cached list.
type UpdatedEvent struct {
	Notifications []notifications.Notification `json:"notifications"`
}

func (UpdatedEvent) Topic() string { return TopicUpdated }

// UnreadCountEvent carries the current unread counter.
type UnreadCountEvent struct {
	Count int `json:"count"`
}

func (UnreadCountEvent) Topic() string { return TopicUnreadCount }

// NewEvent carries only the newly arrived notifications.
type NewEvent struct {
	Notifications []notifications.Notification `json:"notifications"`
	Count         int                          `json:"count"`
}

func (NewEvent) Topic() string { return TopicNew }

// PollingStartedEvent announces a new polling cycle.
type PollingStartedEvent struct {
	Generation uint64 `json:"generation"`
}

func (PollingStartedEvent) Topic() string { return TopicPollingStarted }

// PollingStoppedEvent announces that polling was stopped by the caller.
type PollingStoppedEvent struct {
	Generation uint64 `json:"generation"`
}

func (PollingStoppedEvent) Topic() string { return TopicPollingStopped }

// PollingErrorEvent carries the terminal error after which polling gave
// up. The cached list is left intact; call Start to resume syncing.
type PollingErrorEvent struct {
	Err                 error
	ConsecutiveFailures int
}

func (PollingErrorEvent) Topic() string { return TopicPollingError }

// MarshalJSON renders the error as a string so the event survives
// serialization boundaries like the Redis mirror.
func (e PollingErrorEvent) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Error               string `json:"error"`
		ConsecutiveFailures int    `json:"consecutive_failures"`
	}{
		Error:               msg,
		ConsecutiveFailures: e.ConsecutiveFailures,
	})
}
