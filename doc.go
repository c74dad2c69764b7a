// Package notisync keeps a client-side copy of a user's server-held
// notifications in sync by polling, and broadcasts every change on an
// in-process event bus.
//
// The Engine is the single entry point. It composes a REST client
// (pkg/apiclient), an in-memory cache with optimistic mutations
// (pkg/notifications), a typed pub/sub bus (pkg/bus) and a backoff-driven
// polling scheduler. Reads never touch the network; mutations update the
// cache first and revert if the server rejects them.
//
// Basic usage:
//
//	client, err := apiclient.New(apiclient.Config{BaseURL: "https://api.example.com"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine, err := notisync.New(client, notisync.WithPollInterval(30*time.Second))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Close()
//
//	engine.Subscribe(notisync.TopicUnreadCount, func(ev notisync.Event) {
//		badge.Set(ev.(notisync.UnreadCountEvent).Count)
//	})
//
//	engine.Start(context.Background())
//
// Failed polls retry with exponential backoff; once the retries are
// exhausted, or on an authentication error, the engine publishes
// TopicPollingError and stops until Start is called again. Events are
// delivered synchronously in subscription order, so handlers must be
// fast and must not call blocking Engine methods.
package notisync
