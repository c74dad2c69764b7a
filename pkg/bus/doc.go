// Package bus provides a minimal in-process publish/subscribe mechanism
// with named topics and synchronous, ordered delivery.
//
// It exists to decouple the notification engine from its UI consumers: the
// engine publishes typed events, consumers subscribe by topic and receive
// the payload on the publisher's goroutine. Handler panics are isolated
// per invocation, so one broken subscriber never starves the rest.
//
//	b := bus.New[string]()
//	sub := b.Subscribe("greetings", func(msg string) {
//	    fmt.Println(msg)
//	})
//	defer sub.Unsubscribe()
//
//	b.Publish("greetings", "hello")
package bus
