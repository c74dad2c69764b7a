// Package notifications holds the notification domain model and the
// in-memory cache that backs the synchronization engine.
//
// The cache is replaced wholesale on every successful poll and mutated
// optimistically by mark-read and delete calls. Optimistic edits stay in a
// pending set until the remote mutation settles, which gives the engine its
// reconciliation rule: a poll result wins over stale local guesses, but an
// in-flight optimistic edit wins over the poll result for its own id.
//
// Typical flow:
//
//	cache := notifications.NewCache()
//	diff := cache.Replace(snapshot)   // poll landed
//	if cache.MarkRead(id) {           // user clicked
//	    if err := remote(); err != nil {
//	        cache.RevertRead(id)
//	    } else {
//	        cache.ConfirmRead(id)
//	    }
//	}
//
// Cache state lives only as long as the owning process; nothing here is
// persisted.
package notifications
