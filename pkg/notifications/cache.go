package notifications

import (
	"slices"
	"sync"
)

// Diff describes how one poll snapshot differs from the previous one.
// Added and Removed are computed by id-set difference, not value equality,
// so a notification whose read flag flipped server-side is never reported
// as new.
type Diff struct {
	// Added holds notifications present in the new snapshot but not the
	// previous one, sorted newest first.
	Added []Notification

	// Removed holds ids that disappeared from the snapshot.
	Removed []int64

	// Changed reports whether the stored list differs from the previous
	// one in any way, including read-flag changes on existing entries.
	Changed bool
}

// Cache is the engine's in-memory view of the server-side notification
// list. It supports wholesale replacement from poll snapshots, optimistic
// local mutations with confirm/revert, and id-set diffing.
//
// Optimistic edits are tracked in pending sets until the corresponding
// remote mutation settles, so a concurrent poll result neither resurrects
// an in-flight delete nor clobbers an in-flight mark-read. Server state is
// authoritative for everything else.
//
// Every mutating operation recomputes the unread count under the same lock,
// so no reader can ever observe a count that disagrees with the entries.
// All methods are safe for concurrent use.
type Cache struct {
	mu            sync.RWMutex
	entries       []Notification // sorted by CreatedAt descending
	unread        int
	pendingRead   map[int64]struct{}
	pendingDelete map[int64]struct{}
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		pendingRead:   make(map[int64]struct{}),
		pendingDelete: make(map[int64]struct{}),
	}
}

// Replace stores a new snapshot wholesale and returns the diff against the
// previous contents. Entries are sorted newest first on ingestion; the
// engine never relies on wire order. Ids with an unsettled optimistic
// delete are dropped from the snapshot, and ids with an unsettled
// optimistic mark-read keep their read flag.
func (c *Cache) Replace(snapshot []Notification) Diff {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]Notification, 0, len(snapshot))
	for _, n := range snapshot {
		if _, deleting := c.pendingDelete[n.ID]; deleting {
			continue
		}
		if _, reading := c.pendingRead[n.ID]; reading {
			n.Read = true
		}
		next = append(next, n)
	}
	sortByCreatedAtDesc(next)

	prev := make(map[int64]Notification, len(c.entries))
	for _, n := range c.entries {
		prev[n.ID] = n
	}

	var diff Diff
	seen := make(map[int64]struct{}, len(next))
	for _, n := range next {
		seen[n.ID] = struct{}{}
		old, existed := prev[n.ID]
		if !existed {
			diff.Added = append(diff.Added, n)
			diff.Changed = true
			continue
		}
		if old.Read != n.Read {
			diff.Changed = true
		}
	}
	for _, n := range c.entries {
		if _, ok := seen[n.ID]; !ok {
			diff.Removed = append(diff.Removed, n.ID)
			diff.Changed = true
		}
	}

	c.entries = next
	c.recountUnread()

	return diff
}

// MarkRead optimistically marks one entry as read and records the edit as
// pending until ConfirmRead or RevertRead is called. It reports whether
// anything changed: marking an absent or already-read entry is a no-op.
func (c *Cache) MarkRead(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 || c.entries[i].Read {
		return false
	}

	c.entries[i].Read = true
	c.pendingRead[id] = struct{}{}
	c.recountUnread()
	return true
}

// MarkAllRead optimistically marks every unread entry as read and returns
// the ids that actually changed, for use with RevertRead if the remote
// mutation fails. An already-all-read cache yields an empty slice.
func (c *Cache) MarkAllRead() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changed []int64
	for i := range c.entries {
		if c.entries[i].Read {
			continue
		}
		c.entries[i].Read = true
		c.pendingRead[c.entries[i].ID] = struct{}{}
		changed = append(changed, c.entries[i].ID)
	}
	c.recountUnread()
	return changed
}

// ConfirmRead settles successful optimistic mark-read edits.
func (c *Cache) ConfirmRead(ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.pendingRead, id)
	}
}

// RevertRead undoes failed optimistic mark-read edits, restoring the
// entries to unread.
func (c *Cache) RevertRead(ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.pendingRead, id)
		if i := c.indexOf(id); i >= 0 {
			c.entries[i].Read = false
		}
	}
	c.recountUnread()
}

// Delete optimistically removes one entry and records the removal as
// pending until ConfirmDelete or RevertDelete is called. The removed entry
// is returned so a failed remote call can restore it. Deleting an absent
// id is a no-op.
func (c *Cache) Delete(id int64) (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return Notification{}, false
	}

	removed := c.entries[i]
	c.entries = slices.Delete(c.entries, i, i+1)
	c.pendingDelete[id] = struct{}{}
	c.recountUnread()
	return removed, true
}

// ConfirmDelete settles a successful optimistic delete.
func (c *Cache) ConfirmDelete(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pendingDelete, id)
}

// RevertDelete undoes a failed optimistic delete, re-inserting the entry
// at its original sort position.
func (c *Cache) RevertDelete(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pendingDelete, n.ID)
	if c.indexOf(n.ID) >= 0 {
		return
	}
	c.entries = append(c.entries, n)
	sortByCreatedAtDesc(c.entries)
	c.recountUnread()
}

// UnreadCount returns the number of cached entries with Read == false.
// The count is maintained together with the entries under one lock, so it
// is always consistent with Snapshot.
func (c *Cache) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the cached entries, newest first. The backing
// slice is never exposed, so callers cannot mutate engine state.
func (c *Cache) Snapshot() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Notification, len(c.entries))
	copy(out, c.entries)
	return out
}

// Reset clears all entries and pending edits, returning the cache to its
// freshly constructed state. Used on logout.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.unread = 0
	clear(c.pendingRead)
	clear(c.pendingDelete)
}

// indexOf returns the position of id in entries, or -1. Callers must hold
// the lock.
func (c *Cache) indexOf(id int64) int {
	for i := range c.entries {
		if c.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// recountUnread recomputes the unread counter. Callers must hold the lock.
func (c *Cache) recountUnread() {
	count := 0
	for i := range c.entries {
		if !c.entries[i].Read {
			count++
		}
	}
	c.unread = count
}

// sortByCreatedAtDesc orders entries newest first, breaking timestamp ties
// by id so the order is deterministic.
func sortByCreatedAtDesc(entries []Notification) {
	slices.SortStableFunc(entries, func(a, b Notification) int {
		switch {
		case a.CreatedAt.After(b.CreatedAt):
			return -1
		case a.CreatedAt.Before(b.CreatedAt):
			return 1
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
}
