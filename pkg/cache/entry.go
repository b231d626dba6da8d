package cache

import "time"

// Entry is a memoized successful outcome. Entries are never mutated after
// they are written; a newer outcome replaces the entry.
type Entry[V any] struct {
	// Key is the call that produced Value
	Key Key

	// Value is the fetched record
	Value V

	// CreatedAt is when the fetch completed
	CreatedAt time.Time
}

// Age returns how long ago the entry was written.
func (e Entry[V]) Age() time.Duration {
	return time.Since(e.CreatedAt)
}
