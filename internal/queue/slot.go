// Package queue owns the locally recorded assessment list: an ordered,
// persisted collection of entries kept sorted by severity level.
package queue

import "context"

// DefaultKey is the slot key the entry list is stored under.
const DefaultKey = "patientQueue"

// Slot is a single named persistent cell holding the serialized entry list.
// Writers overwrite the whole value; there is no compare-and-swap.
type Slot interface {
	// Get returns the stored value and true, or false when the key was
	// never written.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}
