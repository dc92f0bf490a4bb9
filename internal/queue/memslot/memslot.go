// Package memslot is an in-process queue slot for development and tests.
package memslot

import (
	"context"
	"sync"
)

// Slot holds values in a map guarded by a mutex.
type Slot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty slot.
func New() *Slot {
	return &Slot{values: make(map[string][]byte)}
}

// Get implements queue.Slot.
func (s *Slot) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Put implements queue.Slot.
func (s *Slot) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}
