package queue

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/esitriage/internal/esi"
)

// ErrSlotUnread is returned by Append while the slot cannot be read, so the
// stored queue is left untouched instead of being overwritten.
var ErrSlotUnread = errors.New("queue slot is unreadable, not overwriting it")

// Persist and load outcomes reported to hooks.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomePartial = "partial"
)

// Hooks receives instrumentation callbacks. Nil fields are skipped.
type Hooks struct {
	OnPersist func(outcome string, duration float64)
	OnLoad    func(outcome string, entries int)
}

// Store is the single owner of the local entry list. The list is kept
// ascending by level; a new entry goes to the head before a stable sort, so
// among equal levels the newest comes first. Every mutation writes the
// whole list back to the slot.
type Store struct {
	slot   Slot
	key    string
	logger log.Logger
	hooks  Hooks

	mu      sync.Mutex
	entries []esi.Entry
	loadErr error
	// unread is set while the slot could not be read. Writing then would
	// replace records this process never saw.
	unread bool
}

// New creates a store persisting to slot under key. An empty key uses
// DefaultKey.
func New(slot Slot, key string, logger log.Logger, hooks Hooks) *Store {
	if slot == nil {
		panic(xerrors.New("queue slot is required"))
	}
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{
		slot:    slot,
		key:     key,
		logger:  logger,
		hooks:   hooks,
		entries: []esi.Entry{},
	}
}

// Load replaces the in-memory list with the persisted one. It never fails:
// a missing slot yields an empty list, and a read or parse failure yields an
// empty list with the diagnostic available from LoadErr.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []esi.Entry{}
	s.loadErr = nil
	s.unread = false

	data, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		s.unread = true
		s.failLoad(ctx, fmt.Errorf("read slot %q: %w", s.key, err))
		return
	}
	if !ok {
		s.onLoad(OutcomeEmpty, 0)
		return
	}

	entries, warnings, err := Unmarshal(data)
	if err != nil {
		s.failLoad(ctx, err)
		return
	}
	for _, w := range warnings {
		s.logger.Warn(ctx, "dropped malformed symptom list from stored entry",
			"entry_index", w.Index,
			"patient_id", w.ID,
			"error", w.Err,
		)
	}

	sortByLevel(entries)
	s.entries = entries

	outcome := OutcomeOK
	if len(warnings) > 0 {
		outcome = OutcomePartial
	}
	s.onLoad(outcome, len(entries))
	s.logger.Info(ctx, "queue loaded", "key", s.key, "entries", len(entries))
}

func (s *Store) failLoad(ctx context.Context, err error) {
	s.loadErr = err
	s.onLoad(OutcomeError, 0)
	s.logger.Error(ctx, err, "could not load patient queue, starting empty", "key", s.key)
}

// Append inserts e at the head, restores level order and persists the whole
// list. A persist error is returned but the in-memory insert stands.
//
// If the last Load could not read the slot, Append reads it again first and
// merges what it finds. While the slot stays unreadable nothing is written
// and the error wraps ErrSlotUnread.
func (s *Store) Append(ctx context.Context, e esi.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]esi.Entry, 0, len(s.entries)+1)
	entries = append(entries, e.Clone())
	entries = append(entries, s.entries...)
	sortByLevel(entries)
	s.entries = entries

	start := time.Now()
	err := s.reread(ctx)
	if err == nil {
		err = s.persist(ctx)
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		s.logger.Error(ctx, err, "failed to persist patient queue", "key", s.key, "entries", len(s.entries))
	}
	if s.hooks.OnPersist != nil {
		s.hooks.OnPersist(outcome, time.Since(start).Seconds())
	}
	return err
}

// reread retries a failed startup read and merges the persisted entries
// under the ones added since. Malformed stored data is handled as in Load:
// it is discarded and may be overwritten.
func (s *Store) reread(ctx context.Context) error {
	if !s.unread {
		return nil
	}
	data, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("%w: read slot %q: %w", ErrSlotUnread, s.key, err)
	}
	s.unread = false
	s.loadErr = nil
	if !ok {
		return nil
	}

	stored, warnings, err := Unmarshal(data)
	if err != nil {
		s.loadErr = err
		s.logger.Error(ctx, err, "stored patient queue is malformed, discarding it", "key", s.key)
		return nil
	}
	for _, w := range warnings {
		s.logger.Warn(ctx, "dropped malformed symptom list from stored entry",
			"entry_index", w.Index,
			"patient_id", w.ID,
			"error", w.Err,
		)
	}

	merged := make([]esi.Entry, 0, len(s.entries)+len(stored))
	merged = append(merged, s.entries...)
	merged = append(merged, stored...)
	sortByLevel(merged)
	s.entries = merged
	s.logger.Info(ctx, "queue slot readable again, merged stored entries", "key", s.key, "stored", len(stored))
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	b, err := Marshal(s.entries)
	if err != nil {
		return err
	}
	if err := s.slot.Put(ctx, s.key, b); err != nil {
		return fmt.Errorf("write slot %q: %w", s.key, err)
	}
	return nil
}

// Snapshot returns a deep copy of the ordered entries.
func (s *Store) Snapshot() []esi.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]esi.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LoadErr returns the diagnostic recorded by the last Load, if any.
func (s *Store) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Store) onLoad(outcome string, n int) {
	if s.hooks.OnLoad != nil {
		s.hooks.OnLoad(outcome, n)
	}
}

func sortByLevel(entries []esi.Entry) {
	slices.SortStableFunc(entries, func(a, b esi.Entry) int {
		return cmp.Compare(a.Result.Level, b.Result.Level)
	})
}
