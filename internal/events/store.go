package events

import (
	"fmt"
	"sync"

	"github.com/julianstephens/calgrid/internal/models"
)

// Store is an ordered, id-unique collection of events. Every method is atomic with
// respect to the others.
type Store struct {
	mu     sync.RWMutex
	events []models.Event
}

// NewStore returns a store seeded with initial, which must not repeat an id.
func NewStore(initial []models.Event) (*Store, error) {
	s := &Store{}
	if err := s.Replace(initial); err != nil {
		return nil, err
	}
	return s, nil
}

// Add appends e.
func (s *Store) Add(e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(e)
}

// Update merges patch into the event with the given id, in place.
func (s *Store) Update(id string, patch models.EventPatch) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, patch)
}

// Delete removes the event with the given id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) (models.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _, ok := s.removeLocked(id)
	return e, ok
}

// Replace substitutes the whole collection. The store is unchanged on error.
func (s *Store) Replace(events []models.Event) error {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = cloneEvents(events)
	return nil
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.events[i], true
	}
	return models.Event{}, false
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Events returns a copy of the collection in store order.
func (s *Store) Events() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events)
}

// Len returns the number of events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Snapshot captures the current collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{events: cloneEvents(s.events)}
}

// begin applies fn under the lock and returns the state that preceded it. Nothing
// is captured when fn fails.
func (s *Store) begin(fn func() error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{events: cloneEvents(s.events)}
	if err := fn(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// swap replaces the record oldID in its slot with e, which may carry a new id.
func (s *Store) swap(oldID string, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(oldID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, oldID)
	}
	if e.ID != oldID && s.indexLocked(e.ID) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
	}
	s.events[i] = e
	return nil
}

// put overwrites the record with e's id in place.
func (s *Store) put(e models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(e.ID)
	if i < 0 {
		return false
	}
	s.events[i] = e
	return true
}

// insertAt re-inserts e at index, clamped to the current length. It is a no-op if
// the id is already present.
func (s *Store) insertAt(index int, e models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(e.ID) >= 0 {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.events) {
		index = len(s.events)
	}
	s.events = append(s.events, models.Event{})
	copy(s.events[index+1:], s.events[index:])
	s.events[index] = e
	return true
}

func (s *Store) addLocked(e models.Event) error {
	if s.indexLocked(e.ID) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
	}
	s.events = append(s.events, e)
	return nil
}

func (s *Store) updateLocked(id string, patch models.EventPatch) (models.Event, error) {
	i := s.indexLocked(id)
	if i < 0 {
		return models.Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	s.events[i] = patch.Apply(s.events[i])
	return s.events[i], nil
}

func (s *Store) removeLocked(id string) (models.Event, int, bool) {
	i := s.indexLocked(id)
	if i < 0 {
		return models.Event{}, -1, false
	}
	e := s.events[i]
	s.events = append(s.events[:i], s.events[i+1:]...)
	return e, i, true
}

func (s *Store) indexLocked(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneEvents(events []models.Event) []models.Event {
	if events == nil {
		return []models.Event{}
	}
	out := make([]models.Event, len(events))
	copy(out, events)
	return out
}
