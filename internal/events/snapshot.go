package events

import "github.com/julianstephens/calgrid/internal/models"

// Snapshot is an immutable copy of a store taken just before a speculative mutation.
type Snapshot struct {
	events []models.Event
}

// Events returns a copy of the captured collection.
func (s Snapshot) Events() []models.Event {
	return cloneEvents(s.events)
}

// Len returns the number of captured events.
func (s Snapshot) Len() int {
	return len(s.events)
}

// Lookup returns the captured record for id and its position.
func (s Snapshot) Lookup(id string) (models.Event, int, bool) {
	for i, e := range s.events {
		if e.ID == id {
			return e, i, true
		}
	}
	return models.Event{}, -1, false
}
