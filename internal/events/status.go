package events

import (
	"slices"
	"sync"
)

// Kind names a mutation.
type Kind string

const (
	KindAdd    Kind = "add"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Kinds lists every mutation kind.
var Kinds = []Kind{KindAdd, KindUpdate, KindDelete}

// Status is a point-in-time view of in-flight mutations and the last failure.
type Status struct {
	Adding bool
	// Updating and Deleting hold the most recently started in-flight id, or "".
	Updating string
	Deleting string

	UpdatingIDs []string
	DeletingIDs []string

	Err error
}

// AnyInFlight reports whether any mutation is awaiting its remote result.
func (s Status) AnyInFlight() bool {
	return s.Adding || s.Updating != "" || s.Deleting != ""
}

// LastError returns the surfaced message of the last failure, or "".
func (s Status) LastError() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// IsUpdating reports whether an update for id is in flight.
func (s Status) IsUpdating(id string) bool {
	return slices.Contains(s.UpdatingIDs, id)
}

// IsDeleting reports whether a delete for id is in flight.
func (s Status) IsDeleting(id string) bool {
	return slices.Contains(s.DeletingIDs, id)
}

// tracker counts in-flight slots. Each begin is paired with exactly one end, so
// overlapping operations never clear each other's markers.
type tracker struct {
	mu       sync.Mutex
	adding   int
	updating []string
	deleting []string
	err      error
}

func (t *tracker) begin(kind Kind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = nil
	switch kind {
	case KindAdd:
		t.adding++
	case KindUpdate:
		t.updating = append(t.updating, id)
	case KindDelete:
		t.deleting = append(t.deleting, id)
	}
}

func (t *tracker) end(kind Kind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch kind {
	case KindAdd:
		if t.adding > 0 {
			t.adding--
		}
	case KindUpdate:
		t.updating = dropLast(t.updating, id)
	case KindDelete:
		t.deleting = dropLast(t.deleting, id)
	}
}

func (t *tracker) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

func (t *tracker) clearErr() {
	t.setErr(nil)
}

func (t *tracker) status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Adding:      t.adding > 0,
		Updating:    last(t.updating),
		Deleting:    last(t.deleting),
		UpdatingIDs: unique(t.updating),
		DeletingIDs: unique(t.deleting),
		Err:         t.err,
	}
}

func dropLast(ids []string, id string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return slices.Delete(ids, i, i+1)
		}
	}
	return ids
}

func last(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

func unique(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
