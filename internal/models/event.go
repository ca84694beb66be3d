package models

import "time"

// Event is a single calendar entry.
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color,omitempty"` // empty means default presentation
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether two events share any instant. Touching endpoints do not overlap.
func (e Event) Overlaps(other Event) bool {
	return e.Start.Before(other.End) && other.Start.Before(e.End)
}

// EventPatch is a partial update. Nil fields are left unchanged; a non-nil empty
// Color clears the color.
type EventPatch struct {
	Title *string    `json:"title,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Color *string    `json:"color,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil && p.Color == nil
}

// Apply returns a copy of e with the patch merged over it. The ID never changes.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	return e
}

// PatchFrom builds a patch that overwrites every mutable field with e's values.
func PatchFrom(e Event) EventPatch {
	title, start, end, color := e.Title, e.Start, e.End, e.Color
	return EventPatch{Title: &title, Start: &start, End: &end, Color: &color}
}

// OperationResult is what a remote operation reports back.
type OperationResult struct {
	Success bool
	// Data is the authoritative record. On add it replaces the placeholder; on update
	// it replaces the whole record, keeping the id.
	Data *Event
	// Patch carries partial normalized fields for updates. It is merged after Data.
	Patch *EventPatch
	Error string
}
