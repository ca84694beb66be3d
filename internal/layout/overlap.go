package layout

import (
	"sort"
	"time"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/models"
)

// SortByStart returns a copy of events ordered by start time. Ties keep input order.
func SortByStart(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// EventsForDay returns the events starting on day, sorted by start.
func EventsForDay(events []models.Event, day time.Time) []models.Event {
	var out []models.Event
	for _, e := range events {
		if IsSameDay(e.Start, day) {
			out = append(out, e)
		}
	}
	return SortByStart(out)
}

// EventsByDay buckets events by start date (YYYY-MM-DD), each bucket sorted by start.
func EventsByDay(events []models.Event) map[string][]models.Event {
	out := make(map[string][]models.Event)
	for _, e := range SortByStart(events) {
		key := e.Start.Format(constants.DateFormat)
		out[key] = append(out[key], e)
	}
	return out
}

// GroupOverlapping partitions start-sorted events into consecutive groups. An event
// joins the current group when it starts strictly before the latest end seen in the
// group; otherwise it opens a new group. Events that only touch end to start are
// not grouped.
func GroupOverlapping(sorted []models.Event) [][]models.Event {
	var groups [][]models.Event
	var current []models.Event
	var maxEnd time.Time

	for _, e := range sorted {
		if len(current) > 0 && e.Start.Before(maxEnd) {
			current = append(current, e)
			if e.End.After(maxEnd) {
				maxEnd = e.End
			}
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
		current = []models.Event{e}
		maxEnd = e.End
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
