package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictOverlappingEvents ConflictType = "overlapping_events"
	ConflictInvalidTimeRange  ConflictType = "invalid_time_range"
	ConflictMissingTitle      ConflictType = "missing_title"
	ConflictDuplicateID       ConflictType = "duplicate_id"
)

// Conflict represents a detected problem in a set of events
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Event titles involved
	EventIDs    []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// ValidateEvents reports malformed events and overlapping groups. Overlaps are
// informational; the calendar renders them side by side.
func ValidateEvents(events []models.Event) ValidationResult {
	var result ValidationResult
	seen := make(map[string]bool, len(events))

	for _, e := range events {
		if seen[e.ID] {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateID,
				Description: fmt.Sprintf("Event id %s is used more than once", e.ID),
				EventIDs:    []string{e.ID},
			})
		}
		seen[e.ID] = true

		if strings.TrimSpace(e.Title) == "" {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictMissingTitle,
				Description: fmt.Sprintf("Event %s has no title", e.ID),
				Date:        e.Start.Format(constants.DateFormat),
				EventIDs:    []string{e.ID},
			})
		}
		if !e.End.After(e.Start) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidTimeRange,
				Description: fmt.Sprintf("Event %q ends at or before its start", e.Title),
				Date:        e.Start.Format(constants.DateFormat),
				Items:       []string{e.Title},
				EventIDs:    []string{e.ID},
			})
		}
	}

	byDay := layout.EventsByDay(events)
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	slices.Sort(days)

	for _, day := range days {
		for _, group := range layout.GroupOverlapping(byDay[day]) {
			if len(group) < 2 {
				continue
			}
			c := Conflict{Type: ConflictOverlappingEvents, Date: day}
			for _, e := range group {
				c.Items = append(c.Items, e.Title)
				c.EventIDs = append(c.EventIDs, e.ID)
			}
			c.Description = fmt.Sprintf("%s: %d overlapping events (%s)", day, len(group), strings.Join(c.Items, ", "))
			result.Conflicts = append(result.Conflicts, c)
		}
	}

	return result
}
