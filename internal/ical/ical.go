// Package ical converts events to and from iCalendar (RFC 5545) data.
package ical

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
)

const (
	productID = "-//calgrid//calgrid " + constants.Version + "//EN"

	propColor = ics.ComponentProperty("COLOR")
	dateOnly  = "20060102"
)

// ImportResult is the outcome of reading a calendar.
type ImportResult struct {
	Events []models.Event
	// Skipped lists the UIDs (or summaries) of VEVENTs that could not be imported.
	Skipped []string
}

// Import reads VEVENTs from r. Recurring events and events without a usable time
// range are skipped.
func Import(r io.Reader) (ImportResult, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to parse calendar: %w", err)
	}

	result := ImportResult{Events: []models.Event{}}
	for _, ve := range cal.Events() {
		e, err := parseVEvent(ve)
		if err != nil {
			name := ve.Id()
			if name == "" {
				name = propValue(ve, ics.ComponentPropertySummary)
			}
			logger.Warn("Skipping calendar entry", "uid", name, "error", err)
			result.Skipped = append(result.Skipped, name)
			continue
		}
		result.Events = append(result.Events, e)
	}

	logger.Info("Calendar imported", "events", len(result.Events), "skipped", len(result.Skipped))
	return result, nil
}

func parseVEvent(ve *ics.VEvent) (models.Event, error) {
	if ve.GetProperty(ics.ComponentPropertyRrule) != nil {
		return models.Event{}, errors.New("recurring events are not supported")
	}

	start, err := eventTime(ve, ics.ComponentPropertyDtStart)
	if err != nil {
		return models.Event{}, fmt.Errorf("bad DTSTART: %w", err)
	}
	end, err := eventTime(ve, ics.ComponentPropertyDtEnd)
	if err != nil {
		if !isAllDay(ve) {
			return models.Event{}, fmt.Errorf("bad DTEND: %w", err)
		}
		end = start.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return models.Event{}, errors.New("event ends before it starts")
	}

	title := strings.TrimSpace(propValue(ve, ics.ComponentPropertySummary))
	if title == "" {
		return models.Event{}, errors.New("missing SUMMARY")
	}

	color := strings.ToLower(strings.TrimSpace(propValue(ve, propColor)))
	if !slices.Contains(constants.EventColors, color) {
		color = constants.ColorDefault
	}

	return models.Event{
		ID:    ve.Id(),
		Title: title,
		Start: start.Local(),
		End:   end.Local(),
		Color: color,
	}, nil
}

func eventTime(ve *ics.VEvent, prop ics.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(prop)
	if p == nil {
		return time.Time{}, errors.New("missing")
	}
	// Date-only values are all-day and anchored to local midnight.
	if v := strings.TrimSpace(p.Value); !strings.Contains(v, "T") {
		return time.ParseInLocation(dateOnly, v, time.Local)
	}
	if prop == ics.ComponentPropertyDtEnd {
		return ve.GetEndAt()
	}
	return ve.GetStartAt()
}

func isAllDay(ve *ics.VEvent) bool {
	p := ve.GetProperty(ics.ComponentPropertyDtStart)
	return p != nil && !strings.Contains(p.Value, "T")
}

func propValue(ve *ics.VEvent, prop ics.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// Export writes events as a PUBLISH calendar.
func Export(events []models.Event, w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	stamp := time.Now().UTC()
	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start.UTC())
		ve.SetEndAt(e.End.UTC())
		ve.SetSummary(e.Title)
		if e.Color != constants.ColorDefault {
			ve.SetProperty(propColor, e.Color)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}
