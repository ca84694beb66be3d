package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/models"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrDateRequired  = errors.New("date is required")
	ErrStartRequired = errors.New("start time is required")
	ErrEndRequired   = errors.New("end time is required")
	ErrEndNotAfter   = errors.New("end time must be after start time")
	ErrInvalidColor  = errors.New("invalid color")
)

// EventInput is the raw content of the event form.
type EventInput struct {
	Title     string
	Date      string // YYYY-MM-DD
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Color     string
}

// FieldErrors maps a form field name to its first problem.
type FieldErrors map[string]error

func (fe FieldErrors) Error() string {
	var parts []string
	for _, field := range []string{"title", "date", "start", "end", "color"} {
		if err, ok := fe[field]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", field, err))
		}
	}
	return strings.Join(parts, "; ")
}

// InputFromEvent fills the form from an existing event.
func InputFromEvent(e models.Event) EventInput {
	return EventInput{
		Title:     e.Title,
		Date:      e.Start.Format(constants.DateFormat),
		StartTime: e.Start.Format(constants.TimeFormat),
		EndTime:   e.End.Format(constants.TimeFormat),
		Color:     e.Color,
	}
}

// ValidateTitle rejects blank titles.
func ValidateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrTitleRequired
	}
	return nil
}

// ValidateDate requires a YYYY-MM-DD date.
func ValidateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrDateRequired
	}
	if _, err := time.ParseInLocation(constants.DateFormat, strings.TrimSpace(s), time.Local); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return nil
}

// ValidateClock requires an HH:MM time; missing is returned for blank input.
func ValidateClock(s string, missing error) error {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	if _, err := time.Parse(constants.TimeFormat, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return nil
}

// ValidateColor accepts the empty default and the named palette.
func ValidateColor(s string) error {
	if !slices.Contains(constants.EventColors, strings.ToLower(strings.TrimSpace(s))) {
		return fmt.Errorf("%w %q", ErrInvalidColor, s)
	}
	return nil
}

// Validate checks every field and the start/end ordering.
func (in EventInput) Validate() FieldErrors {
	errs := FieldErrors{}
	if err := ValidateTitle(in.Title); err != nil {
		errs["title"] = err
	}
	if err := ValidateDate(in.Date); err != nil {
		errs["date"] = err
	}
	if err := ValidateClock(in.StartTime, ErrStartRequired); err != nil {
		errs["start"] = err
	}
	if err := ValidateClock(in.EndTime, ErrEndRequired); err != nil {
		errs["end"] = err
	}
	if err := ValidateColor(in.Color); err != nil {
		errs["color"] = err
	}

	_, badStart := errs["start"]
	_, badEnd := errs["end"]
	if !badStart && !badEnd {
		start, _ := time.Parse(constants.TimeFormat, strings.TrimSpace(in.StartTime))
		end, _ := time.Parse(constants.TimeFormat, strings.TrimSpace(in.EndTime))
		if !end.After(start) {
			errs["end"] = ErrEndNotAfter
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ToEvent validates the input and builds an event without an id in loc.
func (in EventInput) ToEvent(loc *time.Location) (models.Event, error) {
	if errs := in.Validate(); errs != nil {
		return models.Event{}, errs
	}
	day, _ := time.ParseInLocation(constants.DateFormat, strings.TrimSpace(in.Date), loc)
	return models.Event{
		Title: strings.TrimSpace(in.Title),
		Start: atClock(day, in.StartTime),
		End:   atClock(day, in.EndTime),
		Color: strings.ToLower(strings.TrimSpace(in.Color)),
	}, nil
}

// ToPatch validates the input and builds a patch covering every field.
func (in EventInput) ToPatch(loc *time.Location) (models.EventPatch, error) {
	e, err := in.ToEvent(loc)
	if err != nil {
		return models.EventPatch{}, err
	}
	return models.PatchFrom(e), nil
}

func atClock(day time.Time, clock string) time.Time {
	t, _ := time.Parse(constants.TimeFormat, strings.TrimSpace(clock))
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}
