package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/calgrid/internal/models"
)

func TestEventInputValidate(t *testing.T) {
	valid := EventInput{Title: "Review", Date: "2024-03-04", StartTime: "09:00", EndTime: "10:30", Color: "green"}

	tests := []struct {
		name  string
		input func(EventInput) EventInput
		field string
		want  error
	}{
		{"valid", func(in EventInput) EventInput { return in }, "", nil},
		{"blank title", func(in EventInput) EventInput { in.Title = "   "; return in }, "title", ErrTitleRequired},
		{"missing date", func(in EventInput) EventInput { in.Date = ""; return in }, "date", ErrDateRequired},
		{"missing start", func(in EventInput) EventInput { in.StartTime = ""; return in }, "start", ErrStartRequired},
		{"missing end", func(in EventInput) EventInput { in.EndTime = ""; return in }, "end", ErrEndRequired},
		{"end before start", func(in EventInput) EventInput { in.EndTime = "08:00"; return in }, "end", ErrEndNotAfter},
		{"end equals start", func(in EventInput) EventInput { in.EndTime = "09:00"; return in }, "end", ErrEndNotAfter},
		{"unknown color", func(in EventInput) EventInput { in.Color = "teal"; return in }, "color", ErrInvalidColor},
		{"default color", func(in EventInput) EventInput { in.Color = ""; return in }, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.input(valid).Validate()
			if tt.want == nil {
				if errs != nil {
					t.Fatalf("Validate() = %v, want nil", errs)
				}
				return
			}
			if !errors.Is(errs[tt.field], tt.want) {
				t.Errorf("Validate()[%s] = %v, want %v", tt.field, errs[tt.field], tt.want)
			}
		})
	}
}

func TestValidateMalformedInput(t *testing.T) {
	if err := ValidateDate("03/04/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if err := ValidateClock("9am", ErrStartRequired); err == nil || errors.Is(err, ErrStartRequired) {
		t.Errorf("ValidateClock(9am) = %v", err)
	}
}

func TestToEvent(t *testing.T) {
	in := EventInput{Title: "  Lunch ", Date: "2024-03-04", StartTime: "12:00", EndTime: "13:15", Color: "Pink"}
	e, err := in.ToEvent(time.Local)
	if err != nil {
		t.Fatal(err)
	}
	want := models.Event{
		Title: "Lunch",
		Start: time.Date(2024, 3, 4, 12, 0, 0, 0, time.Local),
		End:   time.Date(2024, 3, 4, 13, 15, 0, 0, time.Local),
		Color: "pink",
	}
	if e != want {
		t.Errorf("ToEvent() = %+v, want %+v", e, want)
	}

	if _, err := (EventInput{}).ToEvent(time.Local); err == nil || !strings.Contains(err.Error(), "title: title is required") {
		t.Errorf("ToEvent(empty) error = %v", err)
	}
}

func TestInputFromEventRoundTrip(t *testing.T) {
	e := models.Event{
		ID:    "1",
		Title: "Standup",
		Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local),
		End:   time.Date(2024, 3, 4, 9, 15, 0, 0, time.Local),
		Color: "indigo",
	}
	patch, err := InputFromEvent(e).ToPatch(time.Local)
	if err != nil {
		t.Fatal(err)
	}
	if got := patch.Apply(models.Event{ID: "1"}); got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestValidateEvents(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 3, 4, h, 0, 0, 0, time.Local) }
	events := []models.Event{
		{ID: "1", Title: "a", Start: at(9), End: at(10)},
		{ID: "2", Title: "b", Start: at(9), End: at(11)},
		{ID: "3", Title: "", Start: at(13), End: at(12)},
		{ID: "1", Title: "dup", Start: at(15), End: at(16)},
	}

	result := ValidateEvents(events)
	counts := map[ConflictType]int{}
	for _, c := range result.Conflicts {
		counts[c.Type]++
	}

	want := map[ConflictType]int{
		ConflictDuplicateID:       1,
		ConflictMissingTitle:      1,
		ConflictInvalidTimeRange:  1,
		ConflictOverlappingEvents: 1,
	}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("%s: got %d, want %d", k, counts[k], v)
		}
	}
	if !strings.Contains(result.FormatReport(), "2 overlapping events (a, b)") {
		t.Errorf("report = %q", result.FormatReport())
	}
}

func TestValidateEventsClean(t *testing.T) {
	var result ValidationResult
	if result.HasConflicts() || result.FormatReport() != "No conflicts detected." {
		t.Error("empty result should report no conflicts")
	}
}
