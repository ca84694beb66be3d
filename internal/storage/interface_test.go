package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/calgrid/internal/models"
)

func TestNormalizeEvent(t *testing.T) {
	in := models.Event{
		ID:    "1",
		Title: "  Focus  ",
		Start: time.Date(2024, 3, 4, 9, 0, 42, 500, time.Local),
		End:   time.Date(2024, 3, 4, 10, 0, 5, 0, time.Local),
		Color: " Red ",
	}
	got := NormalizeEvent(in)
	if got.Title != "Focus" || got.Color != "red" {
		t.Errorf("NormalizeEvent() = %+v", got)
	}
	if got.Start.Second() != 0 || got.Start.Nanosecond() != 0 || got.End.Second() != 0 {
		t.Errorf("times not truncated: %v %v", got.Start, got.End)
	}
}

func TestCheckEvent(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)
	tests := []struct {
		name    string
		event   models.Event
		wantErr bool
	}{
		{"valid", models.Event{Title: "a", Start: start, End: start.Add(time.Hour)}, false},
		{"no title", models.Event{Start: start, End: start.Add(time.Hour)}, true},
		{"zero length", models.Event{Title: "a", Start: start, End: start}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEvent(tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckEvent() = %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("error %v does not wrap ErrInvalidEvent", err)
			}
		})
	}
}
