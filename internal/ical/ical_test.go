package ical

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/calgrid/internal/models"
)

const sample = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240304T090000Z\r\n" +
	"DTEND:20240304T091500Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"COLOR:Red\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20240305\r\n" +
	"SUMMARY:Holiday\r\n" +
	"COLOR:turquoise\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:weekly\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240306T100000Z\r\n" +
	"DTEND:20240306T110000Z\r\n" +
	"RRULE:FREQ=WEEKLY\r\n" +
	"SUMMARY:Weekly\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:backwards\r\n" +
	"DTSTAMP:20240301T000000Z\r\n" +
	"DTSTART:20240307T100000Z\r\n" +
	"DTEND:20240307T090000Z\r\n" +
	"SUMMARY:Backwards\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImport(t *testing.T) {
	result, err := Import(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(result.Events) != 2 {
		t.Fatalf("imported %d events, want 2: %+v", len(result.Events), result.Events)
	}

	standup := result.Events[0]
	wantStart := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	if standup.ID != "standup" || standup.Title != "Standup" || standup.Color != "red" {
		t.Errorf("standup = %+v", standup)
	}
	if !standup.Start.Equal(wantStart) || standup.Duration() != 15*time.Minute {
		t.Errorf("standup times = %v - %v", standup.Start, standup.End)
	}

	holiday := result.Events[1]
	if holiday.Color != "" {
		t.Errorf("unknown color should fall back to default, got %q", holiday.Color)
	}
	if holiday.Duration() != 24*time.Hour || holiday.Start.Hour() != 0 {
		t.Errorf("all-day event = %v - %v", holiday.Start, holiday.End)
	}

	if strings.Join(result.Skipped, ",") != "weekly,backwards" {
		t.Errorf("Skipped = %v", result.Skipped)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, err := Import(strings.NewReader("not a calendar")); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 4, 12, 0, 0, 0, time.Local)
	events := []models.Event{
		{ID: "a", Title: "Lunch; with team", Start: start, End: start.Add(time.Hour), Color: "green"},
		{ID: "b", Title: "Focus", Start: start.Add(2 * time.Hour), End: start.Add(4 * time.Hour)},
	}

	var buf bytes.Buffer
	if err := Export(events, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(buf.String(), "METHOD:PUBLISH") {
		t.Errorf("missing METHOD in %q", buf.String())
	}

	result, err := Import(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Events) != len(events) {
		t.Fatalf("round trip returned %d events", len(result.Events))
	}
	for i, got := range result.Events {
		want := events[i]
		if got.ID != want.ID || got.Title != want.Title || got.Color != want.Color ||
			!got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Errorf("event %d = %+v, want %+v", i, got, want)
		}
	}
}
