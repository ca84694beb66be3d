package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/tui/components/eventlist"
	"github.com/julianstephens/calgrid/internal/tui/components/grid"
)

func today(hour int) time.Time {
	n := time.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, time.Local)
}

func newSession(t *testing.T, remote events.RemoteOps, initial ...models.Event) *events.Session {
	t.Helper()
	s, err := events.NewSession(events.SessionConfig{Initial: initial, Remote: remote})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newModel(t *testing.T, s *events.Session) Model {
	t.Helper()
	m := NewModel(context.Background(), s)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// collect runs cmd and every command it batches, returning the messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// send feeds msg to m and then the UI messages its command produces. Form
// commands (cursor blink and the like) are not run.
func send(m Model, msg tea.Msg) Model {
	next, cmd := m.Update(msg)
	m = next.(Model)
	if m.state == constants.EditingView {
		return m
	}
	for _, out := range collect(cmd) {
		switch out.(type) {
		case grid.OpenDayMsg, eventlist.AddEventMsg, eventlist.EditEventMsg, eventlist.DeleteEventMsg, mutationDoneMsg:
			m = send(m, out)
		}
	}
	return m
}

func TestNewModelStartsOnToday(t *testing.T) {
	m := newModel(t, newSession(t, events.RemoteOps{}))

	if m.state != constants.GridView {
		t.Errorf("state = %v, want grid", m.state)
	}
	if !layout.IsSameDay(m.grid.Selected(), time.Now()) {
		t.Errorf("selected = %v", m.grid.Selected())
	}
	if view := m.View(); !strings.Contains(view, m.grid.Month().Format("January 2006")) {
		t.Errorf("view missing month header:\n%s", view)
	}
}

func TestOpenDayAndAddEvent(t *testing.T) {
	s := newSession(t, events.RemoteOps{})
	m := newModel(t, s)

	m = send(m, keyPress("enter"))
	if m.state != constants.DayView {
		t.Fatalf("state = %v, want day view", m.state)
	}

	m = send(m, keyPress("a"))
	if m.state != constants.EditingView || m.form == nil {
		t.Fatalf("state = %v, want editing", m.state)
	}
	if m.eventForm.Date != time.Now().Format(constants.DateFormat) {
		t.Errorf("form date = %q", m.eventForm.Date)
	}

	m.eventForm.Title = "Standup"
	m.eventForm.StartTime = "09:00"
	m.eventForm.EndTime = "09:15"
	m.eventForm.Color = constants.ColorGreen

	m, cmd := m.submitForm()
	if m.state != constants.DayView {
		t.Errorf("state after submit = %v, want day view", m.state)
	}
	for _, msg := range collect(cmd) {
		m = send(m, msg)
	}

	list := s.Events()
	if len(list) != 1 || list[0].Title != "Standup" || list[0].Color != constants.ColorGreen {
		t.Fatalf("events = %+v", list)
	}
	if m.eventList.Len() != 1 {
		t.Errorf("event list shows %d events", m.eventList.Len())
	}
}

func TestSubmitInvalidFormStaysOpen(t *testing.T) {
	s := newSession(t, events.RemoteOps{})
	m := newModel(t, s)
	m = send(m, keyPress("enter"))
	m = send(m, keyPress("a"))

	m.eventForm.Title = "Backwards"
	m.eventForm.StartTime = "10:00"
	m.eventForm.EndTime = "09:00"

	m, cmd := m.submitForm()
	if cmd != nil {
		t.Error("invalid input should not dispatch a mutation")
	}
	if m.state != constants.EditingView {
		t.Errorf("state = %v, want editing", m.state)
	}
	if !strings.Contains(m.formError, "end time must be after start time") {
		t.Errorf("formError = %q", m.formError)
	}
	if len(s.Events()) != 0 {
		t.Errorf("events = %+v", s.Events())
	}
}

func TestFormEscapeReturnsToDay(t *testing.T) {
	m := newModel(t, newSession(t, events.RemoteOps{}))
	m = send(m, keyPress("enter"))
	m = send(m, keyPress("a"))

	m = send(m, keyPress("esc"))
	if m.state != constants.DayView {
		t.Errorf("state = %v, want day view", m.state)
	}
	m = send(m, keyPress("esc"))
	if m.state != constants.GridView {
		t.Errorf("state = %v, want grid", m.state)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	e := models.Event{ID: "standup", Title: "Standup", Start: today(9), End: today(10)}
	s := newSession(t, events.RemoteOps{}, e)
	m := newModel(t, s)
	m = send(m, keyPress("enter"))

	m = send(m, eventlist.DeleteEventMsg{ID: e.ID})
	if m.state != constants.ConfirmDeleteView {
		t.Fatalf("state = %v, want confirm delete", m.state)
	}
	if view := m.View(); !strings.Contains(view, `Delete "Standup"?`) {
		t.Errorf("view missing prompt:\n%s", view)
	}

	m = send(m, keyPress("n"))
	if m.state != constants.DayView || len(s.Events()) != 1 {
		t.Fatalf("cancel: state = %v, events = %d", m.state, len(s.Events()))
	}

	m = send(m, eventlist.DeleteEventMsg{ID: e.ID})
	m = send(m, keyPress("y"))
	if len(s.Events()) != 0 {
		t.Errorf("events after delete = %+v", s.Events())
	}
	if m.eventList.Len() != 0 {
		t.Errorf("event list still shows %d events", m.eventList.Len())
	}
}

func TestRejectedUpdateShowsBanner(t *testing.T) {
	e := models.Event{ID: "standup", Title: "Standup", Start: today(9), End: today(10)}
	s := newSession(t, events.RemoteOps{
		Update: func(context.Context, string, models.EventPatch) (models.OperationResult, error) {
			return models.OperationResult{Success: false, Error: "calendar is read-only"}, nil
		},
	}, e)
	m := newModel(t, s)
	m = send(m, keyPress("enter"))
	m = send(m, eventlist.EditEventMsg{Event: e})
	if m.state != constants.EditingView {
		t.Fatalf("state = %v, want editing", m.state)
	}

	m.eventForm.Title = "Renamed"
	m, cmd := m.submitForm()
	for _, msg := range collect(cmd) {
		m = send(m, msg)
	}

	if got, _ := s.GetByID(e.ID); got.Title != "Standup" {
		t.Errorf("rejected update was kept: %+v", got)
	}
	if view := m.View(); !strings.Contains(view, "calendar is read-only") {
		t.Errorf("view missing error banner:\n%s", view)
	}

	m = send(m, keyPress("x"))
	if s.Status().Err != nil {
		t.Errorf("error not cleared: %v", s.Status().Err)
	}
	if view := m.View(); strings.Contains(view, "calendar is read-only") {
		t.Errorf("banner still shown:\n%s", view)
	}
}

func TestChangeSubscription(t *testing.T) {
	s := newSession(t, events.RemoteOps{})
	m := newModel(t, s)
	m = send(m, keyPress("enter"))

	cmd := m.Init()
	if !s.Add(context.Background(), models.Event{Title: "Pushed", Start: today(11), End: today(12)}) {
		t.Fatal("Add() = false")
	}
	msg := cmd()
	if _, ok := msg.(changedMsg); !ok {
		t.Fatalf("Init command returned %T, want changedMsg", msg)
	}

	next, resubscribe := m.Update(msg)
	m = next.(Model)
	if resubscribe == nil {
		t.Error("expected a new subscription command")
	}
	if m.eventList.Len() != 1 {
		t.Errorf("event list shows %d events, want 1", m.eventList.Len())
	}
}

func hasTick(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(spinner.TickMsg); ok {
			return true
		}
	}
	return false
}

func TestChangeWhileInFlightRestartsSpinner(t *testing.T) {
	e := models.Event{ID: "standup", Title: "Standup", Start: today(9), End: today(10)}
	release := make(chan struct{})
	s := newSession(t, events.RemoteOps{
		Update: func(context.Context, string, models.EventPatch) (models.OperationResult, error) {
			<-release
			return models.OperationResult{Success: true}, nil
		},
	}, e)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewModel(ctx, s)

	title := "Renamed"
	done := make(chan bool)
	go func() { done <- s.Update(context.Background(), e.ID, models.EventPatch{Title: &title}) }()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Status().IsUpdating(e.ID) {
		if time.Now().After(deadline) {
			t.Fatal("update never went in flight")
		}
		time.Sleep(time.Millisecond)
	}

	next, cmd := m.Update(changedMsg{})
	m = next.(Model)
	cancel()
	if !hasTick(collect(cmd)) {
		t.Error("change while in flight did not restart the spinner")
	}

	close(release)
	if !<-done {
		t.Fatal("update failed")
	}
	_, cmd = m.Update(changedMsg{})
	if hasTick(collect(cmd)) {
		t.Error("spinner restarted with nothing in flight")
	}
}

func TestChangeSubscriptionStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(ctx, newSession(t, events.RemoteOps{}))
	cancel()
	if msg := m.Init()(); msg != nil {
		t.Errorf("Init command returned %v after cancel", msg)
	}
}

func TestQuit(t *testing.T) {
	m := newModel(t, newSession(t, events.RemoteOps{}))
	next, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if view := next.(Model).View(); view != "" {
		t.Errorf("view after quit = %q", view)
	}
}

func TestDayNavigation(t *testing.T) {
	m := newModel(t, newSession(t, events.RemoteOps{}))
	m = send(m, keyPress("enter"))
	start := m.day

	m = send(m, keyPress("l"))
	if !layout.IsSameDay(m.day, start.AddDate(0, 0, 1)) {
		t.Errorf("day after l = %v", m.day)
	}
	m = send(m, keyPress("h"))
	m = send(m, keyPress("h"))
	if !layout.IsSameDay(m.day, start.AddDate(0, 0, -1)) {
		t.Errorf("day after h h = %v", m.day)
	}

	m = send(m, keyPress("esc"))
	if !layout.IsSameDay(m.grid.Selected(), start.AddDate(0, 0, -1)) {
		t.Errorf("grid selection = %v, want the day left in the day view", m.grid.Selected())
	}
}

func TestHeaderShowsModes(t *testing.T) {
	s := newSession(t, events.RemoteOps{
		Delete: func(context.Context, string) (models.OperationResult, error) {
			return models.OperationResult{Success: true}, nil
		},
	})
	view := newModel(t, s).View()
	if !strings.Contains(view, "add:sync update:sync delete:async") {
		t.Errorf("header missing modes:\n%s", view)
	}
}
