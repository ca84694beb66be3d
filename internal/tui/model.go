package tui

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/tui/components/eventlist"
	"github.com/julianstephens/calgrid/internal/tui/components/grid"
	"github.com/julianstephens/calgrid/internal/tui/components/timeline"
	"github.com/julianstephens/calgrid/internal/tui/theme"
	"github.com/julianstephens/calgrid/internal/validation"
)

// changedMsg reports that the session's collection changed.
type changedMsg struct{}

// mutationDoneMsg is returned by a dispatched mutation once it settles.
type mutationDoneMsg struct {
	kind events.Kind
	ok   bool
}

type Model struct {
	ctx     context.Context
	session *events.Session

	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model

	grid      grid.Model
	timeline  timeline.Model
	eventList eventlist.Model

	form      *huh.Form
	eventForm *validation.EventInput
	editingID string // empty while adding
	deleteID  string
	formError string

	day      time.Time // day shown in the day view
	quitting bool
	width    int
	height   int
}

// NewModel builds the calendar UI over session. ctx bounds every mutation the UI
// dispatches.
func NewModel(ctx context.Context, session *events.Session) Model {
	today := time.Now()
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = statusStyle.Foreground(theme.Accent)

	m := Model{
		ctx:       ctx,
		session:   session,
		state:     constants.GridView,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		grid:      grid.New(today),
		timeline:  timeline.New(0, 0),
		eventList: eventlist.New(0, 0),
		day:       today,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.ctx, m.session.Changes())
}

// waitForChange delivers the next change signal as a changedMsg.
func waitForChange(ctx context.Context, changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			return changedMsg{}
		}
	}
}

// refresh pushes the current events and in-flight markers into the views.
func (m *Model) refresh() {
	list := m.session.Events()
	status := m.session.Status()

	m.grid.SetEvents(list)
	m.grid.SetPending(slices.Concat(status.UpdatingIDs, status.DeletingIDs))
	m.timeline.SetDay(m.day, list)
	m.eventList.SetEvents(m.day, list, status.UpdatingIDs, status.DeletingIDs)
}

func (m *Model) resize() {
	m.help.Width = m.width
	m.grid.SetWidth(m.width - 2)

	paneHeight := m.height - 6
	if paneHeight < 3 {
		paneHeight = 3
	}
	half := (m.width - 4) / 2
	m.timeline.SetSize(half, paneHeight)
	m.eventList.SetSize(m.width-half-4, paneHeight)
}

func (m Model) ShortHelp() []key.Binding {
	var keys []key.Binding
	switch m.state {
	case constants.GridView:
		gk := m.grid.Keys
		keys = []key.Binding{gk.Open, gk.PrevMonth, gk.NextMonth, gk.Today}
	case constants.DayView:
		lk := eventlist.DefaultKeyMap()
		keys = []key.Binding{lk.Add, lk.Edit, lk.Delete, m.keys.Back}
	case constants.EditingView:
		return []key.Binding{m.keys.Back}
	case constants.ConfirmDeleteView:
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	if m.session.Status().Err != nil {
		keys = append(keys, m.keys.Dismiss)
	}
	return append(keys, m.keys.Help, m.keys.Quit)
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Quit, m.keys.Help, m.keys.Dismiss}

	switch m.state {
	case constants.GridView:
		gk := m.grid.Keys
		return [][]key.Binding{
			{gk.Up, gk.Down, gk.Left, gk.Right},
			{gk.PrevMonth, gk.NextMonth, gk.Today, gk.Open},
			global,
		}
	case constants.DayView:
		lk := eventlist.DefaultKeyMap()
		return [][]key.Binding{
			{lk.Add, lk.Edit, lk.Delete},
			{m.keys.PrevDay, m.keys.NextDay, m.keys.Scroll, m.keys.Back},
			global,
		}
	}
	return [][]key.Binding{m.ShortHelp()}
}
