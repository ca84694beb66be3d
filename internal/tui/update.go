package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/logger"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/tui/components/eventlist"
	"github.com/julianstephens/calgrid/internal/tui/components/grid"
	"github.com/julianstephens/calgrid/internal/validation"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case changedMsg:
		m.refresh()
		wait := waitForChange(m.ctx, m.session.Changes())
		// The dispatch tick can land before the mutation is marked in flight.
		if m.session.Status().AnyInFlight() {
			return m, tea.Batch(wait, m.spinner.Tick)
		}
		return m, wait

	case mutationDoneMsg:
		if !msg.ok {
			logger.Debug("Mutation failed in UI", "kind", msg.kind)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.session.Status().AnyInFlight() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case constants.EditingView:
		return m.updateForm(msg)
	case constants.ConfirmDeleteView:
		return m.updateConfirmDelete(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Dismiss):
			if m.session.Status().Err != nil {
				m.session.ClearError()
			}
			return m, nil
		}
	}

	if m.state == constants.DayView {
		return m.updateDay(msg)
	}
	return m.updateGrid(msg)
}

func (m Model) updateGrid(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(grid.OpenDayMsg); ok {
		m.day = msg.Day
		m.state = constants.DayView
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) updateDay(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventlist.AddEventMsg:
		start := m.day.Format(constants.DateFormat)
		return m.openForm("", validation.EventInput{Date: start, StartTime: "09:00", EndTime: "10:00"})

	case eventlist.EditEventMsg:
		return m.openForm(msg.Event.ID, validation.InputFromEvent(msg.Event))

	case eventlist.DeleteEventMsg:
		m.deleteID = msg.ID
		m.previousState = m.state
		m.state = constants.ConfirmDeleteView
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.grid.Select(m.day)
			m.state = constants.GridView
			return m, nil
		case key.Matches(msg, m.keys.PrevDay):
			m.day = m.day.AddDate(0, 0, -1)
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.NextDay):
			m.day = m.day.AddDate(0, 0, 1)
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Scroll):
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.eventList, cmd = m.eventList.Update(msg)
	return m, cmd
}

func (m Model) openForm(id string, input validation.EventInput) (tea.Model, tea.Cmd) {
	title := "New event"
	if id != "" {
		title = "Edit event"
	}
	m.editingID = id
	m.eventForm = &input
	m.formError = ""
	m.form = NewEventForm(title, m.eventForm)
	m.previousState = m.state
	m.state = constants.EditingView
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		m.state = m.previousState
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		next, submit := m.submitForm()
		return next, tea.Batch(append(cmds, submit)...)
	case huh.StateAborted:
		m.state = m.previousState
	}
	return m, tea.Batch(cmds...)
}

// submitForm turns the completed form into an add or update. Invalid input keeps
// the form open.
func (m Model) submitForm() (Model, tea.Cmd) {
	input := *m.eventForm

	if m.editingID == "" {
		e, err := input.ToEvent(time.Local)
		if err != nil {
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return m, nil
		}
		m.state = m.previousState
		m.day = e.Start
		m.refresh()
		return m, m.dispatch(events.KindAdd, func() bool { return m.session.Add(m.ctx, e) })
	}

	patch, err := input.ToPatch(time.Local)
	if err != nil {
		m.formError = err.Error()
		m.form.State = huh.StateNormal
		return m, nil
	}
	id := m.editingID
	m.state = m.previousState
	return m, m.dispatch(events.KindUpdate, func() bool { return m.session.Update(m.ctx, id, patch) })
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		id := m.deleteID
		m.deleteID = ""
		m.state = m.previousState
		return m, m.dispatch(events.KindDelete, func() bool { return m.session.Delete(m.ctx, id) })
	case key.Matches(keyMsg, m.keys.Cancel):
		m.deleteID = ""
		m.state = m.previousState
	}
	return m, nil
}

// dispatch runs a mutation off the UI goroutine. Optimistic changes arrive through
// the change subscription; the spinner runs until nothing is in flight.
func (m Model) dispatch(kind events.Kind, op func() bool) tea.Cmd {
	run := func() tea.Msg {
		return mutationDoneMsg{kind: kind, ok: op()}
	}
	return tea.Batch(run, m.spinner.Tick)
}

// eventByID is used by the delete confirmation.
func (m Model) eventByID(id string) (models.Event, bool) {
	return m.session.GetByID(id)
}
