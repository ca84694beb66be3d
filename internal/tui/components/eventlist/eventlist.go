package eventlist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
)

type AddEventMsg struct{}

type DeleteEventMsg struct {
	ID string
}

type EditEventMsg struct {
	Event models.Event
}

type Item struct {
	Event models.Event
	// Pending is set while an update or delete of the event awaits the backend.
	Pending string
}

func (i Item) Title() string {
	if i.Pending != "" {
		return i.Event.Title + " (" + i.Pending + "…)"
	}
	return i.Event.Title
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%s - %s", i.Event.Start.Format(constants.TimeFormat), i.Event.End.Format(constants.TimeFormat))
	if i.Event.Color != constants.ColorDefault {
		desc += " | " + i.Event.Color
	}
	return desc
}

func (i Item) FilterValue() string { return i.Event.Title }

type KeyMap struct {
	Add    key.Binding
	Edit   key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e/enter", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Events"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // help is rendered by the parent model
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	// q and esc belong to the parent model.
	l.KeyMap.Quit.SetEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Edit, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Edit, keys.Delete}
	}

	return Model{list: l, keys: keys}
}

// SetEvents shows the events starting on day, in start order. updating and
// deleting are the in-flight ids.
func (m *Model) SetEvents(day time.Time, events []models.Event, updating, deleting []string) {
	pending := make(map[string]string, len(updating)+len(deleting))
	for _, id := range updating {
		pending[id] = "saving"
	}
	for _, id := range deleting {
		pending[id] = "deleting"
	}

	var items []list.Item
	for _, e := range layout.EventsForDay(events, day) {
		items = append(items, Item{Event: e, Pending: pending[e.ID]})
	}
	m.list.SetItems(items)
}

// Selected returns the highlighted event.
func (m Model) Selected() (models.Event, bool) {
	if i, ok := m.list.SelectedItem().(Item); ok {
		return i.Event, true
	}
	return models.Event{}, false
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddEventMsg{} }
		case key.Matches(msg, m.keys.Edit):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return EditEventMsg{Event: i.Event} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.list.SelectedItem().(Item); ok {
				return m, func() tea.Msg { return DeleteEventMsg{ID: i.Event.ID} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No events on this day.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
