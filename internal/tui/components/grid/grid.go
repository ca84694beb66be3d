package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/tui/theme"
)

const (
	minCellWidth = 10
	cellLines    = 4
	maxTitles    = 2
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true)

	weekdayStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Bold(true)

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Faint)

	selectedCellStyle = cellStyle.
				BorderForeground(theme.Accent)

	dayStyle = lipgloss.NewStyle().
			Foreground(theme.Text)

	todayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(theme.Accent).
			Bold(true)

	outsideStyle = lipgloss.NewStyle().
			Foreground(theme.Faint)

	moreStyle = lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// OpenDayMsg asks the parent to show the day view.
type OpenDayMsg struct {
	Day time.Time
}

type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Today     key.Binding
	Open      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev week"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next week"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev day"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
		PrevMonth: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev month"),
		),
		NextMonth: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next month"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open day"),
		),
	}
}

// Model is the month grid. The selected day always lies on the visible grid.
type Model struct {
	Keys     KeyMap
	month    time.Time
	selected time.Time
	today    time.Time
	byDay    map[string][]models.Event
	pending  map[string]bool
	width    int
}

func New(today time.Time) Model {
	day := layout.StartOfDay(today)
	m := Model{
		Keys:    DefaultKeyMap(),
		month:   layout.MonthOf(day),
		today:   day,
		byDay:   map[string][]models.Event{},
		pending: map[string]bool{},
	}
	m.Select(day)
	return m
}

func (m Model) Month() time.Time    { return m.month }
func (m Model) Selected() time.Time { return m.selected }

// Days returns the 35 dates on the grid.
func (m Model) Days() []time.Time {
	return layout.GenerateGridDays(m.month)
}

func (m *Model) SetEvents(events []models.Event) {
	m.byDay = layout.EventsByDay(events)
}

// SetPending marks events whose update or delete is awaiting the backend.
func (m *Model) SetPending(ids []string) {
	m.pending = make(map[string]bool, len(ids))
	for _, id := range ids {
		m.pending[id] = true
	}
}

func (m *Model) SetToday(today time.Time) {
	m.today = layout.StartOfDay(today)
}

func (m *Model) SetWidth(width int) {
	m.width = width
}

func (m Model) visible(day time.Time) bool {
	days := m.Days()
	return !day.Before(days[0]) && !day.After(days[len(days)-1])
}

// Select moves the cursor to day, switching month when day is not on the grid. A
// day cut from its own month's grid is shown on the following month's.
func (m *Model) Select(day time.Time) {
	day = layout.StartOfDay(day)
	if !m.visible(day) {
		m.month = layout.MonthOf(day)
		if !m.visible(day) {
			m.month = layout.AddMonths(m.month, 1)
		}
	}
	m.selected = day
}

// ShiftMonth shows the month n months away and keeps the same day number where
// it exists.
func (m *Model) ShiftMonth(n int) {
	target := layout.AddMonths(m.month, n)
	d := m.selected.Day()
	if last := layout.DaysInMonth(target); d > last {
		d = last
	}
	m.month = target
	m.selected = time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, target.Location())
	days := m.Days()
	if last := days[len(days)-1]; m.selected.After(last) {
		m.selected = last
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.Keys.Left):
		m.Select(m.selected.AddDate(0, 0, -1))
	case key.Matches(keyMsg, m.Keys.Right):
		m.Select(m.selected.AddDate(0, 0, 1))
	case key.Matches(keyMsg, m.Keys.Up):
		m.Select(m.selected.AddDate(0, 0, -constants.GridCols))
	case key.Matches(keyMsg, m.Keys.Down):
		m.Select(m.selected.AddDate(0, 0, constants.GridCols))
	case key.Matches(keyMsg, m.Keys.PrevMonth):
		m.ShiftMonth(-1)
	case key.Matches(keyMsg, m.Keys.NextMonth):
		m.ShiftMonth(1)
	case key.Matches(keyMsg, m.Keys.Today):
		m.Select(m.today)
	case key.Matches(keyMsg, m.Keys.Open):
		day := m.selected
		return m, func() tea.Msg { return OpenDayMsg{Day: day} }
	}
	return m, nil
}

func (m Model) cellWidth() int {
	// Two columns of border per cell.
	w := m.width/constants.GridCols - 2
	if w < minCellWidth {
		return minCellWidth
	}
	return w
}

func (m Model) View() string {
	width := m.cellWidth()

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.month.Format("January 2006")))
	if layout.Truncated(m.month) {
		b.WriteString(moreStyle.Render("  (last days continue in the day view)"))
	}
	b.WriteString("\n")

	var names []string
	for _, wd := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		names = append(names, weekdayStyle.Width(width+2).Align(lipgloss.Center).Render(wd))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, names...))
	b.WriteString("\n")

	days := m.Days()
	for row := 0; row < constants.GridRows; row++ {
		var cells []string
		for col := 0; col < constants.GridCols; col++ {
			cells = append(cells, m.renderCell(days[row*constants.GridCols+col], width))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCell(day time.Time, width int) string {
	label := fmt.Sprintf("%2d", day.Day())
	switch {
	case layout.IsSameDay(day, m.today):
		label = todayStyle.Render(label)
	case !layout.InMonth(day, m.month):
		label = outsideStyle.Render(label)
	default:
		label = dayStyle.Render(label)
	}

	lines := []string{label}
	events := m.byDay[day.Format(constants.DateFormat)]
	for i, e := range events {
		if i == maxTitles {
			lines = append(lines, moreStyle.Render(fmt.Sprintf("+%d", len(events)-maxTitles)))
			break
		}
		title := truncate(e.Title, width)
		if m.pending[e.ID] {
			lines = append(lines, pendingStyle.Render(title))
			continue
		}
		lines = append(lines, theme.EventStyle(e.Color).Render(title))
	}
	for len(lines) < cellLines {
		lines = append(lines, "")
	}

	style := cellStyle
	if layout.IsSameDay(day, m.selected) {
		style = selectedCellStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
