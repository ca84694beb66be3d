package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/tui/theme"
)

const (
	hours      = 24
	gutter     = 7 // "HH:00 │"
	minLane    = 6
	rowMinutes = 60
)

var (
	hourStyle = lipgloss.NewStyle().
			Foreground(theme.Muted)

	ruleStyle = lipgloss.NewStyle().
			Foreground(theme.Faint)
)

// Model renders one day as hour rows. Overlapping events sit side by side in the
// lanes assigned by layout.LayoutDay.
type Model struct {
	viewport viewport.Model
	day      time.Time
	blocks   []layout.Block
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetDay lays out the events starting on day and scrolls to the first of them.
func (m *Model) SetDay(day time.Time, events []models.Event) {
	changed := !layout.IsSameDay(day, m.day)
	m.day = layout.StartOfDay(day)
	m.blocks = layout.LayoutDay(events, day)
	m.Render()
	if changed && len(m.blocks) > 0 {
		m.viewport.SetYOffset(m.blocks[0].TopMinutes / rowMinutes)
	}
}

// Blocks returns the current layout.
func (m Model) Blocks() []layout.Block {
	return m.blocks
}

func (m *Model) Render() {
	m.viewport.SetContent(m.content())
}

func (m Model) content() string {
	var b strings.Builder
	for h := 0; h < hours; h++ {
		b.WriteString(hourStyle.Render(fmt.Sprintf("%02d:00 ", h)))
		b.WriteString(ruleStyle.Render("│"))
		b.WriteString(m.row(h*rowMinutes, (h+1)*rowMinutes))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// row renders the blocks intersecting [from, to). A block shows its title on the
// row where it starts and a bar on the rows it continues through.
func (m Model) row(from, to int) string {
	var active []layout.Block
	lanes := 1
	for _, blk := range m.blocks {
		if blk.TopMinutes < to && blk.TopMinutes+blk.HeightMinutes > from {
			active = append(active, blk)
			if blk.GroupSize > lanes {
				lanes = blk.GroupSize
			}
		}
	}
	if len(active) == 0 {
		return ""
	}

	laneWidth := (m.width - gutter) / lanes
	if laneWidth < minLane {
		laneWidth = minLane
	}

	cells := make([]string, lanes)
	for i := range cells {
		cells[i] = strings.Repeat(" ", laneWidth)
	}
	for _, blk := range active {
		text := "┃"
		if blk.TopMinutes >= from {
			text = fmt.Sprintf("┃%s %s", blk.Event.Start.Format("15:04"), blk.Event.Title)
		}
		cells[blk.Column] = theme.EventStyle(blk.Event.Color).
			Width(laneWidth).
			MaxWidth(laneWidth).
			Render(text)
	}
	return strings.Join(cells, "")
}
