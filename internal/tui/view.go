package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.GridView:
		content = m.grid.View()
	case constants.DayView:
		content = m.viewDay()
	case constants.EditingView:
		content = m.viewForm()
	case constants.ConfirmDeleteView:
		content = m.viewConfirmDelete()
	}

	parts := []string{m.viewHeader(), docStyle.Render(content)}
	if status := m.viewStatus(); status != "" {
		parts = append(parts, status)
	}
	parts = append(parts, m.help.View(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewHeader() string {
	modes := fmt.Sprintf("add:%s update:%s delete:%s",
		m.session.Mode(events.KindAdd), m.session.Mode(events.KindUpdate), m.session.Mode(events.KindDelete))
	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(constants.AppName),
		modeStyle.Render(modes),
	)
}

func (m Model) viewDay() string {
	title := dayTitleStyle.Render(m.day.Format("Monday, January 2, 2006"))
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(m.timeline.View()),
		paneStyle.Render(m.eventList.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, panes)
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	view := m.form.View()
	if m.formError != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, dangerStyle.Render(m.formError))
	}
	return view
}

func (m Model) viewConfirmDelete() string {
	prompt := "Delete this event?"
	if e, ok := m.eventByID(m.deleteID); ok {
		prompt = fmt.Sprintf("Delete %q?", e.Title)
	}
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(prompt),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

// viewStatus shows the in-flight spinner and the error banner.
func (m Model) viewStatus() string {
	status := m.session.Status()

	var lines []string
	if status.AnyInFlight() {
		label := "saving…"
		if status.Deleting != "" && !status.Adding && status.Updating == "" {
			label = "deleting…"
		}
		lines = append(lines, m.spinner.View()+statusStyle.Render(" "+label))
	}
	if msg := status.LastError(); msg != "" {
		lines = append(lines, errorStyle.Render("✗ "+msg)+statusStyle.Render("  [x] dismiss"))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
