package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/layout"
	"github.com/julianstephens/calgrid/internal/models"
)

const cellWidth = 9

type GridCmd struct {
	Month string `arg:"" optional:"" help:"Month to show (YYYY-MM); defaults to the current month."`
}

func (c *GridCmd) Run(ctx *cli.Context) error {
	ref := now()
	if c.Month != "" {
		m, err := time.ParseInLocation(constants.MonthFormat, c.Month, time.Local)
		if err != nil {
			return fmt.Errorf("invalid month %q (expected YYYY-MM)", c.Month)
		}
		ref = m
	}

	days := layout.GenerateGridDays(ref)
	list, err := ctx.Store.GetEventsInRange(days[0], days[len(days)-1].AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	ctx.Print(RenderGrid(ref, now(), list))
	return nil
}

// RenderGrid draws the 5x7 grid for ref's month as text. Each cell shows the day
// number, "*" for today and the number of events in parentheses; days of other
// months are shown in brackets.
func RenderGrid(ref, today time.Time, list []models.Event) string {
	byDay := layout.EventsByDay(list)
	days := layout.GenerateGridDays(ref)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", ref.Format("January 2006"))
	for _, wd := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		fmt.Fprintf(&b, "%-*s", cellWidth, wd)
	}
	b.WriteString("\n")

	for i, day := range days {
		label := fmt.Sprintf("%2d", day.Day())
		if !layout.InMonth(day, ref) {
			label = "[" + strings.TrimSpace(label) + "]"
		}
		if layout.IsSameDay(day, today) {
			label += "*"
		}
		if n := len(byDay[day.Format(constants.DateFormat)]); n > 0 {
			label += fmt.Sprintf("(%d)", n)
		}
		fmt.Fprintf(&b, "%-*s", cellWidth, label)
		if (i+1)%constants.GridCols == 0 {
			b.WriteString("\n")
		}
	}

	if layout.Truncated(ref) {
		last := days[len(days)-1]
		fmt.Fprintf(&b, "\n(days after %s do not fit the grid; use 'calgrid day')\n", last.Format("Jan 2"))
	}
	return b.String()
}
