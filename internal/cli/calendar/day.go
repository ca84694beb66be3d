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

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Day to show (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	day, err := parseDay(c.Date)
	if err != nil {
		return err
	}
	list, err := ctx.Store.GetEventsInRange(day, day.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	ctx.Print(RenderDay(day, list))
	return nil
}

// RenderDay lists the day's events by overlap group. Events sharing a group are
// shown with their lane, e.g. "lane 2/3".
func RenderDay(day time.Time, list []models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", day.Format("Monday, January 2, 2006"))

	blocks := layout.LayoutDay(list, day)
	if len(blocks) == 0 {
		b.WriteString("No events.\n")
		return b.String()
	}

	group := -1
	for _, blk := range blocks {
		if blk.Group != group {
			if group >= 0 {
				b.WriteString("\n")
			}
			group = blk.Group
		}
		e := blk.Event
		fmt.Fprintf(&b, "  %s-%s  %s", e.Start.Format(constants.TimeFormat), e.End.Format(constants.TimeFormat), e.Title)
		if e.Color != "" {
			fmt.Fprintf(&b, " [%s]", e.Color)
		}
		if blk.GroupSize > 1 {
			fmt.Fprintf(&b, "  (lane %d/%d)", blk.Column+1, blk.GroupSize)
		}
		b.WriteString("\n")
	}
	return b.String()
}
