package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/events"
	"github.com/julianstephens/calgrid/internal/models"
	"github.com/julianstephens/calgrid/internal/validation"
)

// now is swapped in tests.
var now = time.Now

// parseDay accepts YYYY-MM-DD, "today" or empty (today).
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "today" {
		n := now()
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.Local), nil
	}
	d, err := time.ParseInLocation(constants.DateFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or 'today')", s)
	}
	return d, nil
}

func describe(e models.Event) string {
	s := fmt.Sprintf("%s %s-%s  %s", e.Start.Format(constants.DateFormat),
		e.Start.Format(constants.TimeFormat), e.End.Format(constants.TimeFormat), e.Title)
	if e.Color != "" {
		s += fmt.Sprintf(" [%s]", e.Color)
	}
	return s
}

type EventAddCmd struct {
	Title string `help:"Event title." required:""`
	Date  string `help:"Event date (YYYY-MM-DD or 'today')." default:"today"`
	Start string `help:"Start time (HH:MM)." required:""`
	End   string `help:"End time (HH:MM)." required:""`
	Color string `help:"Event color: red, green, yellow, purple, pink or indigo." default:""`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	day, err := parseDay(c.Date)
	if err != nil {
		return err
	}
	input := validation.EventInput{
		Title:     c.Title,
		Date:      day.Format(constants.DateFormat),
		StartTime: c.Start,
		EndTime:   c.End,
		Color:     c.Color,
	}
	e, err := input.ToEvent(time.Local)
	if err != nil {
		return err
	}

	cal, err := ctx.OpenCalendar()
	if err != nil {
		return err
	}
	before := make(map[string]bool)
	for _, existing := range cal.Session.Events() {
		before[existing.ID] = true
	}

	if err := cal.Apply(events.KindAdd, func() bool {
		return cal.Session.Add(context.Background(), e)
	}); err != nil {
		return err
	}

	for _, added := range cal.Session.Events() {
		if !before[added.ID] {
			ctx.Printf("✓ Added %s  (%s)\n", describe(added), added.ID)
			return nil
		}
	}
	ctx.Println("✓ Event added")
	return nil
}

type EventEditCmd struct {
	ID    string  `arg:"" help:"ID of the event to edit."`
	Title *string `help:"New title."`
	Date  *string `help:"New date (YYYY-MM-DD or 'today')."`
	Start *string `help:"New start time (HH:MM)."`
	End   *string `help:"New end time (HH:MM)."`
	Color *string `help:"New color; pass an empty value to clear it."`
}

func (c *EventEditCmd) Run(ctx *cli.Context) error {
	cal, err := ctx.OpenCalendar()
	if err != nil {
		return err
	}
	current, ok := cal.Session.GetByID(c.ID)
	if !ok {
		return fmt.Errorf("event not found: %s", c.ID)
	}

	input := validation.InputFromEvent(current)
	if c.Title != nil {
		input.Title = *c.Title
	}
	if c.Date != nil {
		day, err := parseDay(*c.Date)
		if err != nil {
			return err
		}
		input.Date = day.Format(constants.DateFormat)
	}
	if c.Start != nil {
		input.StartTime = *c.Start
	}
	if c.End != nil {
		input.EndTime = *c.End
	}
	if c.Color != nil {
		input.Color = *c.Color
	}

	patch, err := input.ToPatch(time.Local)
	if err != nil {
		return err
	}
	if err := cal.Apply(events.KindUpdate, func() bool {
		return cal.Session.Update(context.Background(), c.ID, patch)
	}); err != nil {
		return err
	}

	updated, _ := cal.Session.GetByID(c.ID)
	ctx.Printf("✓ Updated %s\n", describe(updated))
	return nil
}

type EventDeleteCmd struct {
	ID  string `arg:"" help:"ID of the event to delete."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *EventDeleteCmd) Run(ctx *cli.Context) error {
	cal, err := ctx.OpenCalendar()
	if err != nil {
		return err
	}
	target, ok := cal.Session.GetByID(c.ID)
	if !ok {
		return fmt.Errorf("event not found: %s", c.ID)
	}

	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete %q?", target.Title))
		if err != nil {
			return err
		}
		if !ok {
			ctx.Println("Delete cancelled.")
			return nil
		}
	}

	if err := cal.Apply(events.KindDelete, func() bool {
		return cal.Session.Delete(context.Background(), c.ID)
	}); err != nil {
		return err
	}
	ctx.Printf("✓ Deleted %s\n", describe(target))
	ctx.Printf("  Undo with: calgrid event restore %s\n", c.ID)
	return nil
}

type EventRestoreCmd struct {
	ID string `arg:"" help:"ID of the deleted event to restore."`
}

func (c *EventRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.RestoreEvent(c.ID); err != nil {
		return fmt.Errorf("failed to restore event: %w", err)
	}
	e, err := ctx.Store.GetEvent(c.ID)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Restored %s\n", describe(e))
	return nil
}

type EventListCmd struct {
	From string `help:"First day to include (YYYY-MM-DD)."`
	To   string `help:"Last day to include (YYYY-MM-DD)."`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	var list []models.Event
	var err error
	if c.From == "" && c.To == "" {
		list, err = ctx.Store.GetAllEvents()
	} else {
		from := time.Time{}
		to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.Local)
		if c.From != "" {
			if from, err = parseDay(c.From); err != nil {
				return err
			}
		}
		if c.To != "" {
			if to, err = parseDay(c.To); err != nil {
				return err
			}
		}
		if to.Before(from) {
			return fmt.Errorf("--to must not be before --from")
		}
		list, err = ctx.Store.GetEventsInRange(from, to.AddDate(0, 0, 1))
	}
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(list) == 0 {
		ctx.Println("No events found.")
		return nil
	}
	for _, e := range list {
		ctx.Printf("  %s  %s\n", e.ID, describe(e))
	}
	ctx.Printf("\n%d event(s)\n", len(list))
	return nil
}

// EventCmd groups the event subcommands.
type EventCmd struct {
	Add     EventAddCmd     `cmd:"" help:"Add an event."`
	Edit    EventEditCmd    `cmd:"" help:"Edit an event."`
	Delete  EventDeleteCmd  `cmd:"" help:"Delete an event."`
	Restore EventRestoreCmd `cmd:"" help:"Restore a deleted event."`
	List    EventListCmd    `cmd:"" help:"List events." default:"1"`
}
