package calendar

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/ical"
	"github.com/julianstephens/calgrid/internal/models"
)

type ImportCmd struct {
	File    string `arg:"" type:"existingfile" help:"iCalendar (.ics) file to import."`
	Replace bool   `help:"Replace every stored event instead of merging by UID."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := ical.Import(f)
	if err != nil {
		return err
	}

	cal, err := ctx.OpenCalendar()
	if err != nil {
		return err
	}

	for i := range result.Events {
		if result.Events[i].ID == "" {
			result.Events[i].ID = uuid.New().String()
		}
	}

	incoming := result.Events
	added, updated := len(incoming), 0
	if !c.Replace {
		incoming, added, updated = merge(cal.Session.Events(), result.Events)
	}

	// The session rejects duplicate ids before anything is written.
	if err := cal.Session.ReplaceAll(incoming); err != nil {
		return fmt.Errorf("import rejected: %w", err)
	}
	if err := ctx.Store.ReplaceAllEvents(cal.Session.Events()); err != nil {
		return fmt.Errorf("failed to save imported events: %w", err)
	}

	if c.Replace {
		ctx.Printf("✓ Replaced calendar with %d event(s)\n", added)
	} else {
		ctx.Printf("✓ Imported %d new and %d updated event(s)\n", added, updated)
	}
	if len(result.Skipped) > 0 {
		ctx.Printf("  Skipped %d calendar entries: %v\n", len(result.Skipped), result.Skipped)
	}
	return nil
}

// merge overlays incoming on existing by id.
func merge(existing, incoming []models.Event) (merged []models.Event, added, updated int) {
	index := make(map[string]int, len(existing))
	merged = append(merged, existing...)
	for i, e := range merged {
		index[e.ID] = i
	}
	for _, e := range incoming {
		if i, ok := index[e.ID]; ok {
			merged[i] = e
			updated++
			continue
		}
		index[e.ID] = len(merged)
		merged = append(merged, e)
		added++
	}
	return merged, added, updated
}

type ExportCmd struct {
	File string `arg:"" optional:"" help:"Destination .ics file; defaults to stdout."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	list, err := ctx.Store.GetAllEvents()
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	if c.File == "" || c.File == "-" {
		return ical.Export(list, ctx.Writer())
	}

	f, err := os.OpenFile(c.File, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := ical.Export(list, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ctx.Printf("✓ Exported %d event(s) to %s\n", len(list), c.File)
	return nil
}
