package calendar

import (
	"fmt"

	"github.com/julianstephens/calgrid/internal/cli"
	"github.com/julianstephens/calgrid/internal/validation"
)

type ValidateCmd struct {
	Strict bool `help:"Treat overlapping events as errors."`
}

func (cmd *ValidateCmd) Run(ctx *cli.Context) error {
	list, err := ctx.Store.GetAllEvents()
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	ctx.Printf("Validating %d event(s)...\n\n", len(list))
	result := validation.ValidateEvents(list)
	ctx.Println(result.FormatReport())

	for _, c := range result.Conflicts {
		if cmd.Strict || c.Type != validation.ConflictOverlappingEvents {
			return fmt.Errorf("validation found %d conflict(s)", len(result.Conflicts))
		}
	}
	return nil
}
