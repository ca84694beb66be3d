package tui

import (
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/calgrid/internal/constants"
	"github.com/julianstephens/calgrid/internal/validation"
)

// NewEventForm builds the add/edit form over fm. Each field runs the same checks
// as validation.EventInput.Validate.
func NewEventForm(title string, fm *validation.EventInput) *huh.Form {
	colors := make([]huh.Option[string], 0, len(constants.EventColors))
	for _, c := range constants.EventColors {
		label := c
		if c == constants.ColorDefault {
			label = "default"
		}
		colors = append(colors, huh.NewOption(label, c))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&fm.Title).
				Validate(validation.ValidateTitle),
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&fm.Date).
				Validate(validation.ValidateDate),
			huh.NewInput().
				Title("Start (HH:MM)").
				Value(&fm.StartTime).
				Validate(func(s string) error {
					return validation.ValidateClock(s, validation.ErrStartRequired)
				}),
			huh.NewInput().
				Title("End (HH:MM)").
				Value(&fm.EndTime).
				Validate(func(s string) error {
					if err := validation.ValidateClock(s, validation.ErrEndRequired); err != nil {
						return err
					}
					// Cross-field check once both times parse.
					probe := *fm
					probe.EndTime = s
					return probe.Validate()["end"]
				}),
			huh.NewSelect[string]().
				Title("Color").
				Options(colors...).
				Value(&fm.Color),
		).Title(title),
	).WithTheme(huh.ThemeDracula())
}
