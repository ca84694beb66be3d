// Package layout computes the month grid and the day timeline geometry.
package layout

import (
	"time"

	"github.com/julianstephens/calgrid/internal/constants"
)

// GenerateGridDays returns the 35 dates shown for ref's month, at midnight in ref's
// location. The grid starts on the Sunday on or before the 1st, so the leading cells
// hold the tail of the previous month and the trailing cells the start of the next.
// Months that need a sixth row are cut off after 35 cells.
func GenerateGridDays(ref time.Time) []time.Time {
	first := MonthOf(ref)
	lead := int(first.Weekday())
	start := first.AddDate(0, 0, -lead)

	days := make([]time.Time, constants.GridCells)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthOf returns midnight on the first day of t's month.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AddMonths shifts t's month by n and returns the first day of the result.
func AddMonths(t time.Time, n int) time.Time {
	return MonthOf(t).AddDate(0, n, 0)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return MonthOf(t).AddDate(0, 1, -1).Day()
}

// StartOfDay returns midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsSameDay reports whether a and b fall on the same calendar date.
func IsSameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// InMonth reports whether day belongs to ref's month.
func InMonth(day, ref time.Time) bool {
	return day.Year() == ref.Year() && day.Month() == ref.Month()
}

// Truncated reports whether ref's month has days that fall outside its grid.
func Truncated(ref time.Time) bool {
	return int(MonthOf(ref).Weekday())+DaysInMonth(ref) > constants.GridCells
}
