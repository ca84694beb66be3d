package constants

// SessionState represents the current state of the TUI application
type SessionState int

const (
	GridView SessionState = iota
	DayView
	EditingView
	ConfirmDeleteView
)

// Event colors accepted by the form. The empty value renders with the default color.
const (
	ColorDefault = ""
	ColorRed     = "red"
	ColorGreen   = "green"
	ColorYellow  = "yellow"
	ColorPurple  = "purple"
	ColorPink    = "pink"
	ColorIndigo  = "indigo"
)

// EventColors lists every accepted color in display order.
var EventColors = []string{
	ColorDefault,
	ColorRed,
	ColorGreen,
	ColorYellow,
	ColorPurple,
	ColorPink,
	ColorIndigo,
}
