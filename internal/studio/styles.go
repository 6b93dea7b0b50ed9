package studio

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	// StatusBarHeight is the rows reserved for the status bar.
	StatusBarHeight = 1

	// SidebarMinWidth is the detail sidebar's expanded width.
	SidebarMinWidth = 38
)

var (
	colorAccent = lipgloss.Color("39")
	colorDim    = lipgloss.Color("241")
	colorErr    = lipgloss.Color("196")
	colorOK     = lipgloss.Color("42")
	colorWarn   = lipgloss.Color("220")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().Foreground(colorDim)
	errStyle = lipgloss.NewStyle().Foreground(colorErr)
	okStyle  = lipgloss.NewStyle().Foreground(colorOK)

	warnStyle = lipgloss.NewStyle().Foreground(colorWarn)

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("25"))

	zebraRowStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252"))

	fieldLabelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(lipgloss.Color("250"))

	focusedFieldStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent)

	paneBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// truncate shortens s to fit in width terminal cells, appending an
// ellipsis when it was cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// padRight pads s with spaces to exactly width cells, truncating first
// when needed.
func padRight(s string, width int) string {
	s = truncate(s, width)
	return s + spaces(width-runewidth.StringWidth(s))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
