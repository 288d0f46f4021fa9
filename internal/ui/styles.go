package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorCyan     = "45"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Stage    lipgloss.Style
	Active   lipgloss.Style
	Progress lipgloss.Style
	Label    lipgloss.Style

	// GlobalScope and LocalScope color the scope badge.
	GlobalScope lipgloss.Style
	LocalScope  lipgloss.Style
}

// DefaultStyles returns styled components for color terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Stage:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),

		GlobalScope: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		LocalScope:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:      lipgloss.NewStyle(),
		Success:     lipgloss.NewStyle(),
		Warning:     lipgloss.NewStyle(),
		Error:       lipgloss.NewStyle(),
		Dim:         lipgloss.NewStyle(),
		Stage:       lipgloss.NewStyle(),
		Active:      lipgloss.NewStyle(),
		Progress:    lipgloss.NewStyle(),
		Label:       lipgloss.NewStyle(),
		GlobalScope: lipgloss.NewStyle(),
		LocalScope:  lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
