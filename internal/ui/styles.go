package ui

import "github.com/charmbracelet/lipgloss"

// Color palette: one lime accent over grays.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Source    lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Dim       lipgloss.Style
	Prompt    lipgloss.Style
	Border    lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Source:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns unstyled components.
func NoColorStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle(),
		User:      lipgloss.NewStyle(),
		Assistant: lipgloss.NewStyle(),
		Source:    lipgloss.NewStyle(),
		Warning:   lipgloss.NewStyle(),
		Error:     lipgloss.NewStyle(),
		Dim:       lipgloss.NewStyle(),
		Prompt:    lipgloss.NewStyle(),
		Border:    lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
