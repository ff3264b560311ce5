package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title          lipgloss.Style
	Tab            lipgloss.Style
	TabActive      lipgloss.Style
	Confirm        lipgloss.Style
	Dim            lipgloss.Style
	Status         lipgloss.Style
	Filter         lipgloss.Style
	Help           lipgloss.Style
	Main           lipgloss.Style
	Scroll         lipgloss.Style
	Highlight      lipgloss.Style
	Cursor         lipgloss.Style
	Disabled       lipgloss.Style
	Header         lipgloss.Style
	ActionBar      lipgloss.Style
	ActionEnabled  lipgloss.Style
	ActionDisabled lipgloss.Style
	Popup          lipgloss.Style
	StatusError    lipgloss.Style
	StatusSuccess  lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245")),
		TabActive: lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("99")),
		Confirm:   lipgloss.NewStyle().Bold(true),
		Dim:       lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Filter: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Help:   lipgloss.NewStyle().Faint(true),
		Main: lipgloss.NewStyle().
			Padding(1, 2),
		Scroll:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		Cursor:    lipgloss.NewStyle().Background(lipgloss.Color("238")),
		Disabled:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Strikethrough(true),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		ActionBar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1),
		ActionEnabled:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		ActionDisabled: lipgloss.NewStyle().Faint(true),
		Popup: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("203")).
			Padding(1, 2),
		StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),  // green
	}
}

// StageColor returns the color used for a pipeline stage
func StageColor(stage string) string {
	switch stage {
	case "funded", "approved", "cleared-to-close":
		return "78" // green
	case "application", "processing":
		return "33" // blue
	case "lost":
		return "203" // red
	default:
		return "214" // yellow
	}
}
