package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// palette holds the theme colors
type palette struct {
	critColor     lipgloss.Color // die showed its highest face
	fumbleColor   lipgloss.Color // die showed 1
	dieColor      lipgloss.Color
	plusColor     lipgloss.Color // positive modifier
	minusColor    lipgloss.Color // negative modifier
	totalColor    lipgloss.Color
	headerColor   lipgloss.Color
	borderColor   lipgloss.Color
	mutedColorVal lipgloss.Color
	textColor     lipgloss.Color
	selectedBg    lipgloss.Color
}

// Soft, low-contrast palette inspired by Tokyo Night / Catppuccin
var darkPalette = palette{
	critColor:     lipgloss.Color("#9ece6a"), // Soft sage green
	fumbleColor:   lipgloss.Color("#f7768e"), // Soft coral red
	dieColor:      lipgloss.Color("#a9b1d6"), // Soft lavender gray
	plusColor:     lipgloss.Color("#73daca"), // Soft teal
	minusColor:    lipgloss.Color("#e0af68"), // Warm amber
	totalColor:    lipgloss.Color("#bb9af7"), // Soft lavender
	headerColor:   lipgloss.Color("#7aa2f7"), // Soft periwinkle
	borderColor:   lipgloss.Color("#3b4261"), // Muted slate
	mutedColorVal: lipgloss.Color("#565f89"), // Soft gray-blue
	textColor:     lipgloss.Color("#a9b1d6"),
	selectedBg:    lipgloss.Color("#292e42"), // Deep navy selection
}

var lightPalette = palette{
	critColor:     lipgloss.Color("#40a02b"),
	fumbleColor:   lipgloss.Color("#d20f39"),
	dieColor:      lipgloss.Color("#4c4f69"),
	plusColor:     lipgloss.Color("#179299"),
	minusColor:    lipgloss.Color("#df8e1d"),
	totalColor:    lipgloss.Color("#8839ef"),
	headerColor:   lipgloss.Color("#1e66f5"),
	borderColor:   lipgloss.Color("#9ca0b0"),
	mutedColorVal: lipgloss.Color("#8c8fa1"),
	textColor:     lipgloss.Color("#4c4f69"),
	selectedBg:    lipgloss.Color("#dce0e8"),
}

var current = darkPalette

// Styles
var (
	appStyle           lipgloss.Style
	headerStyle        lipgloss.Style
	dieStyle           lipgloss.Style
	critStyle          lipgloss.Style
	fumbleStyle        lipgloss.Style
	plusStyle          lipgloss.Style
	minusStyle         lipgloss.Style
	totalStyle         lipgloss.Style
	notationStyle      lipgloss.Style
	mutedColor         lipgloss.Style
	helpStyle          lipgloss.Style
	validStyle         lipgloss.Style
	invalidStyle       lipgloss.Style
	searchStyle        lipgloss.Style
	selectedStyle      lipgloss.Style
	sectionBorderStyle lipgloss.Style
	statusBarStyle     lipgloss.Style
)

func init() {
	applyPalette(darkPalette)
}

// SetDarkPalette switches every style to the dark theme
func SetDarkPalette() {
	applyPalette(darkPalette)
}

// SetLightPalette switches every style to the light theme
func SetLightPalette() {
	applyPalette(lightPalette)
}

func applyPalette(p palette) {
	current = p

	// App container
	appStyle = lipgloss.NewStyle().
		Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.headerColor).
		MarginBottom(1)

	dieStyle = lipgloss.NewStyle().
		Foreground(p.dieColor)

	critStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.critColor)

	fumbleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.fumbleColor)

	plusStyle = lipgloss.NewStyle().
		Foreground(p.plusColor)

	minusStyle = lipgloss.NewStyle().
		Foreground(p.minusColor)

	totalStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.totalColor)

	notationStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.headerColor)

	mutedColor = lipgloss.NewStyle().
		Foreground(p.mutedColorVal)

	helpStyle = lipgloss.NewStyle().
		Foreground(p.mutedColorVal).
		MarginTop(1)

	validStyle = lipgloss.NewStyle().
		Foreground(p.critColor)

	invalidStyle = lipgloss.NewStyle().
		Foreground(p.fumbleColor)

	searchStyle = lipgloss.NewStyle().
		Foreground(p.headerColor).
		Bold(true)

	selectedStyle = lipgloss.NewStyle().
		Background(p.selectedBg).
		Foreground(p.textColor).
		Bold(true)

	sectionBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.borderColor).
		Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(p.mutedColorVal).
		Padding(0, 1)
}

// GetDieStyle returns the style for a single die value
func GetDieStyle(value, sides int) lipgloss.Style {
	switch {
	case sides > 1 && value == sides:
		return critStyle
	case sides > 1 && value == 1:
		return fumbleStyle
	default:
		return dieStyle
	}
}

// GetModifierStyle returns the style for a modifier sign and value
func GetModifierStyle(modifier int) lipgloss.Style {
	if modifier < 0 {
		return minusStyle
	}
	return plusStyle
}
