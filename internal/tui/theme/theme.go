// Package theme defines the color themes of the emplac dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name         string
	Label        string         // shown in the setup form
	Background   lipgloss.Color // Main app background
	Surface      lipgloss.Color // Card/panel backgrounds
	SurfaceHover lipgloss.Color // Selected row, active tab
	Border       lipgloss.Color
	BorderAccent lipgloss.Color // Focused card, search box
	TextDim      lipgloss.Color // Hints, disabled
	TextMuted    lipgloss.Color // Labels, metadata
	TextPrimary  lipgloss.Color
	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	Green        lipgloss.Color
	Orange       lipgloss.Color
	Red          lipgloss.Color
	Yellow       lipgloss.Color
	Blue         lipgloss.Color
}

// Denigris is the default theme, built on the dealership's blue.
var Denigris = Theme{
	Name:         "denigris",
	Label:        "De Nigris (escuro)",
	Background:   lipgloss.Color("#0B1420"),
	Surface:      lipgloss.Color("#13202F"),
	SurfaceHover: lipgloss.Color("#1D3047"),
	Border:       lipgloss.Color("#2A4160"),
	BorderAccent: lipgloss.Color("#0055A4"),
	TextDim:      lipgloss.Color("#4F6582"),
	TextMuted:    lipgloss.Color("#8DA2BD"),
	TextPrimary:  lipgloss.Color("#EEF3F9"),
	Accent:       lipgloss.Color("#2F7FD0"),
	AccentBright: lipgloss.Color("#6AAEF2"),
	Green:        lipgloss.Color("#5FB16F"),
	Orange:       lipgloss.Color("#E48A3C"),
	Red:          lipgloss.Color("#E05A4F"),
	Yellow:       lipgloss.Color("#E3B341"),
	Blue:         lipgloss.Color("#003366"),
}

// Claro mirrors the white pages of the web dashboard.
var Claro = Theme{
	Name:         "claro",
	Label:        "Claro",
	Background:   lipgloss.Color("#F4F6F9"),
	Surface:      lipgloss.Color("#FFFFFF"),
	SurfaceHover: lipgloss.Color("#E3ECF7"),
	Border:       lipgloss.Color("#C9D3E0"),
	BorderAccent: lipgloss.Color("#0055A4"),
	TextDim:      lipgloss.Color("#9AA6B5"),
	TextMuted:    lipgloss.Color("#5B6778"),
	TextPrimary:  lipgloss.Color("#1A2330"),
	Accent:       lipgloss.Color("#0055A4"),
	AccentBright: lipgloss.Color("#003366"),
	Green:        lipgloss.Color("#2E7D32"),
	Orange:       lipgloss.Color("#C25E00"),
	Red:          lipgloss.Color("#C62828"),
	Yellow:       lipgloss.Color("#9A7B00"),
	Blue:         lipgloss.Color("#003366"),
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:         "terminal",
	Label:        "Terminal (ANSI 16)",
	Background:   lipgloss.Color("0"),
	Surface:      lipgloss.Color("0"),
	SurfaceHover: lipgloss.Color("8"),
	Border:       lipgloss.Color("8"),
	BorderAccent: lipgloss.Color("4"),
	TextDim:      lipgloss.Color("8"),
	TextMuted:    lipgloss.Color("7"),
	TextPrimary:  lipgloss.Color("15"),
	Accent:       lipgloss.Color("4"),
	AccentBright: lipgloss.Color("12"),
	Green:        lipgloss.Color("2"),
	Orange:       lipgloss.Color("3"),
	Red:          lipgloss.Color("1"),
	Yellow:       lipgloss.Color("11"),
	Blue:         lipgloss.Color("4"),
}

// Active is the currently selected theme.
var Active = Denigris

// All available themes.
var All = []Theme{Denigris, Claro, Terminal}

// ByName returns a theme by its name, defaulting to Denigris.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return Denigris
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
