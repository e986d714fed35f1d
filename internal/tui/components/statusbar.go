package components

import (
	"strings"

	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Status is what the bottom bar reports about the loaded dataset.
type Status struct {
	Source     string // workbook or directory name
	Records    string // already formatted count
	LoadTime   string
	Reloading  bool
	Filtered   bool
	Message    string // transient, replaces the key hints when set
	MessageErr bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s Status) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	infoStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	left := hintStyle.Render(" [/]buscar  [?]ajuda  [q]sair")
	if s.Message != "" {
		style := accentStyle
		if s.MessageErr {
			style = lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
		}
		left = style.Render(" " + s.Message)
	}

	right := ""
	if s.Reloading {
		right += accentStyle.Render("recarregando ") + infoStyle.Render("│ ")
	}
	if s.Filtered {
		right += accentStyle.Render("filtrado ") + infoStyle.Render("│ ")
	}
	if s.Source != "" {
		right += infoStyle.Render(s.Source + " · " + s.Records + " registros")
	}
	if s.LoadTime != "" {
		right += hintStyle.Render(" · " + s.LoadTime)
	}
	right += barStyle.Render(" ")

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + barStyle.Render(strings.Repeat(" ", gap)) + right
}
