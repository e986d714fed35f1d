package tui

import (
	"slices"
	"strings"

	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/tui/components"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// filtersState tracks the cursor over brands followed by segments.
type filtersState struct {
	cursor int
}

func (f *filtersState) clamp(n int) {
	f.cursor = min(f.cursor, max(n-1, 0))
}

// filterItem resolves the cursor to a brand or segment value.
func (a App) filterItem(i int) (value string, brand bool) {
	if i < len(a.brands) {
		return a.brands[i], true
	}
	return a.segments[i-len(a.brands)], false
}

// toggle adds or removes value from the selection, ignoring case like the
// filter itself does.
func toggle(selected []string, value string) []string {
	for i, s := range selected {
		if strings.EqualFold(strings.TrimSpace(s), value) {
			return slices.Delete(slices.Clone(selected), i, i+1)
		}
	}
	return append(slices.Clone(selected), value)
}

func isSelected(selected []string, value string) bool {
	for _, s := range selected {
		if strings.EqualFold(strings.TrimSpace(s), value) {
			return true
		}
	}
	return false
}

// updateFilterKeys handles Filtros tab keys. ok is false when the key is
// not a filter binding.
func (a App) updateFilterKeys(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	n := len(a.brands) + len(a.segments)

	switch key {
	case "j", "down":
		if a.filters.cursor < n-1 {
			a.filters.cursor++
		}
	case "k", "up":
		if a.filters.cursor > 0 {
			a.filters.cursor--
		}
	case " ", "enter":
		if n == 0 {
			return a, nil, true
		}
		value, brand := a.filterItem(a.filters.cursor)
		if brand {
			a.filter.Brands = toggle(a.filter.Brands, value)
		} else {
			a.filter.Segments = toggle(a.filter.Segments, value)
		}
		a.recompute()
	case "c":
		a.filter.Brands, a.filter.Segments = nil, nil
		a.recompute()
	case "s":
		cfg := loadConfigOrDefault()
		cfg.Filters.Brands = a.filter.Brands
		cfg.Filters.Segments = a.filter.Segments
		if err := config.Save(cfg); err != nil {
			a.flash, a.flashErr = "Falha ao salvar filtros: "+err.Error(), true
		} else {
			a.flash, a.flashErr = "Filtros salvos como padrão.", false
		}
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a App) renderFiltersTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	list := func(values, selected []string, offset, w int) string {
		if len(values) == 0 {
			return mutedStyle.Render("Nenhum valor na planilha")
		}
		itemStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
		onStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
		cursorStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)

		lines := make([]string, len(values))
		for i, v := range values {
			box := "[ ] "
			style := itemStyle
			if isSelected(selected, v) {
				box = "[x] "
				style = onStyle
			}
			if offset+i == a.filters.cursor {
				style = cursorStyle
			}
			lines[i] = style.Width(w).Render(box + v)
		}
		return strings.Join(lines, "\n")
	}

	summary := mutedStyle.Render("Sem filtros: todos os registros entram nos relatórios.")
	if !a.filter.Empty() {
		summary = mutedStyle.Render("Ativos: ") +
			lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).
				Render(strings.Join(append(slices.Clone(a.filter.Brands), a.filter.Segments...), ", "))
	}
	header := components.ContentCard("Filtros",
		summary+"\n"+hintStyle.Render("Espaço marca · c limpa · s salva como padrão"), cw, false)

	widths := components.LayoutRow(cw, 2)
	brandFocused := a.filters.cursor < len(a.brands)
	return header + "\n" + components.CardRow([]string{
		components.ContentCard("Marcas", list(a.brands, a.filter.Brands, 0, components.CardInnerWidth(widths[0])), widths[0], brandFocused),
		components.ContentCard("Segmentos", list(a.segments, a.filter.Segments, len(a.brands), components.CardInnerWidth(widths[1])), widths[1], !brandFocused),
	})
}
