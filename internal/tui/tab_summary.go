package tui

import (
	"sort"
	"strconv"
	"strings"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/tui/components"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// maxPivotYears caps the pivot to the most recent years that fit.
const maxPivotYears = 8

func (a App) renderSummaryTab(cw int) string {
	t := theme.Active

	if a.stats.TotalRegistrations == 0 {
		body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(model.NoDataMessage)
		return components.ContentCard("Resumo Geral", body, cw, false)
	}

	invalid := ""
	if a.stats.InvalidDates > 0 {
		invalid = cli.FormatNumber(a.stats.InvalidDates) + " data(s) inválida(s)"
	}
	metrics := components.MetricCardRow([]components.Metric{
		{Label: "Total de registros", Value: cli.FormatNumber(a.stats.TotalRegistrations)},
		{Label: "Clientes únicos", Value: cli.FormatNumber(a.stats.UniqueClients)},
		{Label: "Período", Value: a.stats.Period(), Note: invalid},
	}, cw)

	var b strings.Builder
	b.WriteString(metrics)
	b.WriteString("\n")

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Registros por ano", a.yearChart(components.CardInnerWidth(cw)), cw, false))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Participação por marca", a.brandShares(components.CardInnerWidth(cw)), cw, false))
	} else {
		widths := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Registros por ano", a.yearChart(components.CardInnerWidth(widths[0])), widths[0], false),
			components.ContentCard("Participação por marca", a.brandShares(components.CardInnerWidth(widths[1])), widths[1], false),
		}))
	}

	if !a.pivot.Empty() {
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Marca x Ano", renderPivot(a.pivot, components.CardInnerWidth(cw)), cw, false))
	}
	return b.String()
}

func (a App) yearChart(w int) string {
	if len(a.years) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Active.TextDim).Background(theme.Active.Surface).
			Render("Nenhuma data válida")
	}
	values := make([]int, len(a.years))
	labels := make([]string, len(a.years))
	for i, y := range a.years {
		values[i] = y.Count
		labels[i] = strconv.Itoa(y.Year)
	}
	return components.BarChart(values, labels, theme.Active.Accent, w, 8)
}

// brandShares lists brands by total registrations, largest first.
func (a App) brandShares(w int) string {
	rows := append([]model.BrandYearRow(nil), a.pivot.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })

	total := 0
	for _, r := range rows {
		total += r.Total
	}
	if total == 0 {
		return lipgloss.NewStyle().Foreground(theme.Active.TextDim).Background(theme.Active.Surface).
			Render("Nenhuma marca registrada")
	}

	const maxRows = 10
	labelW := 14
	barW := max(w-labelW-18, 6)

	lines := make([]string, 0, maxRows)
	for i, r := range rows {
		if i == maxRows {
			break
		}
		lines = append(lines, components.ShareBar(r.Brand, cli.FormatNumber(r.Total),
			float64(r.Total)/float64(total), labelW, barW))
	}
	return strings.Join(lines, "\n")
}

// renderPivot draws the brand x year table, keeping the most recent years
// that fit in w.
func renderPivot(p model.BrandYearTable, w int) string {
	t := theme.Active
	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	totalStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)

	brandW := 6
	for _, r := range p.Rows {
		brandW = max(brandW, lipgloss.Width(r.Brand))
	}
	brandW = min(brandW, 20)
	const cellW = 7

	fit := max((w-brandW-cellW)/cellW, 1)
	first := max(len(p.Years)-min(fit, maxPivotYears), 0)

	var b strings.Builder
	b.WriteString(headStyle.Width(brandW).Render("Marca"))
	for _, y := range p.Years[first:] {
		b.WriteString(headStyle.Width(cellW).Align(lipgloss.Right).Render(strconv.Itoa(y)))
	}
	b.WriteString(headStyle.Width(cellW).Align(lipgloss.Right).Render("Total"))

	for _, r := range p.Rows {
		b.WriteString("\n")
		b.WriteString(cellStyle.Width(brandW).Render(cli.Truncate(r.Brand, brandW)))
		for _, c := range r.Counts[first:] {
			b.WriteString(cellStyle.Width(cellW).Align(lipgloss.Right).Render(cli.FormatNumber(c)))
		}
		b.WriteString(totalStyle.Width(cellW).Align(lipgloss.Right).Render(cli.FormatNumber(r.Total)))
	}
	return b.String()
}
