package cli

import (
	"fmt"
	"strings"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3D8FD6")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	barStyle = lipgloss.NewStyle().
			Foreground(ColorAccent)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
	// LeftCols is how many leading columns are left-aligned; the rest are
	// right-aligned. Zero means one.
	LeftCols int
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// pad fills s with spaces to w display cells.
func pad(s string, w int, right bool) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

func rule(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render(left))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < len(widths)-1 {
			b.WriteString(dimStyle.Render(mid))
		}
	}
	b.WriteString(dimStyle.Render(right))
	b.WriteString("\n")
	return b.String()
}

// RenderTable renders a bordered table with headers and rows.
// A row holding the single cell "---" renders as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	leftCols := t.LeftCols
	if leftCols == 0 {
		leftCols = 1
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			widths[i] = max(widths[i], lipgloss.Width(h))
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols {
					widths[i] = max(widths[i], lipgloss.Width(cell))
				}
			}
		}
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(" " + pad(h, widths[i], false) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(" " + pad(cell, widths[i], i >= leftCols) + " "))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	top := values[0]
	for _, v := range values[1:] {
		if v > top {
			top = v
		}
	}
	if top == 0 {
		top = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / top * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders one labeled bar chart entry with its count.
func RenderHorizontalBar(label string, value, maxValue, maxWidth int) string {
	barLen := 0
	if maxValue > 0 {
		barLen = value * maxWidth / maxValue
	}
	if value > 0 && barLen == 0 {
		barLen = 1
	}
	return fmt.Sprintf("  %s %s %s",
		mutedStyle.Render(label),
		barStyle.Render(strings.Repeat("█", barLen)),
		valueStyle.Render(FormatNumber(value)))
}

// RenderMetric renders a label/value line of a summary block.
func RenderMetric(label, value string) string {
	return "  " + mutedStyle.Render(pad(label, 24, false)) + " " + valueStyle.Render(value)
}

// RenderSummary renders the "Resumo Geral" block: headline numbers, one bar
// per year and the brand x year pivot.
func RenderSummary(stats model.SummaryStats, years []model.YearCount, pivot model.BrandYearTable) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  Resumo Geral"))
	b.WriteString("\n")
	b.WriteString(RenderMetric("Total de Emplacamentos", FormatNumber(stats.TotalRegistrations)))
	b.WriteString("\n")
	b.WriteString(RenderMetric("Clientes Únicos", FormatNumber(stats.UniqueClients)))
	b.WriteString("\n")
	b.WriteString(RenderMetric("Período", stats.Period()))
	b.WriteString("\n")
	if stats.InvalidDates > 0 {
		b.WriteString(RenderMetric("Datas inválidas", warnStyle.Render(FormatNumber(stats.InvalidDates))))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("  Emplacamentos por Ano"))
	b.WriteString("\n")
	if len(years) == 0 {
		b.WriteString("  " + mutedStyle.Render(model.NoDataMessage) + "\n")
	} else {
		top := 0
		spark := make([]float64, len(years))
		for i, y := range years {
			top = max(top, y.Count)
			spark[i] = float64(y.Count)
		}
		for _, y := range years {
			b.WriteString(RenderHorizontalBar(fmt.Sprintf("%d", y.Year), y.Count, top, 40))
			b.WriteString("\n")
		}
		b.WriteString("  " + mutedStyle.Render("Tendência ") + barStyle.Render(RenderSparkline(spark)) + "\n")
	}
	b.WriteString("\n")

	if pivot.Empty() {
		b.WriteString(headerStyle.Render("  Emplacamentos por Marca e Ano"))
		b.WriteString("\n  " + mutedStyle.Render(model.NoDataMessage) + "\n")
		return b.String()
	}
	b.WriteString(RenderTable(PivotTable(pivot)))
	return b.String()
}

// PivotTable lays out a brand x year pivot as a table with a total column.
func PivotTable(pivot model.BrandYearTable) Table {
	t := Table{Title: "Emplacamentos por Marca e Ano", Headers: []string{"Marca"}}
	for _, y := range pivot.Years {
		t.Headers = append(t.Headers, fmt.Sprintf("%d", y))
	}
	t.Headers = append(t.Headers, "Total")

	for _, r := range pivot.Rows {
		row := []string{r.Brand}
		for _, n := range r.Counts {
			row = append(row, FormatNumber(n))
		}
		t.Rows = append(t.Rows, append(row, FormatNumber(r.Total)))
	}
	return t
}

// MessageStyle colors a sales message by urgency.
func MessageStyle(tag cadence.Opportunity) lipgloss.Style {
	switch {
	case tag == cadence.NoHistory:
		return mutedStyle
	case tag == cadence.Overdue || tag == cadence.GoneQuiet:
		return lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	case tag.Urgent():
		return lipgloss.NewStyle().Foreground(ColorOrange).Bold(true)
	case tag == cadence.Loyal || tag == cadence.RecentPurchase:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	default:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	}
}

// HistoryTable lays out a client's registrations using the report columns.
func HistoryTable(title string, columns []string, records []model.Registration) Table {
	t := Table{Title: title, Headers: columns, LeftCols: len(columns)}
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = r.Field(c)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RenderClientReport renders identity, outlook, most frequent attributes and
// purchase history of one client.
func RenderClientReport(rep model.ClientReport) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  " + rep.Name))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(FormatTaxID(rep.DisplayTaxID)))
	b.WriteString("\n")
	b.WriteString(RenderMetric("Total de compras", FormatNumber(rep.TotalPurchases)))
	b.WriteString("\n")
	b.WriteString(RenderMetric("Última compra", FormatDate(rep.LastPurchase)))
	b.WriteString("\n")

	if p := rep.Prediction; p != nil {
		if p.Available() {
			b.WriteString(RenderMetric("Intervalo médio", FormatMonths(p.AverageIntervalMonths)))
			b.WriteString("\n")
		}
		b.WriteString("  " + valueStyle.Render(p.Label) + "\n")
	}
	if m := rep.Message; m != nil {
		badge := MessageStyle(m.Tag).Render("[" + m.Tag.Label() + "]")
		b.WriteString("  " + badge + " " + valueStyle.Render(m.Text) + "\n")
	}

	if len(rep.Modes) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("  Mais frequentes"))
		b.WriteString("\n")
		for _, m := range rep.Modes {
			b.WriteString(RenderMetric(m.Column, strings.Join(m.Values, ", ")))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(RenderTable(HistoryTable("Histórico de compras", rep.Columns, rep.History)))
	return b.String()
}

// RenderSearchReport renders the result count, the matched rows and one
// report per matched client.
func RenderSearchReport(rep model.SearchReport) string {
	var b strings.Builder

	b.WriteString("  " + valueStyle.Render(model.ResultMessage(len(rep.Matches))) + "\n")
	if len(rep.Matches) == 0 {
		return b.String()
	}
	b.WriteString("\n")

	columns := append([]string{model.ColClient}, rep.Columns...)
	b.WriteString(RenderTable(HistoryTable("Registros encontrados", columns, rep.Matches)))

	for _, c := range rep.Clients {
		b.WriteString("\n")
		b.WriteString(RenderClientReport(c))
	}
	if hidden := rep.HiddenClients(); hidden > 0 {
		b.WriteString("\n  " + mutedStyle.Render(fmt.Sprintf("+%d cliente(s) não exibido(s). Refine a busca.", hidden)) + "\n")
	}
	return b.String()
}
