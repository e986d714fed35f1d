package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/export"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/tui/components"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// searchState holds the Busca tab: the query box, the last report and the
// selected client.
type searchState struct {
	input   textinput.Model
	query   string
	report  model.SearchReport
	message string
	cursor  int // selected client
	scroll  int // report pane scroll
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "Nome, CNPJ ou placa"
	ti.Prompt = "› "
	ti.CharLimit = 80
	ti.Width = 50
	return searchState{input: ti}
}

const halfPageScroll = 8

// runSearch rebuilds the search report over the filtered records.
func (a *App) runSearch(query string) {
	rep, err := pipeline.BuildSearchReport(a.filtered, query, a.opts.Report, a.today())
	s := &a.search
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		s.query = ""
		s.report = model.SearchReport{}
		s.message = model.EmptyQueryMessage
	case err != nil:
		s.query = query
		s.report = model.SearchReport{}
		s.message = err.Error()
	case len(rep.Matches) == 0:
		s.query = query
		s.report = rep
		s.message = model.NoResultsMessage
	default:
		s.query = query
		s.report = rep
		s.message = model.ResultMessage(len(rep.Matches))
	}
	s.cursor = min(s.cursor, max(len(s.report.Clients)-1, 0))
}

// updateSearchInput handles keys while the query box has focus.
func (a App) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.search.input.Blur()
		a.search.cursor = 0
		a.search.scroll = 0
		a.runSearch(a.search.input.Value())
		return a, nil
	case "esc":
		a.search.input.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.search.input, cmd = a.search.input.Update(msg)
	return a, cmd
}

// updateSearchKeys handles Busca tab keys outside the query box. ok is false
// when the key is not a search binding.
func (a App) updateSearchKeys(key string) (m tea.Model, cmd tea.Cmd, ok bool) {
	s := &a.search
	last := max(len(s.report.Clients)-1, 0)

	switch key {
	case "/":
		blink := s.input.Focus()
		return a, blink, true
	case "j", "down":
		if s.cursor < last {
			s.cursor++
			s.scroll = 0
		}
	case "k", "up":
		if s.cursor > 0 {
			s.cursor--
			s.scroll = 0
		}
	case "g":
		s.cursor, s.scroll = 0, 0
	case "G":
		s.cursor, s.scroll = last, 0
	case "J":
		s.scroll++
	case "K":
		s.scroll = max(s.scroll-1, 0)
	case "ctrl+d":
		s.scroll += halfPageScroll
	case "ctrl+u":
		s.scroll = max(s.scroll-halfPageScroll, 0)
	case "esc":
		s.input.SetValue("")
		s.query, s.message = "", ""
		s.report = model.SearchReport{}
		s.cursor, s.scroll = 0, 0
	case "x":
		if s.query == "" {
			a.flash, a.flashErr = "Nada para exportar: faça uma busca primeiro.", true
			return a, nil, true
		}
		path, err := exportSearch(s.report, time.Now())
		if err != nil {
			a.flash, a.flashErr = "Falha ao exportar: "+err.Error(), true
		} else {
			a.flash, a.flashErr = "Exportado para "+path, false
		}
	default:
		return a, nil, false
	}
	return a, nil, true
}

// exportSearch writes the report to a timestamped workbook in the working directory.
func exportSearch(rep model.SearchReport, now time.Time) (string, error) {
	name := fmt.Sprintf("emplac-busca-%s.xlsx", now.Format("20060102-150405"))
	path, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.WriteSearchReport(f, rep); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

func (a App) renderSearchTab(cw, h int) string {
	t := theme.Active
	s := a.search

	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	var box string
	if s.input.Focused() {
		box = s.input.View() + "\n" + hint.Render("Enter busca · Esc cancela")
	} else {
		value := s.query
		if value == "" {
			value = s.input.Placeholder
		}
		box = lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("› "+value) +
			"\n" + hint.Render("/ nova busca · x exporta · Esc limpa")
	}
	if s.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
		if s.message == model.EmptyQueryMessage || s.message == model.NoResultsMessage {
			msgStyle = msgStyle.Foreground(t.Orange)
		}
		box += "\n" + msgStyle.Render(s.message)
	}
	searchCard := components.ContentCard("Buscar cliente", box, cw, s.input.Focused())

	bodyH := max(h-lipgloss.Height(searchCard), 3)
	if len(s.report.Matches) == 0 {
		return searchCard
	}

	if len(s.report.Clients) == 0 {
		// Every match lacks a tax ID: only the rows can be shown.
		columns := append([]string{model.ColClient}, s.report.Columns...)
		table := renderRecords(columns, s.report.Matches, components.CardInnerWidth(cw))
		return searchCard + "\n" + components.ContentCard("Registros encontrados", table, cw, false)
	}

	if a.isCompactLayout() {
		sel := s.report.Clients[s.cursor]
		detail := scrollLines(renderClientDetail(sel, components.CardInnerWidth(cw)), s.scroll, bodyH-2)
		title := fmt.Sprintf("Cliente %d de %d", s.cursor+1, len(s.report.Clients))
		return searchCard + "\n" + components.ContentCard(title, detail, cw, false)
	}

	listW := min(max(cw/3, 32), 48)
	detailW := cw - listW
	list := a.renderClientList(components.CardInnerWidth(listW), bodyH-2)
	sel := s.report.Clients[s.cursor]
	detail := scrollLines(renderClientDetail(sel, components.CardInnerWidth(detailW)), s.scroll, bodyH-2)

	return searchCard + "\n" + components.CardRow([]string{
		components.ContentCard(fmt.Sprintf("Clientes (%d)", s.report.MatchedClients), list, listW, false),
		components.ContentCard(sel.Name, detail, detailW, true),
	})
}

func (a App) renderClientList(w, h int) string {
	t := theme.Active
	s := a.search

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	// Two lines per client: keep the cursor visible.
	visible := max(h/2, 1)
	offset := 0
	if s.cursor >= visible {
		offset = s.cursor - visible + 1
	}

	var b strings.Builder
	for i := offset; i < len(s.report.Clients) && i < offset+visible; i++ {
		c := s.report.Clients[i]
		style := nameStyle
		if i == s.cursor {
			style = selStyle
		}
		b.WriteString(style.Width(w).Render(cli.Truncate(c.Name, w)))
		b.WriteString("\n")

		line := mutedStyle.Render(cli.FormatTaxID(c.DisplayTaxID))
		if c.Message != nil {
			line += mutedStyle.Render(" ") + opportunityStyle(c.Message.Tag).Render(c.Message.Tag.Label())
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if hidden := s.report.HiddenClients(); hidden > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("+%d não exibido(s)", hidden)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderClientDetail(rep model.ClientReport, w int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	row := func(label, value string) string {
		return labelStyle.Width(18).Render(label) + valueStyle.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(row("CNPJ/CPF", cli.FormatTaxID(rep.DisplayTaxID)))
	b.WriteString(row("Total de compras", cli.FormatNumber(rep.TotalPurchases)))
	b.WriteString(row("Última compra", cli.FormatDate(rep.LastPurchase)))

	if p := rep.Prediction; p != nil {
		if p.Available() {
			b.WriteString(row("Intervalo médio", cli.FormatMonths(p.AverageIntervalMonths)))
		}
		b.WriteString(valueStyle.Width(w).Render(p.Label))
		b.WriteString("\n")
	}
	if m := rep.Message; m != nil {
		b.WriteString("\n")
		b.WriteString(opportunityStyle(m.Tag).Width(w).Render("[" + m.Tag.Label() + "] " + m.Text))
		b.WriteString("\n")
	}

	if len(rep.Modes) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Mais frequentes"))
		b.WriteString("\n")
		for _, m := range rep.Modes {
			b.WriteString(row(m.Column, strings.Join(m.Values, ", ")))
		}
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Histórico de compras"))
	b.WriteString("\n")
	b.WriteString(renderRecords(rep.Columns, rep.History, w))
	return b.String()
}

// renderRecords lays out records as a plain table fitted to width w.
func renderRecords(columns []string, records []model.Registration, w int) string {
	t := theme.Active
	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if len(columns) == 0 {
		return ""
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = lipgloss.Width(c)
		for _, r := range records {
			widths[i] = max(widths[i], lipgloss.Width(r.Field(c)))
		}
	}
	// Shrink the widest column until the table fits.
	for total(widths)+2*(len(widths)-1) > w {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			break
		}
		widths[widest]--
	}

	line := func(style lipgloss.Style, cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i]).Render(cli.Truncate(c, widths[i]))
		}
		return strings.Join(parts, cellStyle.Render("  "))
	}

	var b strings.Builder
	b.WriteString(line(headStyle, columns))
	for _, r := range records {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = r.Field(c)
		}
		b.WriteString("\n")
		b.WriteString(line(cellStyle, cells))
	}
	return b.String()
}

func total(ws []int) int {
	n := 0
	for _, w := range ws {
		n += w
	}
	return n
}

// scrollLines returns h lines of s starting at offset, clamped to the end.
func scrollLines(s string, offset, h int) string {
	lines := strings.Split(s, "\n")
	offset = min(offset, max(len(lines)-h, 0))
	end := min(offset+h, len(lines))
	return strings.Join(lines[offset:end], "\n")
}

// opportunityStyle colors a sales tag by urgency.
func opportunityStyle(tag cadence.Opportunity) lipgloss.Style {
	t := theme.Active
	style := lipgloss.NewStyle().Background(t.Surface)
	switch {
	case tag == cadence.NoHistory:
		return style.Foreground(t.TextMuted)
	case tag == cadence.Overdue || tag == cadence.GoneQuiet:
		return style.Foreground(t.Red).Bold(true)
	case tag.Urgent():
		return style.Foreground(t.Orange).Bold(true)
	case tag == cadence.Loyal || tag == cadence.RecentPurchase:
		return style.Foreground(t.Green)
	default:
		return style.Foreground(t.Yellow)
	}
}
