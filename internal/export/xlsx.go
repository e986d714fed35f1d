// Package export writes registrations, search results and summaries as XLSX
// workbooks.
package export

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/denigris/emplacamentos/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	headerColor = "#0055A4"
	minColWidth = 8
	maxColWidth = 60
)

// sheet is one worksheet: a styled header row followed by data rows.
// dateCols lists zero-based columns holding time.Time values.
type sheet struct {
	name     string
	headers  []string
	rows     [][]any
	dateCols []int
}

func write(w io.Writer, sheets []sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Font:      &excelize.Font{Color: "FFFFFF", Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    []excelize.Border{{Type: "bottom", Color: "FFFFFF", Style: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	dateFmt := "dd/mm/yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return fmt.Errorf("creating date style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s, headerStyle, dateStyle); err != nil {
			return fmt.Errorf("sheet %q: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle, dateStyle int) error {
	widths := make([]int, len(s.headers))

	header := make([]any, len(s.headers))
	for i, h := range s.headers {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return err
	}
	if len(s.headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
		for c, v := range row {
			if c < len(widths) {
				widths[c] = max(widths[c], cellWidth(v))
			}
		}
	}

	if len(s.rows) > 0 {
		for _, c := range s.dateCols {
			top, _ := excelize.CoordinatesToCellName(c+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(c+1, len(s.rows)+1)
			if err := f.SetCellStyle(s.name, top, bottom, dateStyle); err != nil {
				return err
			}
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		w = min(max(w+2, minColWidth), maxColWidth)
		if err := f.SetColWidth(s.name, col, col, float64(w)); err != nil {
			return err
		}
	}
	return nil
}

func cellWidth(v any) int {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x)
	case int:
		return len(strconv.Itoa(x))
	case float64:
		return len(strconv.FormatFloat(x, 'f', 1, 64))
	case nil:
		return 0
	default:
		return 10
	}
}

// registrationRows converts records to cells, keeping valid dates as
// spreadsheet dates and blanking invalid ones.
func registrationRows(records []model.Registration, columns []string) ([][]any, []int) {
	var dateCols []int
	for i, c := range columns {
		if c == model.ColDate {
			dateCols = append(dateCols, i)
		}
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			switch {
			case c == model.ColDate && r.HasDate():
				row[j] = r.RegisteredAt
			case c == model.ColYear && r.Year() > 0:
				row[j] = r.Year()
			default:
				row[j] = r.Field(c)
			}
		}
		rows[i] = row
	}
	return rows, dateCols
}

// WriteRegistrations writes records as a single "Registros" sheet with the
// given columns.
func WriteRegistrations(w io.Writer, records []model.Registration, columns []string) error {
	rows, dateCols := registrationRows(records, columns)
	return write(w, []sheet{{name: "Registros", headers: columns, rows: rows, dateCols: dateCols}})
}

// withIdentity makes sure exported search rows say whose they are.
func withIdentity(columns []string) []string {
	out := make([]string, 0, len(columns)+2)
	for _, c := range []string{model.ColClient, model.ColTaxID} {
		found := false
		for _, have := range columns {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return append(out, columns...)
}

var clientHeaders = []string{
	"Cliente", "CNPJ", "Total de compras", "Última compra",
	"Intervalo médio (meses)", "Próxima compra prevista", "Oportunidade", "Mensagem",
}

// WriteSearchReport writes the matched rows and one line per reported client.
func WriteSearchReport(w io.Writer, rep model.SearchReport) error {
	columns := withIdentity(rep.Columns)
	rows, dateCols := registrationRows(rep.Matches, columns)

	clients := make([][]any, len(rep.Clients))
	for i, c := range rep.Clients {
		row := []any{c.Name, c.DisplayTaxID, c.TotalPurchases, nil, nil, nil, nil, nil}
		if !c.LastPurchase.IsZero() {
			row[3] = c.LastPurchase
		}
		if p := c.Prediction; p != nil {
			if p.Available() {
				row[4] = p.AverageIntervalMonths
				row[5] = p.NextDate
			} else {
				row[5] = p.Label
			}
		}
		if m := c.Message; m != nil {
			row[6] = m.Tag.Label()
			row[7] = m.Text
		}
		clients[i] = row
	}

	return write(w, []sheet{
		{name: "Registros", headers: columns, rows: rows, dateCols: dateCols},
		{name: "Clientes", headers: clientHeaders, rows: clients, dateCols: []int{3, 5}},
	})
}

// WriteSummary writes the headline numbers, the per-year counts and the
// brand x year pivot on three sheets.
func WriteSummary(w io.Writer, stats model.SummaryStats, years []model.YearCount, pivot model.BrandYearTable) error {
	overview := [][]any{
		{"Total de Emplacamentos", stats.TotalRegistrations},
		{"Clientes Únicos", stats.UniqueClients},
		{"Período", stats.Period()},
		{"Datas inválidas", stats.InvalidDates},
	}

	perYear := make([][]any, len(years))
	for i, y := range years {
		perYear[i] = []any{y.Year, y.Count}
	}

	pivotHeaders := []string{"Marca"}
	for _, y := range pivot.Years {
		pivotHeaders = append(pivotHeaders, strconv.Itoa(y))
	}
	pivotHeaders = append(pivotHeaders, "Total")

	pivotRows := make([][]any, len(pivot.Rows))
	for i, r := range pivot.Rows {
		row := make([]any, 0, len(r.Counts)+2)
		row = append(row, r.Brand)
		for _, n := range r.Counts {
			row = append(row, n)
		}
		pivotRows[i] = append(row, r.Total)
	}

	return write(w, []sheet{
		{name: "Resumo", headers: []string{"Indicador", "Valor"}, rows: overview},
		{name: "Por Ano", headers: []string{"Ano", "Emplacamentos"}, rows: perYear},
		{name: "Marca x Ano", headers: pivotHeaders, rows: pivotRows},
	})
}
