package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

var fullHeaders = []any{"Data emplacamento", "CNPJ CLIENTE", "NOME DO CLIENTE", "Placa", "Marca", "Segmento", "Modelo", "Cidade"}

// writeWorkbook builds an in-memory xlsx with one sheet per entry of sheets,
// in order. Each sheet is a list of rows.
func writeWorkbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range sheets[name] {
			cellName, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cellName, &row); err != nil {
				t.Fatal(err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func singleSheet(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	return writeWorkbook(t, map[string][][]any{"Dados": rows}, "Dados")
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadWorkbook_Rows(t *testing.T) {
	data := singleSheet(t,
		fullHeaders,
		[]any{date(2023, time.January, 15), "12.345.678/0001-90", "  Transportes Silva Ltda ", "abc1d23", "Volvo", "Pesado", "FH 540", "Curitiba"},
		[]any{"", "", "", "", "", "", "", ""},
		[]any{"15/07/2023", "12.345.678/0001-90", "Transportes Silva Ltda", "XYZ9A87", "Volvo", "Pesado", "FH 460", ""},
		[]any{"ontem", "98.765.432/0001-10", "Logística Ávila", "", "Scania", "Pesado", "R 450", "Ponta Grossa"},
	)

	res := ReadWorkbook(bytes.NewReader(data), nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Sheet != "Dados" {
		t.Errorf("Sheet = %q, want Dados", res.Sheet)
	}
	if len(res.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(res.Records))
	}
	if res.BlankRows != 1 {
		t.Errorf("BlankRows = %d, want 1", res.BlankRows)
	}
	if res.InvalidDates != 1 {
		t.Errorf("InvalidDates = %d, want 1", res.InvalidDates)
	}
	if res.Headers[3] != "PLACA" {
		t.Errorf("plate header = %q, want PLACA", res.Headers[3])
	}

	first := res.Records[0]
	if !first.RegisteredAt.Equal(date(2023, time.January, 15)) {
		t.Errorf("RegisteredAt = %v, want 2023-01-15", first.RegisteredAt)
	}
	if first.Plate != "ABC1D23" {
		t.Errorf("Plate = %q, want ABC1D23", first.Plate)
	}
	if first.ClientName != "Transportes Silva Ltda" {
		t.Errorf("ClientName = %q", first.ClientName)
	}
	if first.TaxIDNormalized != "12345678000190" {
		t.Errorf("TaxIDNormalized = %q", first.TaxIDNormalized)
	}
	if first.Extra["Cidade"] != "Curitiba" {
		t.Errorf("Extra[Cidade] = %q", first.Extra["Cidade"])
	}
	if first.Row != 2 {
		t.Errorf("Row = %d, want 2", first.Row)
	}

	second := res.Records[1]
	if !second.RegisteredAt.Equal(date(2023, time.July, 15)) {
		t.Errorf("text date = %v, want 2023-07-15", second.RegisteredAt)
	}
	if second.Row != 4 {
		t.Errorf("Row = %d, want 4 (blank row skipped)", second.Row)
	}
	if _, ok := second.Extra["Cidade"]; ok {
		t.Error("blank extra cell should be omitted")
	}

	third := res.Records[2]
	if third.HasDate() {
		t.Errorf("invalid date parsed as %v", third.RegisteredAt)
	}
	if third.Plate != "N/A" {
		t.Errorf("blank plate = %q, want N/A", third.Plate)
	}
}

func TestReadWorkbook_PlateAliases(t *testing.T) {
	for _, alias := range []string{"PLACA", "Placa", "placa", "PLACA VEÍCULO", "Placa Veículo"} {
		t.Run(alias, func(t *testing.T) {
			data := singleSheet(t,
				[]any{"NOME DO CLIENTE", " " + alias + " ", "CNPJ CLIENTE", "Data emplacamento"},
				[]any{"Cliente", "bra2e19", "11.111.111/0001-11", "01/02/2022"},
			)
			res := ReadWorkbook(bytes.NewReader(data), nil)
			if res.Err != nil {
				t.Fatal(res.Err)
			}
			if got := res.Records[0].Plate; got != "BRA2E19" {
				t.Errorf("Plate = %q, want BRA2E19", got)
			}
		})
	}
}

func TestReadWorkbook_NoPlateColumn(t *testing.T) {
	data := singleSheet(t,
		[]any{"Data emplacamento", "CNPJ CLIENTE", "NOME DO CLIENTE"},
		[]any{"01/02/2022", "11.111.111/0001-11", "Cliente"},
	)
	res := ReadWorkbook(bytes.NewReader(data), nil)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if got := res.Records[0].Plate; got != "N/A" {
		t.Errorf("Plate = %q, want N/A", got)
	}
}

func TestReadWorkbook_MissingColumn(t *testing.T) {
	data := singleSheet(t,
		[]any{"Data emplacamento", "NOME DO CLIENTE"},
		[]any{"01/02/2022", "Cliente"},
	)
	res := ReadWorkbook(bytes.NewReader(data), nil)
	if !errors.Is(res.Err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "CNPJ CLIENTE") {
		t.Errorf("error %q does not name the missing header", res.Err)
	}
	if !IsFormatError(res.Err) {
		t.Error("missing column should be a format error")
	}
}

func TestReadWorkbook_PicksSheetWithHeaders(t *testing.T) {
	data := writeWorkbook(t, map[string][][]any{
		"Capa":  {{"Relatório anual"}, {"Gerado em 2024"}},
		"Dados": {{"Data emplacamento", "CNPJ CLIENTE", "NOME DO CLIENTE"}, {"03/03/2021", "1", "A"}},
	}, "Capa", "Dados")

	res := ReadWorkbook(bytes.NewReader(data), nil)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Sheet != "Dados" {
		t.Errorf("Sheet = %q, want Dados", res.Sheet)
	}
	if len(res.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(res.Records))
	}
}

func TestReadWorkbook_NotAWorkbook(t *testing.T) {
	res := ReadWorkbook(strings.NewReader("PLACA;CNPJ\n"), nil)
	if !errors.Is(res.Err, ErrInvalidWorkbook) {
		t.Fatalf("err = %v, want ErrInvalidWorkbook", res.Err)
	}
}

func TestParseFile_Progress(t *testing.T) {
	rows := [][]any{{"Data emplacamento", "CNPJ CLIENTE", "NOME DO CLIENTE"}}
	for i := 0; i < 1200; i++ {
		rows = append(rows, []any{"10/05/2020", "22.222.222/0001-22", "Cliente"})
	}
	path := filepath.Join(t.TempDir(), "anual.xlsx")
	if err := os.WriteFile(path, singleSheet(t, rows...), 0o600); err != nil {
		t.Fatal(err)
	}

	var calls, last, total int
	res := ParseFile(path, func(current, n int) {
		calls++
		last, total = current, n
	})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(res.Records) != 1200 {
		t.Errorf("len(Records) = %d, want 1200", len(res.Records))
	}
	if calls != 3 {
		t.Errorf("progress calls = %d, want 3", calls)
	}
	if last != 1200 || total != 1200 {
		t.Errorf("final progress = %d/%d, want 1200/1200", last, total)
	}
}

func TestParseFile_Missing(t *testing.T) {
	res := ParseFile(filepath.Join(t.TempDir(), "nope.xlsx"), nil)
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not exist", res.Err)
	}
}
