package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/tui/components"

	tea "github.com/charmbracelet/bubbletea"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func reg(row int, name, tax, norm, plate, brand string, at time.Time) model.Registration {
	return model.Registration{
		Row:             row,
		ClientName:      name,
		TaxID:           tax,
		TaxIDNormalized: norm,
		Plate:           plate,
		Brand:           brand,
		Segment:         "Pesados",
		RegisteredAt:    at,
	}
}

func testDataset() *pipeline.Dataset {
	return &pipeline.Dataset{
		SourceID:   "file:/tmp/teste.xlsx",
		SourceName: "teste.xlsx",
		Records: []model.Registration{
			reg(2, "Transportes São João", "12.345.678/0001-90", "12345678000190", "ABC1D23", "VOLVO", date(2022, 1, 10)),
			reg(3, "Transportes São João", "12.345.678/0001-90", "12345678000190", "DEF4G56", "VOLVO", date(2022, 7, 10)),
			reg(4, "Logística Norte", "98.765.432/0001-10", "98765432000110", "KLM1N23", "SCANIA", date(2023, 3, 5)),
			reg(5, "Sem Cadastro", "", "", "XYZ9A87", "DAF", date(2021, 12, 1)),
		},
	}
}

// newTestApp returns a loaded, sized dashboard with setup skipped.
func newTestApp(t *testing.T) App {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := NewApp(Options{
		Report: pipeline.DefaultReportOptions(),
		Today:  date(2023, 8, 1),
	})
	a.needSetup = false
	a = send(t, a, DataLoadedMsg{Dataset: testDataset(), LoadTime: time.Second})
	return send(t, a, tea.WindowSizeMsg{Width: 140, Height: 45})
}

func send(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return app
}

func keys(t *testing.T, a App, ks ...string) App {
	t.Helper()
	for _, k := range ks {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		a = send(t, a, msg)
	}
	return a
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Errorf("x past the last tab -> %d, want -1", got)
		}
	}
}

func TestSearchFlow(t *testing.T) {
	a := newTestApp(t)

	a = keys(t, a, "/")
	if !a.search.input.Focused() {
		t.Fatal("/ should focus the search box")
	}
	// Tab shortcuts are typed into the box while it has focus.
	a = keys(t, a, "s", "a", "o", " ", "j", "o", "a", "o", "enter")
	if a.activeTab != tabSearch {
		t.Fatalf("typing switched tabs to %d", a.activeTab)
	}
	if a.search.input.Focused() {
		t.Error("enter should leave the search box")
	}
	if got := len(a.search.report.Clients); got != 1 {
		t.Fatalf("clients = %d, want 1", got)
	}
	if a.search.message != model.ResultMessage(2) {
		t.Errorf("message = %q", a.search.message)
	}

	rep := a.search.report.Clients[0]
	if rep.Prediction == nil || !rep.Prediction.Available() {
		t.Fatal("expected a prediction for two dated purchases")
	}

	view := a.View()
	for _, want := range []string{"Transportes São João", "Histórico de compras", "ABC1D23"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	a = keys(t, a, "esc")
	if a.search.query != "" || len(a.search.report.Matches) != 0 {
		t.Error("esc should clear the search")
	}
}

func TestSearchMessages(t *testing.T) {
	a := newTestApp(t)

	a = keys(t, a, "/", "enter")
	if a.search.message != model.EmptyQueryMessage {
		t.Errorf("empty query message = %q", a.search.message)
	}

	a = keys(t, a, "/", "z", "z", "z", "enter")
	if a.search.message != model.NoResultsMessage {
		t.Errorf("no results message = %q", a.search.message)
	}
}

func TestSearchPlateWithoutClient(t *testing.T) {
	a := newTestApp(t)
	a = keys(t, a, "/", "X", "Y", "Z", "enter")

	if len(a.search.report.Matches) != 1 || len(a.search.report.Clients) != 0 {
		t.Fatalf("matches=%d clients=%d", len(a.search.report.Matches), len(a.search.report.Clients))
	}
	if !strings.Contains(a.View(), "Registros encontrados") {
		t.Error("rows without a client should still be listed")
	}
}

func TestTabNavigation(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		key  string
		want int
	}{
		{"r", tabSummary},
		{"f", tabFilters},
		{"b", tabSearch},
	}
	for _, tt := range tests {
		a = keys(t, a, tt.key)
		if a.activeTab != tt.want {
			t.Errorf("key %q -> tab %d, want %d", tt.key, a.activeTab, tt.want)
		}
	}

	a = send(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	if a.activeTab != tabFilters {
		t.Errorf("left from first tab -> %d, want wrap to %d", a.activeTab, tabFilters)
	}
}

func TestSummaryTab(t *testing.T) {
	a := newTestApp(t)
	a = keys(t, a, "r")

	view := a.View()
	for _, want := range []string{"Total de registros", "2021 - 2023", "Marca x Ano", "VOLVO"} {
		if !strings.Contains(view, want) {
			t.Errorf("summary view missing %q", want)
		}
	}
}

func TestFiltersTab(t *testing.T) {
	a := newTestApp(t)
	a = keys(t, a, "f")

	if strings.Join(a.brands, ",") != "DAF,SCANIA,VOLVO" {
		t.Fatalf("brands = %v", a.brands)
	}

	// Cursor starts on DAF.
	a = keys(t, a, " ")
	if len(a.filtered) != 1 || a.stats.TotalRegistrations != 1 {
		t.Fatalf("filtered = %d records", len(a.filtered))
	}
	if len(a.brands) != 3 {
		t.Error("options should come from the whole dataset")
	}

	a = keys(t, a, "j", " ")
	if got := strings.Join(a.filter.Brands, ","); got != "DAF,SCANIA" {
		t.Errorf("selected = %q", got)
	}
	a = keys(t, a, " ")
	if got := strings.Join(a.filter.Brands, ","); got != "DAF" {
		t.Errorf("toggle off: selected = %q", got)
	}

	a = keys(t, a, "s")
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(cfg.Filters.Brands, ",") != "DAF" {
		t.Errorf("saved brands = %v", cfg.Filters.Brands)
	}

	a = keys(t, a, "c")
	if !a.filter.Empty() || len(a.filtered) != 4 {
		t.Errorf("clear left %d records with filter %+v", len(a.filtered), a.filter)
	}
}

func TestFilterReappliesSearch(t *testing.T) {
	a := newTestApp(t)
	a = keys(t, a, "/", "n", "o", "r", "t", "e", "enter")
	if len(a.search.report.Clients) != 1 {
		t.Fatalf("clients = %d", len(a.search.report.Clients))
	}

	// Keep only VOLVO: Logística Norte drops out of the search.
	a = keys(t, a, "f", "j", "j", " ")
	if len(a.search.report.Matches) != 0 {
		t.Errorf("matches after filter = %d, want 0", len(a.search.report.Matches))
	}
	if a.search.message != model.NoResultsMessage {
		t.Errorf("message = %q", a.search.message)
	}
}

func TestLoadFailureShowsNoData(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := NewApp(Options{})
	a.needSetup = false
	a = send(t, a, DataLoadedMsg{Err: pipeline.ErrNoDataset})
	a = send(t, a, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := a.View()
	if !strings.Contains(view, model.NoDataMessage) {
		t.Error("view should show the no-data message")
	}
	if !strings.Contains(view, pipeline.ErrNoDataset.Error()) {
		t.Error("view should show the load error")
	}
}

func TestRefreshFailureKeepsDataset(t *testing.T) {
	a := newTestApp(t)
	a = send(t, a, RefreshDataMsg{Err: errors.New("disco cheio")})
	if a.dataset == nil || len(a.filtered) != 4 {
		t.Fatal("failed refresh dropped the dataset")
	}
	if !a.flashErr || !strings.Contains(a.flash, "disco cheio") {
		t.Errorf("flash = %q", a.flash)
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := newTestApp(t)
	a = send(t, a, tea.WindowSizeMsg{Width: 60, Height: 20})
	if !strings.Contains(a.View(), "estreito") {
		t.Error("narrow terminal should be reported")
	}
}

func TestValidateDataPath(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "emplacamentos.xlsx")
	notes := filepath.Join(dir, "notas.txt")
	for _, p := range []string{book, notes} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		path    string
		wantErr bool
	}{
		{book, false},
		{dir, false},
		{notes, true},
		{filepath.Join(dir, "falta.xlsx"), true},
		{"  ", true},
	}
	for _, tt := range tests {
		if err := validateDataPath(tt.path); (err != nil) != tt.wantErr {
			t.Errorf("validateDataPath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func TestSaveSetupConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	a := NewApp(Options{})
	a.setupVals = SetupValues{DataFile: dir, Theme: "claro", ShowPrediction: false}
	if err := a.saveSetupConfig(); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.DataDir != dir || cfg.Appearance.Theme != "claro" || cfg.Report.ShowPrediction {
		t.Errorf("saved config = %+v", cfg)
	}
	if a.opts.FallbackPath != dir {
		t.Errorf("FallbackPath = %q", a.opts.FallbackPath)
	}
}
