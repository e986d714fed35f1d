package components

import (
	"strings"
	"testing"

	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{10, 3, []int{4, 3, 3}},
		{9, 3, []int{3, 3, 3}},
		{5, 0, nil},
	}
	for _, tt := range tests {
		got := LayoutRow(tt.total, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
				break
			}
		}
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("denigris")

	shortCard := ContentCard("Curto", "Conteúdo", 22, false)
	tallCard := ContentCard("Alto", "1\n2\n3\n4\n5", 22, true)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d under the short card has no background styling", i)
		}
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 44 {
			t.Errorf("line %d width = %d, want 44", i, w)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Registros", Value: "1.234"},
		{Label: "Clientes", Value: "56"},
		{Label: "Período", Value: "2019 - 2024", Note: "3 datas inválidas"},
	}, 90)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}

func TestTabBar(t *testing.T) {
	for active := range Tabs {
		bar := RenderTabBar(active, 80)
		if w := lipgloss.Width(bar); w != 80 {
			t.Errorf("active=%d width = %d, want 80", active, w)
		}
		for _, tab := range Tabs {
			if !strings.Contains(bar, tab.Name[tab.KeyPos+1:]) {
				t.Errorf("active=%d bar missing %q", active, tab.Name)
			}
		}
	}

	if TabIdxByKey('r') != 1 || TabIdxByKey('z') != -1 {
		t.Error("TabIdxByKey mismatch")
	}
	if TabVisualWidth(Tabs[0], true) != len("Busca")+2 {
		t.Errorf("active width = %d", TabVisualWidth(Tabs[0], true))
	}
	if TabVisualWidth(Tabs[0], false) != len("Busca")+4 {
		t.Errorf("inactive width = %d", TabVisualWidth(Tabs[0], false))
	}
}

func TestBarChart(t *testing.T) {
	chart := BarChart([]int{3, 10, 7}, []string{"2022", "2023", "2024"}, theme.Active.Accent, 40, 6)
	if !strings.Contains(chart, "2022") || !strings.Contains(chart, "2024") {
		t.Errorf("chart missing year labels:\n%s", chart)
	}
	if !strings.Contains(chart, "█") {
		t.Error("chart has no full blocks")
	}

	narrow := BarChart([]int{1, 2}, nil, theme.Active.Accent, 10, 6)
	if lipgloss.Height(narrow) != 1 {
		t.Errorf("narrow chart should degrade to a sparkline, got %d lines", lipgloss.Height(narrow))
	}
	if BarChart(nil, nil, theme.Active.Accent, 40, 6) != "" {
		t.Error("empty chart should render nothing")
	}
}

func TestFormatAxis(t *testing.T) {
	tests := map[float64]string{5: "5", 2000: "2mil", 2500: "2,5mil"}
	for v, want := range tests {
		if got := formatAxis(v); got != want {
			t.Errorf("formatAxis(%v) = %q, want %q", v, got, want)
		}
	}
}
