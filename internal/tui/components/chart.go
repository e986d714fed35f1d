package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders counts as a one-line block chart.
func Sparkline(values []int, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := 1
	for _, v := range values {
		peak = max(peak, v)
	}

	var buf strings.Builder
	for _, v := range values {
		idx := v * (len(sparkBlocks) - 1) / peak
		buf.WriteRune(sparkBlocks[min(max(idx, 0), len(sparkBlocks)-1)])
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Background(theme.Active.Surface).
		Render(buf.String())
}

// BarChart renders one vertical bar per value with a Y axis and the labels
// under the bars. Too narrow or too short an area degrades to a sparkline.
func BarChart(values []int, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	peak := 1
	for _, v := range values {
		peak = max(peak, v)
	}
	step := tickStep(float64(peak), height/2)
	ceiling := math.Ceil(float64(peak)/step) * step
	intervals := max(int(math.Round(ceiling/step)), 1)
	rowsPerTick := max(height/intervals, 1)
	chartH := rowsPerTick * intervals

	yLabelW := max(len(formatAxis(ceiling))+1, 4)
	n := len(values)
	barW := min(max((width-yLabelW-1-(n-1))/n, 1), 6)

	surface := lipgloss.NewStyle().Background(t.Surface)
	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)

		label := ""
		if row%rowsPerTick == 0 {
			label = formatAxis(step * float64(row/rowsPerTick))
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", yLabelW, label)))

		for i, v := range values {
			if i > 0 {
				b.WriteString(surface.Render(" "))
			}
			fv := float64(v)
			switch {
			case fv >= top:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case fv > bottom:
				idx := int((fv - bottom) / (top - bottom) * float64(len(sparkBlocks)-1))
				b.WriteString(bar.Render(strings.Repeat(string(sparkBlocks[idx]), barW)))
			default:
				b.WriteString(surface.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	axisLen := n*barW + n - 1
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		line := []rune(strings.Repeat(" ", axisLen))
		lastEnd := -1
		for i, lbl := range labels {
			pos := i * (barW + 1)
			r := []rune(lbl)
			if pos <= lastEnd || pos+len(r) > axisLen {
				continue
			}
			copy(line[pos:], r)
			lastEnd = pos + len(r)
		}
		b.WriteString("\n")
		b.WriteString(surface.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axis.Render(strings.TrimRight(string(line), " ")))
	}
	return b.String()
}

// tickStep picks a 1/2/5 interval so the axis has at most maxTicks ticks.
func tickStep(peak float64, maxTicks int) float64 {
	maxTicks = max(maxTicks, 2)
	if peak <= float64(maxTicks) {
		return 1
	}
	rough := peak / float64(maxTicks)
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, m := range []float64{1, 2, 5, 10} {
		if base*m >= rough {
			return base * m
		}
	}
	return base * 10
}

func formatAxis(v float64) string {
	if v >= 1000 {
		if v == math.Trunc(v/1000)*1000 {
			return fmt.Sprintf("%.0fmil", v/1000)
		}
		return strings.Replace(fmt.Sprintf("%.1fmil", v/1000), ".", ",", 1)
	}
	return fmt.Sprintf("%.0f", v)
}
