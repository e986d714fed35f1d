package cadence

import (
	"math"
	"sort"
	"time"
)

// InsufficientHistoryLabel is shown when fewer than two dated purchases exist.
const InsufficientHistoryLabel = "Previsão não disponível (histórico insuficiente)."

// minGapMonths is the weight given to two purchases less than a whole month
// apart. Several vehicles registered in the same month would otherwise pull
// the average toward zero.
const minGapMonths = 1

// Prediction is the projected next purchase for one client.
type Prediction struct {
	// HasHistory is false when there were fewer than two dated purchases.
	HasHistory bool `json:"has_history"`
	// AverageIntervalMonths is the unrounded mean gap between purchases.
	AverageIntervalMonths float64 `json:"average_interval_months"`
	// IntervalMonths is the rounded gap actually added to the last purchase.
	IntervalMonths int `json:"interval_months"`
	// NextDate is zero when HasHistory is false.
	NextDate time.Time `json:"next_date,omitzero"`
	Label    string    `json:"label"`
}

// Available reports whether a next purchase date was projected.
func (p Prediction) Available() bool {
	return p.HasHistory && !p.NextDate.IsZero()
}

// PredictNextPurchase projects the next purchase from a client's purchase
// dates. Order does not matter and duplicates count as separate purchases.
// The input slice is left untouched.
func PredictNextPurchase(dates []time.Time) Prediction {
	if len(dates) < 2 {
		return Prediction{Label: InsufficientHistoryLabel}
	}

	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = Date(d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := intervals(sorted)
	sum := 0
	for _, g := range gaps {
		sum += g
	}
	avg := float64(sum) / float64(len(gaps))

	// Half-way averages round to even: 2.5 months projects 2.
	months := int(math.RoundToEven(avg))
	next := AddMonths(sorted[len(sorted)-1], months)

	return Prediction{
		HasHistory:            true,
		AverageIntervalMonths: avg,
		IntervalMonths:        months,
		NextDate:              next,
		Label:                 "Próxima compra provável em: " + MonthYear(next),
	}
}

// intervals returns the whole-month gaps between consecutive sorted dates.
func intervals(sorted []time.Time) []int {
	gaps := make([]int, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		g := MonthsBetween(sorted[i-1], sorted[i])
		if g < minGapMonths {
			g = minGapMonths
		}
		gaps = append(gaps, g)
	}
	return gaps
}
