package cadence

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func days(t *testing.T, ss ...string) []time.Time {
	t.Helper()
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		out[i] = day(t, s)
	}
	return out
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		start string
		n     int
		want  string
	}{
		{"2023-01-15", 6, "2023-07-15"},
		{"2023-07-15", 6, "2024-01-15"},
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2023-03-31", -1, "2023-02-28"},
		{"2023-12-10", 1, "2024-01-10"},
		{"2023-01-10", -13, "2021-12-10"},
		{"2023-05-20", 0, "2023-05-20"},
	}
	for _, tt := range tests {
		got := AddMonths(day(t, tt.start), tt.n)
		if want := day(t, tt.want); !got.Equal(want) {
			t.Errorf("AddMonths(%s, %d) = %s, want %s", tt.start, tt.n, got.Format("2006-01-02"), tt.want)
		}
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"same day", "2023-05-01", "2023-05-01", 0},
		{"exact months", "2023-01-15", "2023-07-15", 6},
		{"day not reached", "2023-01-15", "2023-02-14", 0},
		{"month end clamp", "2023-01-31", "2023-02-28", 1},
		{"across years", "2022-01-01", "2023-08-01", 19},
		{"negative partial", "2023-08-01", "2023-07-15", 0},
		{"negative whole", "2023-08-01", "2023-06-01", -2},
		{"negative with borrow", "2023-08-15", "2023-06-20", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthsBetween(day(t, tt.from), day(t, tt.to)); got != tt.want {
				t.Errorf("MonthsBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPredictNextPurchase_InsufficientHistory(t *testing.T) {
	for _, in := range [][]time.Time{nil, {}, days(t, "2023-05-01")} {
		p := PredictNextPurchase(in)
		if p.HasHistory || p.Available() {
			t.Errorf("PredictNextPurchase(%v) reported history", in)
		}
		if !p.NextDate.IsZero() {
			t.Errorf("NextDate = %v, want zero", p.NextDate)
		}
		if p.Label != InsufficientHistoryLabel {
			t.Errorf("Label = %q, want %q", p.Label, InsufficientHistoryLabel)
		}
	}
}

func TestPredictNextPurchase_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		dates   []string
		wantAvg float64
		want    string
		label   string
	}{
		{"single six month gap", []string{"2023-01-15", "2023-07-15"}, 6, "2024-01-15", "Janeiro de 2024"},
		{"monthly buyer", []string{"2023-01-10", "2023-02-10", "2023-03-10"}, 1, "2023-04-10", "Abril de 2023"},
		{"unsorted input", []string{"2023-03-10", "2023-01-10", "2023-02-10"}, 1, "2023-04-10", "Abril de 2023"},
		{"same month floors to one", []string{"2023-05-02", "2023-05-20"}, 1, "2023-06-20", "Junho de 2023"},
		{"same day duplicates", []string{"2023-05-02", "2023-05-02", "2023-05-02"}, 1, "2023-06-02", "Junho de 2023"},
		{"half rounds to even", []string{"2023-01-01", "2023-03-01", "2023-06-01"}, 2.5, "2023-08-01", "Agosto de 2023"},
		{"clamped to month end", []string{"2022-12-31", "2023-01-31"}, 1, "2023-02-28", "Fevereiro de 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PredictNextPurchase(days(t, tt.dates...))
			if !p.Available() {
				t.Fatal("expected a prediction")
			}
			if p.AverageIntervalMonths != tt.wantAvg {
				t.Errorf("AverageIntervalMonths = %v, want %v", p.AverageIntervalMonths, tt.wantAvg)
			}
			if want := day(t, tt.want); !p.NextDate.Equal(want) {
				t.Errorf("NextDate = %s, want %s", p.NextDate.Format("2006-01-02"), tt.want)
			}
			if !strings.HasSuffix(p.Label, tt.label) {
				t.Errorf("Label = %q, want suffix %q", p.Label, tt.label)
			}
		})
	}
}

func TestPredictNextPurchase_NeverBeforeLastDate(t *testing.T) {
	inputs := [][]string{
		{"2023-01-01", "2023-01-01"},
		{"2020-02-29", "2021-02-28", "2023-11-30"},
		{"2024-12-31", "2019-06-15", "2024-12-01"},
	}
	for _, in := range inputs {
		ds := days(t, in...)
		latest := ds[0]
		for _, d := range ds {
			if d.After(latest) {
				latest = d
			}
		}
		p := PredictNextPurchase(ds)
		if p.NextDate.Before(latest) {
			t.Errorf("PredictNextPurchase(%v) = %s, earlier than latest %s", in, p.NextDate, latest)
		}
	}
}

func TestPredictNextPurchase_OrderIndependentAndPure(t *testing.T) {
	a := days(t, "2021-03-05", "2022-09-18", "2020-01-30", "2022-09-18")
	b := days(t, "2022-09-18", "2020-01-30", "2022-09-18", "2021-03-05")
	first := a[0]

	pa := PredictNextPurchase(a)
	pb := PredictNextPurchase(b)
	if pa != pb {
		t.Errorf("order changed result: %+v vs %+v", pa, pb)
	}
	if again := PredictNextPurchase(a); again != pa {
		t.Errorf("second call differs: %+v vs %+v", again, pa)
	}
	if !a[0].Equal(first) {
		t.Error("input slice was reordered")
	}
}

func TestClassifySalesOpportunity(t *testing.T) {
	zero := time.Time{}
	tests := []struct {
		name      string
		last      string
		predicted string
		total     int
		today     string
		want      Opportunity
	}{
		{"gone quiet", "2022-01-01", "", 5, "2023-08-01", GoneQuiet},
		{"hot opportunity", "2023-06-01", "2023-08-01", 2, "2023-07-15", HotOpportunity},
		{"predicted today is overdue", "2023-01-01", "2023-07-15", 2, "2023-07-15", Overdue},
		{"predicted in past", "2022-01-01", "2023-03-01", 2, "2023-07-15", Overdue},
		{"predicted earlier this month", "2023-01-01", "2023-07-10", 2, "2023-07-15", Overdue},
		{"two months out", "2023-01-01", "2023-09-20", 2, "2023-07-15", HotOpportunity},
		{"three months out", "2023-01-01", "2023-10-15", 2, "2023-07-15", PlanAhead},
		{"six months out", "2023-01-01", "2024-01-15", 2, "2023-07-15", PlanAhead},
		{"seven months out", "2023-01-01", "2024-02-15", 2, "2023-07-15", Maintenance},
		// Bands count full months: a day short of the third month is still hot.
		{"day short of three months", "2023-01-01", "2023-10-10", 2, "2023-07-15", HotOpportunity},
		{"day short of seven months", "2023-01-01", "2024-02-10", 2, "2023-07-15", PlanAhead},
		{"exactly eighteen", "2022-01-15", "", 1, "2023-07-15", GoneQuiet},
		{"check in", "2022-06-01", "", 1, "2023-07-15", CheckIn},
		{"follow up", "2023-01-01", "", 1, "2023-07-15", FollowUp},
		{"loyal", "2023-05-01", "", 4, "2023-07-15", Loyal},
		{"recent with few purchases", "2023-05-01", "", 3, "2023-07-15", RecentPurchase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predicted := zero
			if tt.predicted != "" {
				predicted = day(t, tt.predicted)
			}
			msg := ClassifySalesOpportunity(day(t, tt.last), predicted, tt.total, day(t, tt.today))
			if msg.Tag != tt.want {
				t.Errorf("tag = %s, want %s (%q)", msg.Tag, tt.want, msg.Text)
			}
			if msg.Text == "" {
				t.Error("empty message text")
			}
		})
	}
}

func TestClassifySalesOpportunity_NoHistory(t *testing.T) {
	msg := ClassifySalesOpportunity(time.Time{}, time.Time{}, 0, day(t, "2023-07-15"))
	if msg.Tag != NoHistory {
		t.Fatalf("tag = %s, want no_history", msg.Tag)
	}
	if !strings.Contains(msg.Text, "Sem histórico") {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestClassifySalesOpportunity_MessageNamesDates(t *testing.T) {
	msg := ClassifySalesOpportunity(day(t, "2023-06-01"), day(t, "2023-08-01"), 2, day(t, "2023-07-15"))
	if !strings.Contains(msg.Text, "Agosto de 2023") {
		t.Errorf("text %q does not name predicted month", msg.Text)
	}
	if !strings.Contains(msg.Text, "01/06/2023") {
		t.Errorf("text %q does not name last purchase", msg.Text)
	}

	quiet := ClassifySalesOpportunity(day(t, "2022-01-01"), time.Time{}, 5, day(t, "2023-08-01"))
	if !strings.Contains(quiet.Text, "19 meses") {
		t.Errorf("text %q does not report elapsed months", quiet.Text)
	}
}

func TestOpportunityNames(t *testing.T) {
	for tag := NoHistory; tag <= RecentPurchase; tag++ {
		if tag.String() == "unknown" {
			t.Errorf("tag %d has no name", int(tag))
		}
		if tag.Label() == "?" {
			t.Errorf("tag %d has no label", int(tag))
		}
	}
	if Opportunity(99).String() != "unknown" {
		t.Error("out of range tag should be unknown")
	}
}

func TestSalesMessageJSONRoundTrip(t *testing.T) {
	for tag := NoHistory; tag <= RecentPurchase; tag++ {
		in := SalesMessage{Tag: tag, Text: "texto"}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %s: %v", tag, err)
		}
		var out SalesMessage
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if out != in {
			t.Errorf("round trip = %+v, want %+v", out, in)
		}
	}

	msg := ClassifySalesOpportunity(day(t, "2023-06-01"), day(t, "2023-08-01"), 2, day(t, "2023-07-15"))
	data, _ := json.Marshal(msg)
	if !strings.Contains(string(data), `"tag":"hot_opportunity"`) {
		t.Errorf("json = %s", data)
	}

	var bad SalesMessage
	if err := json.Unmarshal([]byte(`{"tag":"talvez"}`), &bad); err == nil {
		t.Error("unknown tag should fail to decode")
	}
}
