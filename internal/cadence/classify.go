package cadence

import (
	"fmt"
	"time"
)

// Opportunity tags a client's sales urgency.
type Opportunity int

const (
	NoHistory Opportunity = iota
	Overdue
	HotOpportunity
	PlanAhead
	Maintenance
	GoneQuiet
	CheckIn
	FollowUp
	Loyal
	RecentPurchase
)

var opportunityNames = map[Opportunity]string{
	NoHistory:      "no_history",
	Overdue:        "overdue",
	HotOpportunity: "hot_opportunity",
	PlanAhead:      "plan_ahead",
	Maintenance:    "maintenance",
	GoneQuiet:      "gone_quiet",
	CheckIn:        "check_in",
	FollowUp:       "follow_up",
	Loyal:          "loyal",
	RecentPurchase: "recent_purchase",
}

var opportunityLabels = map[Opportunity]string{
	NoHistory:      "Sem histórico",
	Overdue:        "Atenção",
	HotOpportunity: "Oportunidade quente",
	PlanAhead:      "Planeje-se",
	Maintenance:    "Relacionamento",
	GoneQuiet:      "Alerta de sumiço",
	CheckIn:        "Sumido",
	FollowUp:       "Acompanhar",
	Loyal:          "Cliente fiel",
	RecentPurchase: "Compra recente",
}

// String returns the stable machine name used in JSON and exports.
func (o Opportunity) String() string {
	if s, ok := opportunityNames[o]; ok {
		return s
	}
	return "unknown"
}

// Label returns the short Portuguese badge for the tag.
func (o Opportunity) Label() string {
	if s, ok := opportunityLabels[o]; ok {
		return s
	}
	return "?"
}

// MarshalText lets the tag travel as its machine name.
func (o Opportunity) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses a machine name written by MarshalText.
func (o *Opportunity) UnmarshalText(b []byte) error {
	name := string(b)
	for tag, n := range opportunityNames {
		if n == name {
			*o = tag
			return nil
		}
	}
	return fmt.Errorf("unknown opportunity %q", name)
}

// Urgent reports whether the tag asks for contact right away.
func (o Opportunity) Urgent() bool {
	return o == Overdue || o == HotOpportunity || o == GoneQuiet
}

// SalesMessage is the classification plus the text shown to the seller.
type SalesMessage struct {
	Tag  Opportunity `json:"tag"`
	Text string      `json:"text"`
}

// ClassifySalesOpportunity turns a client's recency and projected next
// purchase into a message. A zero last means the client has no dated
// purchase; a zero predicted means no projection was possible. today must be
// the same calendar date used for the rest of the report.
func ClassifySalesOpportunity(last, predicted time.Time, total int, today time.Time) SalesMessage {
	if last.IsZero() {
		return SalesMessage{
			Tag:  NoHistory,
			Text: "Primeira vez? Sem histórico de compras registrado para este cliente.",
		}
	}

	today = Date(today)
	lastStr := last.Format("02/01/2006")

	if !predicted.IsZero() {
		predicted = Date(predicted)
		desc := MonthYear(predicted)

		// A projection due today counts as already due.
		if !predicted.After(today) {
			return SalesMessage{
				Tag:  Overdue,
				Text: fmt.Sprintf("Atenção! A compra prevista para %s pode estar próxima ou já passou! Última compra em %s.", desc, lastStr),
			}
		}

		until := MonthsBetween(today, predicted)
		switch {
		case until <= 2:
			return SalesMessage{
				Tag:  HotOpportunity,
				Text: fmt.Sprintf("Oportunidade quente! Próxima compra prevista para %s. Última compra em %s.", desc, lastStr),
			}
		case until <= 6:
			return SalesMessage{
				Tag:  PlanAhead,
				Text: fmt.Sprintf("Planeje-se! Próxima compra prevista para %s. Última compra em %s.", desc, lastStr),
			}
		default:
			return SalesMessage{
				Tag:  Maintenance,
				Text: fmt.Sprintf("Compra prevista para %s. Mantenha o relacionamento. Última compra em %s.", desc, lastStr),
			}
		}
	}

	since := MonthsBetween(last, today)
	switch {
	case since >= 18:
		return SalesMessage{
			Tag:  GoneQuiet,
			Text: fmt.Sprintf("Alerta de sumiço! Faz %d meses desde a última compra (%s). Hora de reativar.", since, lastStr),
		}
	case since >= 12:
		return SalesMessage{
			Tag:  CheckIn,
			Text: fmt.Sprintf("E aí, sumido! Faz %d meses desde a última compra (%s).", since, lastStr),
		}
	case since >= 6:
		return SalesMessage{
			Tag:  FollowUp,
			Text: fmt.Sprintf("Já se passaram %d meses... Última compra em %s.", since, lastStr),
		}
	case total > 3:
		return SalesMessage{
			Tag:  Loyal,
			Text: fmt.Sprintf("Cliente fiel! Última compra em %s.", lastStr),
		}
	default:
		return SalesMessage{
			Tag:  RecentPurchase,
			Text: fmt.Sprintf("Compra recente (%s).", lastStr),
		}
	}
}
