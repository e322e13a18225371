package fomo

import (
	"fmt"
	"time"
)

// SignalKind — тип отображаемого сигнала.
type SignalKind string

const (
	SignalLowStock          SignalKind = "low_stock"
	SignalFinalRun          SignalKind = "final_run"
	SignalRecentInterest    SignalKind = "recent_interest"
	SignalConcurrentViewers SignalKind = "concurrent_viewers"
)

// minViewersShown — ниже этого порога число зрителей не показывается.
const minViewersShown = 8

// Signal — один сигнал, готовый к показу.
type Signal struct {
	Kind  SignalKind `json:"kind"`
	Value int        `json:"value,omitempty"`
	At    *time.Time `json:"at,omitempty"`
	Text  string     `json:"text"`
}

// Signals — не больше одного сигнала срочности и одного социального доказательства.
type Signals struct {
	Urgency *Signal `json:"urgency,omitempty"`
	Proof   *Signal `json:"proof,omitempty"`
}

// PickSignals выбирает сигналы по приоритету:
// срочность — остаток (<=5), иначе дата финального запуска;
// доказательство — недавний интерес (>0), иначе зрители онлайн (>=8).
func PickSignals(f CatalogFomo) Signals {
	var out Signals

	switch {
	case f.LowStockSets != nil && *f.LowStockSets <= maxBelievableLow:
		n := *f.LowStockSets
		out.Urgency = &Signal{Kind: SignalLowStock, Value: n, Text: lowStockText(n)}
	case f.FinalRunDate != nil:
		at := *f.FinalRunDate
		out.Urgency = &Signal{
			Kind: SignalFinalRun,
			At:   &at,
			Text: "Final production run closes " + FormatIST(at, FormatOptions{Weekday: true}),
		}
	}

	switch {
	case f.RecentInterest != nil && *f.RecentInterest > 0:
		n := *f.RecentInterest
		out.Proof = &Signal{Kind: SignalRecentInterest, Value: n, Text: fmt.Sprintf("%d retailers enquired this week", n)}
	case f.ConcurrentViewers != nil && *f.ConcurrentViewers >= minViewersShown:
		n := *f.ConcurrentViewers
		out.Proof = &Signal{Kind: SignalConcurrentViewers, Value: n, Text: fmt.Sprintf("%d buyers viewing right now", n)}
	}

	return out
}

func lowStockText(n int) string {
	switch n {
	case 0:
		return "Sold out in this run"
	case 1:
		return "Only 1 set left"
	default:
		return fmt.Sprintf("Only %d sets left", n)
	}
}
