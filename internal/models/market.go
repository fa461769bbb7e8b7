// Package models defines data structures for Carteira
package models

import "time"

// Quote (cotação) is a live price snapshot for one ticker. Quotes live for a
// single refresh cycle and are never persisted on their own.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    int64     `json:"volume"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Index snapshot source tags
const (
	SourceAPI       = "API"
	SourceFallback  = "fallback"
	SourceEmergency = "emergency"
)

// Trend directions
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// IndexSnapshot is a display-ready value of a benchmark index (IBOV, SMLL).
// Source tells whether the value is live or fabricated by the fallback chain.
type IndexSnapshot struct {
	Name           string    `json:"name"`
	Symbol         string    `json:"symbol"`
	Value          float64   `json:"value"`
	FormattedValue string    `json:"formatted_value"`
	Change         float64   `json:"change"`
	ChangePct      float64   `json:"change_pct"`
	Trend          string    `json:"trend"`
	Source         string    `json:"source"`
	Timestamp      time.Time `json:"timestamp"`
}

// TrendOf maps a change to a trend direction.
func TrendOf(change float64) string {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	default:
		return TrendFlat
	}
}
