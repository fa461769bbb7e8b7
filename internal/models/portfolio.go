package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Portfolio kinds shown by the dashboard
const (
	KindMicroCaps = "microcaps"
	KindFIIs      = "fiis"
	KindETFs      = "etfs"
)

// Recommendation bias (viés)
const (
	BiasBuy  = "Compra"
	BiasWait = "Aguardar"
)

// Asset fetch status
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// portfolioNamePattern is the shape of names addressable over the REST API.
var portfolioNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidPortfolioName reports whether name, once lower-cased, is a valid portfolio name.
func ValidPortfolioName(name string) bool {
	return portfolioNamePattern.MatchString(strings.ToLower(strings.TrimSpace(name)))
}

var entryDateLayouts = []string{
	"02/01/2006", // dd/mm/yyyy
	"2006-01-02",
}

// ParseEntryDate parses an entry date given as dd/mm/yyyy or yyyy-mm-dd.
// The result is midnight UTC of that calendar day.
func ParseEntryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range entryDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised entry date %q", s)
}

// AssetSeed is the static, locally known part of a portfolio position.
// EntryDate is kept as entered ("dd/mm/yyyy" or "yyyy-mm-dd").
type AssetSeed struct {
	Ticker      string  `json:"ticker" toml:"ticker"`
	Sector      string  `json:"sector,omitempty" toml:"sector"`
	EntryDate   string  `json:"entry_date" toml:"entry_date"`
	EntryPrice  float64 `json:"entry_price" toml:"entry_price"`
	TargetPrice float64 `json:"target_price" toml:"target_price"`
}

// Provento is one cash distribution (dividend, JCP, FII rendimento) paid per share.
type Provento struct {
	Ticker string    `json:"ticker" toml:"ticker"`
	Date   time.Time `json:"date" toml:"date"`
	Amount float64   `json:"amount" toml:"amount"`
	Type   string    `json:"type,omitempty" toml:"type"`
}

// PortfolioDefinition is a named portfolio: its static seeds plus the
// distributions ledger used to compute dividend returns.
type PortfolioDefinition struct {
	Name      string      `json:"name" toml:"name"`
	Kind      string      `json:"kind" toml:"kind"`
	Assets    []AssetSeed `json:"assets" toml:"assets"`
	Proventos []Provento  `json:"proventos,omitempty" toml:"proventos"`
}

// Tickers returns the seed tickers in portfolio order.
func (p *PortfolioDefinition) Tickers() []string {
	out := make([]string, 0, len(p.Assets))
	for _, a := range p.Assets {
		out = append(out, a.Ticker)
	}
	return out
}

// Asset (ativo) is a seed merged with the latest quote and yield.
// Performance is always PriceReturnPct + DividendReturnPct.
type Asset struct {
	Ticker            string  `json:"ticker"`
	Name              string  `json:"name,omitempty"`
	Sector            string  `json:"sector,omitempty"`
	EntryDate         string  `json:"entry_date"`
	EntryPrice        float64 `json:"entry_price"`
	TargetPrice       float64 `json:"target_price"`
	CurrentPrice      float64 `json:"current_price"`
	FormattedPrice    string  `json:"formatted_price"`
	PriceReturnPct    float64 `json:"price_return_pct"`
	DividendReturnPct float64 `json:"dividend_return_pct"`
	Performance       float64 `json:"performance"`
	Proventos         float64 `json:"proventos"`
	DividendYield     string  `json:"dividend_yield"`
	DividendYieldPct  float64 `json:"dividend_yield_pct"`
	HasYield          bool    `json:"has_yield"`
	Bias              string  `json:"bias"`
	Status            string  `json:"status"`
	Degraded          bool    `json:"degraded"`
}

// PortfolioAggregate summarises a merged asset list. Positives, Negatives
// and Neutral partition TotalAssets.
type PortfolioAggregate struct {
	TotalAssets    int     `json:"total_assets"`
	TotalReturnPct float64 `json:"total_return_pct"`
	AverageYield   float64 `json:"average_yield"`
	Positives      int     `json:"positives"`
	Negatives      int     `json:"negatives"`
	Neutral        int     `json:"neutral"`
	Degraded       int     `json:"degraded"`
}

// PortfolioSnapshot is the outcome of one refresh cycle.
type PortfolioSnapshot struct {
	Portfolio       string             `json:"portfolio"`
	Kind            string             `json:"kind"`
	Mode            string             `json:"mode"` // "desktop" or "mobile"
	Assets          []Asset            `json:"assets"`
	Aggregate       PortfolioAggregate `json:"aggregate"`
	QuotesRequested int                `json:"quotes_requested"`
	QuotesObtained  int                `json:"quotes_obtained"`
	Advisory        string             `json:"advisory,omitempty"`
	RefreshedAt     time.Time          `json:"refreshed_at"`
}
