package portfolio

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/carteira/internal/models"
)

// SumProventos totals the per-share distributions paid for ticker on or
// after since. Dates are compared by calendar day.
func SumProventos(ledger []models.Provento, ticker string, since time.Time) float64 {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	from := calendarDay(since)

	total := decimal.Zero
	for _, p := range ledger {
		if strings.ToUpper(p.Ticker) != ticker {
			continue
		}
		if calendarDay(p.Date).Before(from) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	return total.InexactFloat64()
}

// DividendReturnPct expresses distributions as a percentage of the entry price.
func DividendReturnPct(proventos, entryPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	return decimal.NewFromFloat(proventos).
		Div(decimal.NewFromFloat(entryPrice)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
}

// calendarDay truncates t to midnight UTC of its own calendar day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
