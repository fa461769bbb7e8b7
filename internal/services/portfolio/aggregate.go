package portfolio

import (
	"github.com/bobmcallan/carteira/internal/models"
)

// Aggregate summarises a merged asset list. An empty list yields zeros.
func Aggregate(assets []models.Asset) models.PortfolioAggregate {
	agg := models.PortfolioAggregate{TotalAssets: len(assets)}
	if len(assets) == 0 {
		return agg
	}

	var perfSum, yieldSum float64
	var withYield int
	for _, a := range assets {
		perfSum += a.Performance
		switch {
		case a.Performance > 0:
			agg.Positives++
		case a.Performance < 0:
			agg.Negatives++
		default:
			agg.Neutral++
		}
		if a.HasYield {
			yieldSum += a.DividendYieldPct
			withYield++
		}
		if a.Degraded {
			agg.Degraded++
		}
	}

	agg.TotalReturnPct = perfSum / float64(len(assets))
	if withYield > 0 {
		agg.AverageYield = yieldSum / float64(withYield)
	}
	return agg
}
