package portfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// buyThreshold: an asset is a buy while its price is at most 95% of target.
var buyThreshold = decimal.RequireFromString("0.95")

// NoYield is the display value for an unknown dividend yield.
const NoYield = "-"

// MergeResult is the outcome of merging seeds with fetched market data.
type MergeResult struct {
	Assets    []models.Asset
	Requested int
	Obtained  int
	Advisory  string
}

// Merge combines seeds with quotes, yields and the proventos ledger. It never
// fails: seeds without a quote fall back to their entry price and are marked
// degraded. Output order follows the seed order.
func Merge(seeds []models.AssetSeed, quotes interfaces.QuoteMap, yields interfaces.YieldMap, ledger []models.Provento) MergeResult {
	res := MergeResult{
		Assets:    make([]models.Asset, 0, len(seeds)),
		Requested: len(seeds),
	}

	for _, seed := range seeds {
		ticker := strings.ToUpper(strings.TrimSpace(seed.Ticker))
		q, ok := quotes[ticker]
		if ok && q.Price <= 0 {
			ok = false
		}
		if ok {
			res.Obtained++
		}

		var quote *models.Quote
		if ok {
			quote = &q
		}
		dy, hasYield := yields[ticker]
		res.Assets = append(res.Assets, mergeAsset(seed, ticker, quote, dy, hasYield, ledger))
	}

	res.Advisory = Advisory(res.Obtained, res.Requested)
	return res
}

// Advisory returns "N of M quotes obtained" when fewer than half of the
// requested quotes arrived, and "" otherwise.
func Advisory(obtained, requested int) string {
	if requested == 0 || obtained*2 >= requested {
		return ""
	}
	return fmt.Sprintf("%d of %d quotes obtained", obtained, requested)
}

func mergeAsset(seed models.AssetSeed, ticker string, quote *models.Quote, dy float64, hasYield bool, ledger []models.Provento) models.Asset {
	a := models.Asset{
		Ticker:        ticker,
		Sector:        seed.Sector,
		EntryDate:     seed.EntryDate,
		EntryPrice:    seed.EntryPrice,
		TargetPrice:   seed.TargetPrice,
		CurrentPrice:  seed.EntryPrice,
		Status:        models.StatusError,
		Degraded:      true,
		DividendYield: NoYield,
	}

	if quote != nil {
		a.Name = quote.Name
		a.CurrentPrice = quote.Price
		a.PriceReturnPct = PriceReturnPct(quote.Price, seed.EntryPrice)
		a.Status = models.StatusSuccess
		a.Degraded = false
	}

	if entry, err := models.ParseEntryDate(seed.EntryDate); err == nil {
		a.Proventos = SumProventos(ledger, ticker, entry)
		a.DividendReturnPct = DividendReturnPct(a.Proventos, seed.EntryPrice)
	}

	a.Performance = a.PriceReturnPct + a.DividendReturnPct
	a.Bias = Bias(a.CurrentPrice, seed.TargetPrice)
	a.FormattedPrice = common.FormatBRL(a.CurrentPrice)

	if hasYield {
		a.HasYield = true
		a.DividendYieldPct = dy
		a.DividendYield = common.FormatPercent(dy)
	}
	return a
}

// PriceReturnPct is (current - entry) / entry * 100, or 0 without an entry price.
func PriceReturnPct(current, entry float64) float64 {
	if entry <= 0 {
		return 0
	}
	c := decimal.NewFromFloat(current)
	e := decimal.NewFromFloat(entry)
	return c.Sub(e).Div(e).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Bias is "Compra" when current <= 95% of target, "Aguardar" otherwise.
// The comparison is exact in decimal so boundary prices resolve to a buy.
func Bias(current, target float64) string {
	limit := decimal.NewFromFloat(target).Mul(buyThreshold)
	if decimal.NewFromFloat(current).LessThanOrEqual(limit) {
		return models.BiasBuy
	}
	return models.BiasWait
}
