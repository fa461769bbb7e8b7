// Package interfaces defines service contracts for Carteira
package interfaces

import (
	"context"
	"net/http"

	"github.com/bobmcallan/carteira/internal/models"
)

// RequestOption transforms an outbound quote request before it is sent.
// Options are the building blocks of the fetch variants (header changes,
// extra query parameters).
type RequestOption func(req *http.Request)

// QuoteClient provides access to the market-quote API
type QuoteClient interface {
	// GetQuotes retrieves quotes for several tickers in one batched request
	GetQuotes(ctx context.Context, tickers []string, opts ...RequestOption) ([]models.Quote, error)

	// GetQuote retrieves the quote of a single ticker
	GetQuote(ctx context.Context, ticker string, opts ...RequestOption) (*models.Quote, error)

	// GetDividendYields retrieves trailing dividend yields (percent) from the
	// statistics module, keyed by symbol. Tickers without a yield are absent.
	GetDividendYields(ctx context.Context, tickers []string, opts ...RequestOption) (map[string]float64, error)
}
