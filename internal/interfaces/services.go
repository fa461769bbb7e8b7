package interfaces

import (
	"context"

	"github.com/bobmcallan/carteira/internal/models"
)

// QuoteMap holds quotes keyed by ticker symbol. A missing ticker means no quote.
type QuoteMap map[string]models.Quote

// YieldMap holds dividend yields (percent) keyed by ticker symbol.
type YieldMap map[string]float64

// FetchStrategy fetches quotes and yields for a ticker list. Failures never
// surface as errors: tickers that could not be fetched are simply absent.
type FetchStrategy interface {
	Name() string
	FetchQuotes(ctx context.Context, tickers []string) QuoteMap
	FetchYields(ctx context.Context, tickers []string) YieldMap
}

// StrategySelector picks the fetch strategy for a client class
type StrategySelector interface {
	Select(mobile bool) FetchStrategy
}

// PortfolioService refreshes and serves portfolio snapshots
type PortfolioService interface {
	// ListPortfolios returns the known portfolio definitions
	ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error)

	// Refresh runs one fetch/merge/aggregate cycle and stores the snapshot.
	// Concurrent refreshes of the same portfolio and mode share one cycle.
	Refresh(ctx context.Context, name string, mobile bool) (*models.PortfolioSnapshot, error)

	// GetSnapshot returns the last stored snapshot
	GetSnapshot(ctx context.Context, name string) (*models.PortfolioSnapshot, error)

	// RefreshAll refreshes every stored portfolio in desktop mode and
	// returns how many succeeded
	RefreshAll(ctx context.Context) (int, error)
}

// MarketService provides benchmark index snapshots and single quotes
type MarketService interface {
	// GetIndices returns one snapshot per tracked index, never failing
	GetIndices(ctx context.Context) []models.IndexSnapshot

	// GetQuote returns a live quote for one ticker
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)
}
