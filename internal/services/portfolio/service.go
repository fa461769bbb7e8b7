// Package portfolio merges portfolio seeds with live market data and keeps
// the latest snapshot per portfolio.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
	"github.com/bobmcallan/carteira/internal/services/fetch"
)

// Service implements PortfolioService
type Service struct {
	storage  interfaces.StorageManager
	selector interfaces.StrategySelector
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
	inflight singleflight.Group
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, selector interfaces.StrategySelector, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		selector: selector,
		logger:   logger,
		now:      time.Now,
	}
}

// ListPortfolios returns the stored portfolio definitions
func (s *Service) ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error) {
	return s.storage.PortfolioStore().ListPortfolios(ctx)
}

// GetSnapshot returns the last stored snapshot for a portfolio
func (s *Service) GetSnapshot(ctx context.Context, name string) (*models.PortfolioSnapshot, error) {
	return s.storage.SnapshotStore().GetSnapshot(ctx, name)
}

// Refresh fetches, merges and aggregates one portfolio and stores the result.
// Callers refreshing the same portfolio in the same mode share one cycle;
// a caller whose context ends stops waiting without cancelling the others.
func (s *Service) Refresh(ctx context.Context, name string, mobile bool) (*models.PortfolioSnapshot, error) {
	mode := fetch.ModeName(mobile)
	key := name + "|" + mode

	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), name, mobile)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("portfolio", name).Str("mode", mode).Msg("Joined in-flight refresh")
		}
		return res.Val.(*models.PortfolioSnapshot), nil
	}
}

func (s *Service) refresh(ctx context.Context, name string, mobile bool) (*models.PortfolioSnapshot, error) {
	start := s.now()

	def, err := s.storage.PortfolioStore().GetPortfolio(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio '%s': %w", name, err)
	}

	strategy := s.selector.Select(mobile)
	tickers := def.Tickers()

	s.logger.Info().
		Str("portfolio", name).
		Str("mode", strategy.Name()).
		Int("tickers", len(tickers)).
		Msg("Refreshing portfolio")

	quotes := strategy.FetchQuotes(ctx, tickers)
	yields := strategy.FetchYields(ctx, tickers)

	merged := Merge(def.Assets, quotes, yields, def.Proventos)

	snapshot := &models.PortfolioSnapshot{
		Portfolio:       def.Name,
		Kind:            def.Kind,
		Mode:            strategy.Name(),
		Assets:          merged.Assets,
		Aggregate:       Aggregate(merged.Assets),
		QuotesRequested: merged.Requested,
		QuotesObtained:  merged.Obtained,
		Advisory:        merged.Advisory,
		RefreshedAt:     s.now(),
	}

	if err := s.storage.SnapshotStore().SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot for '%s': %w", name, err)
	}

	event := s.logger.Info()
	if merged.Advisory != "" {
		event = s.logger.Warn().Str("advisory", merged.Advisory)
	}
	event.
		Str("portfolio", name).
		Str("mode", snapshot.Mode).
		Int("obtained", merged.Obtained).
		Int("requested", merged.Requested).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Portfolio refreshed")

	return snapshot, nil
}

// RefreshAll refreshes every stored portfolio in desktop mode. Individual
// failures are logged; the count of successful refreshes is returned.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	defs, err := s.ListPortfolios(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list portfolios: %w", err)
	}

	refreshed := 0
	for _, def := range defs {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if _, err := s.Refresh(ctx, def.Name, false); err != nil {
			s.logger.Warn().Err(err).Str("portfolio", def.Name).Msg("Scheduled refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
