// Package market provides benchmark index snapshots with a fallback chain:
// live quote, then a time-of-day simulation, then an emergency constant.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// Service implements MarketService
type Service struct {
	client   interfaces.QuoteClient
	fallback *FallbackConfig
	config   common.MarketConfig
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new market service. A nil fallback uses the built-in data.
func NewService(client interfaces.QuoteClient, fallback *FallbackConfig, config common.MarketConfig, logger *common.Logger) *Service {
	if fallback == nil {
		fallback = DefaultFallbackConfig()
	}
	return &Service{
		client:   client,
		fallback: fallback,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// FallbackVersion returns the version of the active fallback data.
func (s *Service) FallbackVersion() string {
	return s.fallback.Version
}

// GetIndices returns one snapshot per tracked index, in name order. Indices
// are fetched concurrently; each independently falls back when its live
// fetch fails.
func (s *Service) GetIndices(ctx context.Context) []models.IndexSnapshot {
	names := s.fallback.Names()
	out := make([]models.IndexSnapshot, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			out[i] = s.indexSnapshot(ctx, name, s.fallback.Indices[name])
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *Service) indexSnapshot(ctx context.Context, name string, fb IndexFallback) models.IndexSnapshot {
	now := s.now()

	if s.config.LiveEnabled && s.client != nil {
		snap, err := s.fetchLive(ctx, name, fb)
		if err == nil {
			return snap
		}
		s.logger.Warn().Err(err).Str("index", name).Str("symbol", fb.Symbol).Msg("Live index fetch failed, using fallback")
	}

	if s.config.SimulationEnabled && fb.BaseValue > 0 {
		value, change, changePct := simulate(fb, now)
		return newSnapshot(name, fb.Symbol, value, change, changePct, models.SourceFallback, now)
	}

	s.logger.Warn().Str("index", name).Str("version", s.fallback.Version).Msg("Using emergency index value")
	return newSnapshot(name, fb.Symbol, fb.EmergencyValue, 0, 0, models.SourceEmergency, now)
}

func (s *Service) fetchLive(ctx context.Context, name string, fb IndexFallback) (models.IndexSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GetTimeout())
	defer cancel()

	q, err := s.client.GetQuote(ctx, fb.Symbol)
	if err != nil {
		return models.IndexSnapshot{}, err
	}
	if q.Price <= 0 {
		return models.IndexSnapshot{}, fmt.Errorf("non-positive price %v for %s", q.Price, fb.Symbol)
	}

	scale := decimal.NewFromFloat(fb.Scale)
	value := decimal.NewFromFloat(q.Price).Mul(scale).Round(2).InexactFloat64()
	change := decimal.NewFromFloat(q.Change).Mul(scale).Round(2).InexactFloat64()

	return newSnapshot(name, fb.Symbol, value, change, q.ChangePct, models.SourceAPI, s.now()), nil
}

func newSnapshot(name, symbol string, value, change, changePct float64, source string, ts time.Time) models.IndexSnapshot {
	return models.IndexSnapshot{
		Name:           name,
		Symbol:         symbol,
		Value:          value,
		FormattedValue: common.FormatNumber(value, 0),
		Change:         change,
		ChangePct:      changePct,
		Trend:          models.TrendOf(change),
		Source:         source,
		Timestamp:      ts,
	}
}

// GetQuote returns a live quote for a single ticker.
func (s *Service) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}

	q, err := s.client.GetQuote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", ticker, err)
	}
	return q, nil
}
