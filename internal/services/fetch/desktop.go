package fetch

import (
	"context"
	"strings"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
)

// DesktopStrategy fetches every ticker in one batched request.
type DesktopStrategy struct {
	client interfaces.QuoteClient
	logger *common.Logger
}

// NewDesktopStrategy creates the batched fetch strategy.
func NewDesktopStrategy(client interfaces.QuoteClient, logger *common.Logger) *DesktopStrategy {
	return &DesktopStrategy{client: client, logger: logger}
}

// Name returns the mode served by this strategy.
func (s *DesktopStrategy) Name() string { return ModeDesktop }

// FetchQuotes issues one batched call. A failed call yields an empty map;
// results with a non-positive price are dropped.
func (s *DesktopStrategy) FetchQuotes(ctx context.Context, tickers []string) interfaces.QuoteMap {
	out := make(interfaces.QuoteMap, len(tickers))
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return out
	}

	quotes, err := s.client.GetQuotes(ctx, tickers)
	if err != nil {
		s.logger.Warn().Err(err).Int("tickers", len(tickers)).Msg("Batched quote fetch failed")
		return out
	}

	for _, q := range quotes {
		if q.Price <= 0 {
			s.logger.Debug().Str("ticker", q.Symbol).Float64("price", q.Price).Msg("Dropping non-positive quote")
			continue
		}
		out[q.Symbol] = q
	}

	s.logger.Info().Int("requested", len(tickers)).Int("obtained", len(out)).Msg("Batched quote fetch complete")
	return out
}

// FetchYields issues one batched statistics call.
func (s *DesktopStrategy) FetchYields(ctx context.Context, tickers []string) interfaces.YieldMap {
	out := make(interfaces.YieldMap, len(tickers))
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return out
	}

	yields, err := s.client.GetDividendYields(ctx, tickers)
	if err != nil {
		s.logger.Warn().Err(err).Int("tickers", len(tickers)).Msg("Batched yield fetch failed")
		return out
	}
	for k, v := range yields {
		out[k] = v
	}
	return out
}

// normalizeTickers upper-cases, trims and de-duplicates, keeping first-seen order.
func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
