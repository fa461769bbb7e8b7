package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// MobileStrategy fetches tickers one at a time through a throttled queue,
// trying each request variant in order until one succeeds.
type MobileStrategy struct {
	client     interfaces.QuoteClient
	variants   []Variant
	queue      *Queue
	newBackOff func() backoff.BackOff
	logger     *common.Logger
}

// MobileOption configures a MobileStrategy
type MobileOption func(*MobileStrategy)

// WithVariants replaces the variant list.
func WithVariants(variants []Variant) MobileOption {
	return func(s *MobileStrategy) {
		s.variants = variants
	}
}

// WithQueue replaces the task queue.
func WithQueue(q *Queue) MobileOption {
	return func(s *MobileStrategy) {
		s.queue = q
	}
}

// WithBackOff sets the policy consulted between variants. The factory is
// called once per ticker.
func WithBackOff(newBackOff func() backoff.BackOff) MobileOption {
	return func(s *MobileStrategy) {
		s.newBackOff = newBackOff
	}
}

// NewMobileStrategy creates the per-ticker fetch strategy from fetch config.
func NewMobileStrategy(client interfaces.QuoteClient, cfg common.FetchConfig, logger *common.Logger, opts ...MobileOption) *MobileStrategy {
	initial := cfg.GetBackoffInitial()
	maxInterval := cfg.GetBackoffMax()

	s := &MobileStrategy{
		client:   client,
		variants: DefaultVariants(cfg.UserAgent),
		queue:    NewQueue(cfg.Workers, cfg.GetTickerDelay(), logger),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = maxInterval
			b.MaxElapsedTime = 0
			return b
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the mode served by this strategy.
func (s *MobileStrategy) Name() string { return ModeMobile }

// Variants returns the variant list in attempt order.
func (s *MobileStrategy) Variants() []Variant { return s.variants }

// FetchQuotes fetches each ticker through the variant chain. Tickers whose
// variants all fail are absent from the result.
func (s *MobileStrategy) FetchQuotes(ctx context.Context, tickers []string) interfaces.QuoteMap {
	tickers = normalizeTickers(tickers)
	results := make([]*models.Quote, len(tickers))

	err := s.queue.Run(ctx, len(tickers), func(ctx context.Context, i int) {
		ticker := tickers[i]
		s.tryVariants(ctx, ticker, "quote", func(ctx context.Context, v Variant) bool {
			q, err := s.client.GetQuote(ctx, ticker, v.Options...)
			if err != nil {
				s.logger.Debug().Err(err).Str("ticker", ticker).Str("variant", v.Name).Msg("Quote variant failed")
				return false
			}
			if q == nil || q.Price <= 0 {
				s.logger.Debug().Str("ticker", ticker).Str("variant", v.Name).Msg("Quote variant returned no usable price")
				return false
			}
			results[i] = q
			return true
		})
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Per-ticker quote fetch interrupted")
	}

	out := make(interfaces.QuoteMap, len(tickers))
	for i, q := range results {
		if q != nil {
			out[tickers[i]] = *q
		}
	}

	s.logger.Info().Int("requested", len(tickers)).Int("obtained", len(out)).Msg("Per-ticker quote fetch complete")
	return out
}

// FetchYields fetches each ticker's dividend yield through the variant chain.
func (s *MobileStrategy) FetchYields(ctx context.Context, tickers []string) interfaces.YieldMap {
	tickers = normalizeTickers(tickers)
	results := make([]*float64, len(tickers))

	err := s.queue.Run(ctx, len(tickers), func(ctx context.Context, i int) {
		ticker := tickers[i]
		s.tryVariants(ctx, ticker, "yield", func(ctx context.Context, v Variant) bool {
			yields, err := s.client.GetDividendYields(ctx, []string{ticker}, v.Options...)
			if err != nil {
				s.logger.Debug().Err(err).Str("ticker", ticker).Str("variant", v.Name).Msg("Yield variant failed")
				return false
			}
			dy, ok := yields[ticker]
			if !ok {
				return false
			}
			results[i] = &dy
			return true
		})
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Per-ticker yield fetch interrupted")
	}

	out := make(interfaces.YieldMap, len(tickers))
	for i, dy := range results {
		if dy != nil {
			out[tickers[i]] = *dy
		}
	}
	return out
}

// tryVariants runs attempt for each variant until one reports success,
// waiting between attempts as the backoff policy dictates.
func (s *MobileStrategy) tryVariants(ctx context.Context, ticker, what string, attempt func(context.Context, Variant) bool) bool {
	b := s.newBackOff()
	b.Reset()

	for i, v := range s.variants {
		if i > 0 {
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return false
			}
		}
		if attempt(ctx, v) {
			if i > 0 {
				s.logger.Debug().Str("ticker", ticker).Str("variant", v.Name).Str("kind", what).Msg("Variant succeeded after retries")
			}
			return true
		}
	}

	s.logger.Warn().Str("ticker", ticker).Str("kind", what).Int("variants", len(s.variants)).Msg("All request variants failed")
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
