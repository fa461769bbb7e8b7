package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
)

// StartScheduler launches the background refresh goroutine. It is a no-op
// when the scheduler is disabled or already running.
func (a *App) StartScheduler() {
	if !a.Config.Scheduler.Enabled || a.schedulerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.schedulerCancel = cancel
	a.schedulerDone = done

	interval := a.Config.Scheduler.GetInterval()
	a.Logger.Info().Dur("interval", interval).Msg("Refresh scheduler: started")

	go func() {
		defer close(done)
		startRefreshScheduler(ctx, a.PortfolioService, a.Logger, interval)
	}()
}

// StopScheduler cancels the background refresh and waits for it to exit.
func (a *App) StopScheduler() {
	if a.schedulerCancel == nil {
		return
	}
	a.schedulerCancel()
	<-a.schedulerDone
	a.schedulerCancel = nil
	a.schedulerDone = nil
}

// startRefreshScheduler refreshes every portfolio on a fixed interval,
// starting with one immediate pass so snapshots exist right after boot.
func startRefreshScheduler(ctx context.Context, portfolioService interfaces.PortfolioService, logger *common.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refreshPortfolios(ctx, portfolioService, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Refresh scheduler: stopped")
			return
		case <-ticker.C:
			refreshPortfolios(ctx, portfolioService, logger)
		}
	}
}

func refreshPortfolios(ctx context.Context, portfolioService interfaces.PortfolioService, logger *common.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Refresh scheduler: panic recovered")
		}
	}()

	start := time.Now()
	refreshed, err := portfolioService.RefreshAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn().Err(err).Msg("Refresh scheduler: refresh failed")
		return
	}

	logger.Info().
		Int("portfolios", refreshed).
		Dur("elapsed", time.Since(start)).
		Msg("Refresh scheduler: complete")
}
