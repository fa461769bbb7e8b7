// Package fetch picks and runs the quote fetch strategy for a client class:
// one batched request for desktop clients, a throttled per-ticker variant
// chain for mobile clients.
package fetch

import (
	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
)

// Fetch modes
const (
	ModeDesktop = "desktop"
	ModeMobile  = "mobile"
)

// Selector implements StrategySelector
type Selector struct {
	desktop interfaces.FetchStrategy
	mobile  interfaces.FetchStrategy
}

// NewSelector creates a selector over explicit strategies.
func NewSelector(desktop, mobile interfaces.FetchStrategy) *Selector {
	return &Selector{desktop: desktop, mobile: mobile}
}

// NewDefaultSelector builds both strategies over one quote client.
func NewDefaultSelector(client interfaces.QuoteClient, cfg common.FetchConfig, logger *common.Logger) *Selector {
	return NewSelector(
		NewDesktopStrategy(client, logger),
		NewMobileStrategy(client, cfg, logger),
	)
}

// Select returns the mobile strategy for mobile clients, desktop otherwise.
func (s *Selector) Select(mobile bool) interfaces.FetchStrategy {
	if mobile {
		return s.mobile
	}
	return s.desktop
}

// ModeName maps the device flag to a mode name.
func ModeName(mobile bool) string {
	if mobile {
		return ModeMobile
	}
	return ModeDesktop
}
