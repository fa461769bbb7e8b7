package market

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// IndexFallback describes one tracked index and the values used when the
// live quote is unavailable.
type IndexFallback struct {
	// Symbol is the quote API symbol fetched for the index.
	Symbol string `toml:"symbol"`
	// Scale converts the fetched price to index points (an ETF proxy
	// such as SMAL11 needs a multiplier; a true index uses 1).
	Scale float64 `toml:"scale"`
	// BaseValue is the last known index level in points.
	BaseValue float64 `toml:"base_value"`
	// DriftPct is the simulated change reached at the session close.
	DriftPct float64 `toml:"drift_pct"`
	// AmplitudePct bounds the simulated intraday oscillation.
	AmplitudePct float64 `toml:"amplitude_pct"`
	// EmergencyValue is the final constant when nothing else is available.
	EmergencyValue float64 `toml:"emergency_value"`
}

// FallbackConfig is the versioned fallback data for every tracked index.
type FallbackConfig struct {
	Version   string                   `toml:"version"`
	UpdatedAt string                   `toml:"updated_at"`
	Indices   map[string]IndexFallback `toml:"indices"`
}

// Tracked index names
const (
	IndexIBOV = "IBOV"
	IndexSMLL = "SMLL"
)

// DefaultFallbackConfig returns the built-in fallback data.
func DefaultFallbackConfig() *FallbackConfig {
	return &FallbackConfig{
		Version:   "2024.06-1",
		UpdatedAt: "2024-06-03",
		Indices: map[string]IndexFallback{
			IndexIBOV: {
				Symbol:         "^BVSP",
				Scale:          1,
				BaseValue:      122000,
				DriftPct:       0.35,
				AmplitudePct:   0.4,
				EmergencyValue: 120000,
			},
			IndexSMLL: {
				Symbol:         "SMAL11",
				Scale:          20,
				BaseValue:      2050,
				DriftPct:       0.25,
				AmplitudePct:   0.6,
				EmergencyValue: 2000,
			},
		},
	}
}

// LoadFallbackConfig reads a fallback config from a TOML file.
func LoadFallbackConfig(path string) (*FallbackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback file %s: %w", path, err)
	}
	return ParseFallbackConfig(data)
}

// ParseFallbackConfig decodes and validates TOML fallback data.
func ParseFallbackConfig(data []byte) (*FallbackConfig, error) {
	var cfg FallbackConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse fallback config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *FallbackConfig) normalise() error {
	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("fallback config has no version")
	}
	if len(c.Indices) == 0 {
		return fmt.Errorf("fallback config %s defines no indices", c.Version)
	}
	for name, idx := range c.Indices {
		if strings.TrimSpace(idx.Symbol) == "" {
			return fmt.Errorf("fallback config %s: index %s has no symbol", c.Version, name)
		}
		if idx.Scale <= 0 {
			idx.Scale = 1
		}
		if idx.BaseValue < 0 || idx.EmergencyValue < 0 {
			return fmt.Errorf("fallback config %s: index %s has negative values", c.Version, name)
		}
		c.Indices[name] = idx
	}
	return nil
}

// Names returns the tracked index names in sorted order.
func (c *FallbackConfig) Names() []string {
	names := make([]string, 0, len(c.Indices))
	for name := range c.Indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
