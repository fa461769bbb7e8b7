package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// seedFile is the TOML layout of the portfolio seed file.
type seedFile struct {
	Portfolios []models.PortfolioDefinition `toml:"portfolios"`
}

var validKinds = map[string]bool{
	models.KindMicroCaps: true,
	models.KindFIIs:      true,
	models.KindETFs:      true,
}

// LoadSeedFile reads portfolio definitions from a TOML seed file.
func LoadSeedFile(path string) ([]*models.PortfolioDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates TOML portfolio seeds.
func ParseSeed(data []byte) ([]*models.PortfolioDefinition, error) {
	var f seedFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Portfolios))
	out := make([]*models.PortfolioDefinition, 0, len(f.Portfolios))
	for i := range f.Portfolios {
		def := &f.Portfolios[i]
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		k := strings.ToLower(def.Name)
		if seen[k] {
			return nil, fmt.Errorf("duplicate portfolio %q in seed file", def.Name)
		}
		seen[k] = true
		out = append(out, def)
	}
	return out, nil
}

func validateDefinition(def *models.PortfolioDefinition) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return fmt.Errorf("portfolio without a name in seed file")
	}
	if !models.ValidPortfolioName(def.Name) {
		return fmt.Errorf("portfolio %q: name must be lower-case letters, digits, '-' or '_'", def.Name)
	}
	def.Kind = strings.ToLower(strings.TrimSpace(def.Kind))
	if !validKinds[def.Kind] {
		return fmt.Errorf("portfolio %s: unknown kind %q", def.Name, def.Kind)
	}
	tickers := make(map[string]bool, len(def.Assets))
	for i := range def.Assets {
		a := &def.Assets[i]
		a.Ticker = strings.ToUpper(strings.TrimSpace(a.Ticker))
		if a.Ticker == "" {
			return fmt.Errorf("portfolio %s: asset %d has no ticker", def.Name, i)
		}
		if tickers[a.Ticker] {
			return fmt.Errorf("portfolio %s: duplicate ticker %s", def.Name, a.Ticker)
		}
		tickers[a.Ticker] = true
		if a.EntryPrice < 0 || a.TargetPrice < 0 {
			return fmt.Errorf("portfolio %s: asset %s has a negative price", def.Name, a.Ticker)
		}
		if _, err := models.ParseEntryDate(a.EntryDate); err != nil {
			return fmt.Errorf("portfolio %s: asset %s: %w", def.Name, a.Ticker, err)
		}
	}
	for i := range def.Proventos {
		def.Proventos[i].Ticker = strings.ToUpper(strings.TrimSpace(def.Proventos[i].Ticker))
	}
	return nil
}

// SeedPortfolios saves every definition the store does not hold yet and
// returns how many were added. Existing definitions are left untouched.
func SeedPortfolios(ctx context.Context, store interfaces.PortfolioStore, defs []*models.PortfolioDefinition) (int, error) {
	added := 0
	for _, def := range defs {
		_, err := store.GetPortfolio(ctx, def.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, interfaces.ErrPortfolioNotFound) {
			return added, fmt.Errorf("failed to check portfolio %s: %w", def.Name, err)
		}
		if err := store.SavePortfolio(ctx, def); err != nil {
			return added, fmt.Errorf("failed to seed portfolio %s: %w", def.Name, err)
		}
		added++
	}
	return added, nil
}
