// Package storage selects and initialises the storage backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/storage/memory"
	"github.com/bobmcallan/carteira/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendMemory    = "memory"
	BackendSurrealDB = "surrealdb"
)

// NewStorageManager creates the configured backend and seeds it with any
// portfolio definitions from the seed file that it does not already hold.
func NewStorageManager(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	if backend == "" {
		backend = BackendMemory
	}

	var mgr interfaces.StorageManager
	switch backend {
	case BackendMemory:
		mgr = memory.NewManager(logger)

	case BackendSurrealDB:
		m, err := surrealdb.NewManager(ctx, logger, config)
		if err != nil {
			return nil, err
		}
		mgr = m

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: memory, surrealdb)", backend)
	}

	if config.Storage.SeedFile == "" {
		return mgr, nil
	}

	defs, err := LoadSeedFile(config.Storage.SeedFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", config.Storage.SeedFile).Msg("Seed file not found, starting without portfolios")
			return mgr, nil
		}
		mgr.Close()
		return nil, err
	}

	added, err := SeedPortfolios(ctx, mgr.PortfolioStore(), defs)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	logger.Info().
		Str("backend", backend).
		Str("seed_file", config.Storage.SeedFile).
		Int("portfolios", len(defs)).
		Int("added", added).
		Msg("Portfolio seeds loaded")

	return mgr, nil
}
