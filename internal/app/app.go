// Package app wires configuration, storage, clients and services into the
// shared core used by cmd/carteira-server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/carteira/internal/clients/brapi"
	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/services/fetch"
	"github.com/bobmcallan/carteira/internal/services/market"
	"github.com/bobmcallan/carteira/internal/services/portfolio"
	"github.com/bobmcallan/carteira/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	QuoteClient      interfaces.QuoteClient
	PortfolioService interfaces.PortfolioService
	MarketService    interfaces.MarketService
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
	schedulerDone   chan struct{}
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveBesideBinary prefers binDir/path when that file exists, so a
// self-contained install finds its data files regardless of the working directory.
func resolveBesideBinary(binDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	candidate := filepath.Join(binDir, path)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// NewApp initializes storage, the quote client and all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration: provided path, CARTEIRA_CONFIG, binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("CARTEIRA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "carteira.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/carteira.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	config.Storage.SeedFile = resolveBesideBinary(binDir, config.Storage.SeedFile)
	config.Market.FallbackFile = resolveBesideBinary(binDir, config.Market.FallbackFile)

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return newApp(config, logger, startupStart)
}

// newApp builds the App from an already loaded config.
func newApp(config *common.Config, logger *common.Logger, startupStart time.Time) (*App, error) {
	ctx := context.Background()

	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.Brapi.Token == "" {
		logger.Warn().Msg("Quote API token not configured - only unauthenticated tickers will resolve")
	}

	quoteClient := brapi.NewClient(config.Clients.Brapi.Token,
		brapi.WithBaseURL(config.Clients.Brapi.BaseURL),
		brapi.WithLogger(logger),
		brapi.WithRateLimit(config.Clients.Brapi.RateLimit),
		brapi.WithTimeout(config.Clients.Brapi.GetTimeout()),
	)

	fallback := loadFallback(config.Market.FallbackFile, logger)

	selector := fetch.NewDefaultSelector(quoteClient, config.Fetch, logger)
	portfolioService := portfolio.NewService(storageManager, selector, logger)
	marketService := market.NewService(quoteClient, fallback, config.Market, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		QuoteClient:      quoteClient,
		PortfolioService: portfolioService,
		MarketService:    marketService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("fallback_version", marketService.FallbackVersion()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// loadFallback reads the index fallback file, keeping the built-in table
// when the file is absent or invalid.
func loadFallback(path string, logger *common.Logger) *market.FallbackConfig {
	if path == "" {
		return market.DefaultFallbackConfig()
	}
	fb, err := market.LoadFallbackConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", path).Msg("Fallback file not found, using built-in index values")
		} else {
			logger.Warn().Err(err).Str("path", path).Msg("Fallback file invalid, using built-in index values")
		}
		return market.DefaultFallbackConfig()
	}
	return fb
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close storage.
func (a *App) Close() {
	a.StopScheduler()
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
		a.Storage = nil
	}
}
