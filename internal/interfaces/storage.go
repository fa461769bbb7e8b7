package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/carteira/internal/models"
)

var (
	// ErrPortfolioNotFound is returned when no definition exists for a name
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrSnapshotNotFound is returned when a portfolio was never refreshed
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// StorageManager coordinates the storage backend
type StorageManager interface {
	PortfolioStore() PortfolioStore
	SnapshotStore() SnapshotStore

	Close() error
}

// PortfolioStore persists portfolio definitions (seeds + proventos ledger)
type PortfolioStore interface {
	GetPortfolio(ctx context.Context, name string) (*models.PortfolioDefinition, error)
	SavePortfolio(ctx context.Context, def *models.PortfolioDefinition) error
	DeletePortfolio(ctx context.Context, name string) error
	ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error)
}

// SnapshotStore keeps the latest snapshot per portfolio. SaveSnapshot
// replaces the previous snapshot as a whole.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, portfolio string) (*models.PortfolioSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error
}
