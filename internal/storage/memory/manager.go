// Package memory provides an in-process StorageManager, used for
// development and as the default backend when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// Manager implements interfaces.StorageManager with maps guarded by a mutex.
type Manager struct {
	portfolios *PortfolioStore
	snapshots  *SnapshotStore
	logger     *common.Logger
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	logger.Info().Msg("In-memory storage manager initialized")
	return &Manager{
		portfolios: &PortfolioStore{defs: make(map[string]*models.PortfolioDefinition)},
		snapshots:  &SnapshotStore{snaps: make(map[string]*models.PortfolioSnapshot)},
		logger:     logger,
	}
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolios
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshots
}

func (m *Manager) Close() error {
	return nil
}

// PortfolioStore keeps portfolio definitions keyed by lower-cased name.
type PortfolioStore struct {
	mu   sync.RWMutex
	defs map[string]*models.PortfolioDefinition
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *PortfolioStore) GetPortfolio(_ context.Context, name string) (*models.PortfolioDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[key(name)]
	if !ok {
		return nil, interfaces.ErrPortfolioNotFound
	}
	return cloneDefinition(def), nil
}

func (s *PortfolioStore) SavePortfolio(_ context.Context, def *models.PortfolioDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[key(def.Name)] = cloneDefinition(def)
	return nil
}

func (s *PortfolioStore) DeletePortfolio(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs, key(name))
	return nil
}

// ListPortfolios returns definitions sorted by name.
func (s *PortfolioStore) ListPortfolios(_ context.Context) ([]*models.PortfolioDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PortfolioDefinition, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, cloneDefinition(def))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneDefinition(def *models.PortfolioDefinition) *models.PortfolioDefinition {
	c := *def
	c.Assets = append([]models.AssetSeed(nil), def.Assets...)
	c.Proventos = append([]models.Provento(nil), def.Proventos...)
	return &c
}

// SnapshotStore keeps the latest snapshot per portfolio. Stored snapshots
// are treated as immutable and replaced as a whole.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]*models.PortfolioSnapshot
}

func (s *SnapshotStore) GetSnapshot(_ context.Context, portfolio string) (*models.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[key(portfolio)]
	if !ok {
		return nil, interfaces.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *SnapshotStore) SaveSnapshot(_ context.Context, snapshot *models.PortfolioSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key(snapshot.Portfolio)] = snapshot
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
