package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/carteira/internal/common"
	"github.com/bobmcallan/carteira/internal/interfaces"
	"github.com/bobmcallan/carteira/internal/models"
)

// SnapshotStore implements interfaces.SnapshotStore using SurrealDB.
// One record per portfolio; UPSERT CONTENT replaces it as a whole.
type SnapshotStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *surrealdb.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, portfolio string) (*models.PortfolioSnapshot, error) {
	snap, err := surrealdb.Select[models.PortfolioSnapshot](ctx, s.db, surrealmodels.NewRecordID(tableSnapshot, recordKey(portfolio)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to select snapshot: %w", err)
	}
	if snap == nil || snap.Portfolio == "" {
		return nil, interfaces.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableSnapshot, recordKey(snapshot.Portfolio)), "data": snapshot}

	var lastErr error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		_, err := surrealdb.Query[[]models.PortfolioSnapshot](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Debug().Err(err).Int("attempt", attempt).Str("portfolio", snapshot.Portfolio).Msg("Snapshot save failed")
	}
	return fmt.Errorf("failed to save snapshot after retries: %w", lastErr)
}
