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

// PortfolioStore implements interfaces.PortfolioStore using SurrealDB.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

func (s *PortfolioStore) GetPortfolio(ctx context.Context, name string) (*models.PortfolioDefinition, error) {
	def, err := surrealdb.Select[models.PortfolioDefinition](ctx, s.db, surrealmodels.NewRecordID(tablePortfolio, recordKey(name)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if def == nil || def.Name == "" {
		return nil, interfaces.ErrPortfolioNotFound
	}
	return def, nil
}

func (s *PortfolioStore) SavePortfolio(ctx context.Context, def *models.PortfolioDefinition) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tablePortfolio, recordKey(def.Name)), "data": def}

	var lastErr error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		_, err := surrealdb.Query[[]models.PortfolioDefinition](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Debug().Err(err).Int("attempt", attempt).Str("portfolio", def.Name).Msg("Portfolio save failed")
	}
	return fmt.Errorf("failed to save portfolio after retries: %w", lastErr)
}

func (s *PortfolioStore) DeletePortfolio(ctx context.Context, name string) error {
	_, err := surrealdb.Delete[models.PortfolioDefinition](ctx, s.db, surrealmodels.NewRecordID(tablePortfolio, recordKey(name)))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return nil
}

func (s *PortfolioStore) ListPortfolios(ctx context.Context) ([]*models.PortfolioDefinition, error) {
	sql := "SELECT * FROM " + tablePortfolio + " ORDER BY name"
	results, err := surrealdb.Query[[]models.PortfolioDefinition](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var out []*models.PortfolioDefinition
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
	return out, nil
}
