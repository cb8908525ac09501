// internal/service/stock_service.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hvdc-project/warehouse-flow/internal/cache"
	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/repository"
)

// StockService is the read side of the stored pipeline outputs, with a
// cache in front of the dashboard and record queries. Cache failures are
// logged and the query falls through to the repository.
type StockService struct {
	repo  repository.StockRepository
	cache cache.StockCache
}

func NewStockService(repo repository.StockRepository, cacheImpl cache.StockCache) *StockService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopStockCache()
	}
	return &StockService{repo: repo, cache: cacheImpl}
}

func (s *StockService) GetRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, error) {
	if records, total, ok, err := s.cache.GetRecords(ctx, filter); err == nil && ok {
		return records, total, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("stock: cache get records failed")
	}

	records, total, err := s.repo.GetStockRecords(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if err := s.cache.SetRecords(ctx, filter, records, total); err != nil {
		log.Warn().Err(err).Msg("stock: cache set records failed")
	}

	return records, total, nil
}

func (s *StockService) GetMonthlySummaries(ctx context.Context, from, to time.Time) ([]domain.MonthlySummary, error) {
	return s.repo.GetMonthlySummaries(ctx, from, to)
}

func (s *StockService) GetSiteDeliveries(ctx context.Context) ([]domain.SiteDelivery, error) {
	return s.repo.GetSiteDeliveries(ctx)
}

func (s *StockService) GetLatestValidation(ctx context.Context) (*domain.ValidationReport, error) {
	return s.repo.GetLatestValidation(ctx)
}

func (s *StockService) GetDashboard(ctx context.Context) (*domain.StockDashboard, error) {
	if dash, ok, err := s.cache.GetDashboard(ctx); err == nil && ok {
		return dash, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("stock: cache get dashboard failed")
	}

	latest, err := s.repo.GetLatestStock(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		latest = make([]domain.StockRecord, 0)
	}

	monthly, err := s.repo.GetMonthlySummaries(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if monthly == nil {
		monthly = make([]domain.MonthlySummary, 0)
	}

	sites, err := s.repo.GetSiteDeliveries(ctx)
	if err != nil {
		return nil, err
	}
	if sites == nil {
		sites = make([]domain.SiteDelivery, 0)
	}

	dash := &domain.StockDashboard{
		Latest:  latest,
		Monthly: monthly,
		Sites:   sites,
		AsOf:    time.Now().UTC(),
	}

	if err := s.cache.SetDashboard(ctx, dash); err != nil {
		log.Warn().Err(err).Msg("stock: cache set dashboard failed")
	}

	return dash, nil
}

// StoreRun persists a pipeline run's outputs and drops stale cache
// entries so the next read sees the new run.
func (s *StockService) StoreRun(ctx context.Context, daily []domain.StockRecord, monthly []domain.MonthlySummary, sites []domain.SiteDelivery, validation *domain.ValidationReport) error {
	if err := s.repo.ReplaceStockRecords(ctx, daily); err != nil {
		return err
	}
	if err := s.repo.ReplaceMonthlySummaries(ctx, monthly); err != nil {
		return err
	}
	if err := s.repo.ReplaceSiteDeliveries(ctx, sites); err != nil {
		return err
	}
	if validation != nil {
		if err := s.repo.SaveValidationReport(ctx, *validation); err != nil {
			return err
		}
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("stock: cache invalidation failed")
	}
	return nil
}
