// internal/repository/stock_repository.go
package repository

import (
	"context"
	"time"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
)

// StockRepository persists the outputs of a pipeline run and serves the
// read side of the API. Replace* methods swap the stored run atomically.
type StockRepository interface {
	ReplaceStockRecords(ctx context.Context, records []domain.StockRecord) error
	GetStockRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, error)
	GetLatestStock(ctx context.Context) ([]domain.StockRecord, error)

	ReplaceMonthlySummaries(ctx context.Context, summaries []domain.MonthlySummary) error
	GetMonthlySummaries(ctx context.Context, from, to time.Time) ([]domain.MonthlySummary, error)

	ReplaceSiteDeliveries(ctx context.Context, deliveries []domain.SiteDelivery) error
	GetSiteDeliveries(ctx context.Context) ([]domain.SiteDelivery, error)

	SaveValidationReport(ctx context.Context, report domain.ValidationReport) error
	GetLatestValidation(ctx context.Context) (*domain.ValidationReport, error)
}
