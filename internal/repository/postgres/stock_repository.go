// internal/repository/postgres/stock_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/repository"
)

type stockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) repository.StockRepository {
	return &stockRepository{db: db}
}

// ReplaceStockRecords swaps the stored stock run for the new one in a
// single transaction so readers never see a half-written run.
func (r *stockRepository) ReplaceStockRecords(ctx context.Context, records []domain.StockRecord) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM stock_records`); err != nil {
			return fmt.Errorf("failed to clear stock records: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO stock_records
				(location, bucket, opening_stock, inbound, transfer_out, final_out, total_outbound, closing_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare stock insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				rec.Location, rec.Bucket, rec.OpeningStock, rec.Inbound,
				rec.TransferOut, rec.FinalOut, rec.TotalOutbound, rec.ClosingStock,
			); err != nil {
				return fmt.Errorf("failed to insert stock record for %s: %w", rec.Location, err)
			}
		}

		log.Debug().Int("records", len(records)).Msg("stock records replaced")
		return nil
	})
}

func (r *stockRepository) GetStockRecords(ctx context.Context, filter domain.StockFilter) ([]domain.StockRecord, int, error) {
	countQuery := `SELECT COUNT(*) FROM stock_records WHERE 1=1`
	query := `
		SELECT location, bucket, opening_stock, inbound, transfer_out, final_out, total_outbound, closing_stock
		FROM stock_records
		WHERE 1=1
	`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if len(filter.Locations) > 0 {
		conditions = append(conditions, fmt.Sprintf("location = ANY($%d::text[])", argCounter))
		args = append(args, "{"+strings.Join(filter.Locations, ",")+"}")
		argCounter++
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("bucket >= $%d", argCounter))
		args = append(args, filter.From)
		argCounter++
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("bucket <= $%d", argCounter))
		args = append(args, filter.To)
		argCounter++
	}

	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting stock records: %w", err)
	}

	query += " ORDER BY location, bucket"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var records []domain.StockRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting stock records: %w", err)
	}
	return records, total, nil
}

// GetLatestStock returns each location's most recent balance row.
func (r *stockRepository) GetLatestStock(ctx context.Context) ([]domain.StockRecord, error) {
	query := `
		SELECT DISTINCT ON (location)
			location, bucket, opening_stock, inbound, transfer_out, final_out, total_outbound, closing_stock
		FROM stock_records
		ORDER BY location, bucket DESC
	`

	var records []domain.StockRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("error getting latest stock: %w", err)
	}
	return records, nil
}

func (r *stockRepository) ReplaceMonthlySummaries(ctx context.Context, summaries []domain.MonthlySummary) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_summaries`); err != nil {
			return fmt.Errorf("failed to clear monthly summaries: %w", err)
		}
		for _, s := range summaries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO monthly_summaries
					(location, month, inbound, outbound, net_change, closing_stock, turnover_rate)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, s.Location, s.Month, s.Inbound, s.Outbound, s.NetChange, s.ClosingStock, s.TurnoverRate); err != nil {
				return fmt.Errorf("failed to insert monthly summary for %s: %w", s.Location, err)
			}
		}
		return nil
	})
}

func (r *stockRepository) GetMonthlySummaries(ctx context.Context, from, to time.Time) ([]domain.MonthlySummary, error) {
	query := `
		SELECT location, month, inbound, outbound, net_change, closing_stock, turnover_rate
		FROM monthly_summaries
		WHERE 1=1
	`
	var args []interface{}
	argCounter := 1
	if !from.IsZero() {
		query += fmt.Sprintf(" AND month >= $%d", argCounter)
		args = append(args, from)
		argCounter++
	}
	if !to.IsZero() {
		query += fmt.Sprintf(" AND month <= $%d", argCounter)
		args = append(args, to)
	}
	query += " ORDER BY location, month"

	var summaries []domain.MonthlySummary
	if err := sqlx.SelectContext(ctx, r.db, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("error getting monthly summaries: %w", err)
	}
	return summaries, nil
}

func (r *stockRepository) ReplaceSiteDeliveries(ctx context.Context, deliveries []domain.SiteDelivery) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM site_deliveries`); err != nil {
			return fmt.Errorf("failed to clear site deliveries: %w", err)
		}
		for _, d := range deliveries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO site_deliveries (site, month, quantity) VALUES ($1, $2, $3)
			`, d.Site, d.Month, d.Quantity); err != nil {
				return fmt.Errorf("failed to insert site delivery for %s: %w", d.Site, err)
			}
		}
		return nil
	})
}

func (r *stockRepository) GetSiteDeliveries(ctx context.Context) ([]domain.SiteDelivery, error) {
	var deliveries []domain.SiteDelivery
	query := `SELECT site, month, quantity FROM site_deliveries ORDER BY site, month`
	if err := r.db.SelectContext(ctx, &deliveries, query); err != nil {
		return nil, fmt.Errorf("error getting site deliveries: %w", err)
	}
	return deliveries, nil
}

func (r *stockRepository) SaveValidationReport(ctx context.Context, report domain.ValidationReport) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var runID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO validation_runs (evaluated_at, tolerance, matches, total, pass_rate)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, report.EvaluatedAt, report.Tolerance, report.Matches, report.Total, report.PassRate).Scan(&runID)
		if err != nil {
			return fmt.Errorf("failed to insert validation run: %w", err)
		}

		for _, c := range report.Checks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO validation_checks (run_id, location, expected, actual, delta, match)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, runID, c.Location, c.Expected, c.Actual, c.Delta, c.Match); err != nil {
				return fmt.Errorf("failed to insert validation check for %s: %w", c.Location, err)
			}
		}
		return nil
	})
}

func (r *stockRepository) GetLatestValidation(ctx context.Context) (*domain.ValidationReport, error) {
	var run struct {
		ID          int64     `db:"id"`
		EvaluatedAt time.Time `db:"evaluated_at"`
		Tolerance   int       `db:"tolerance"`
		Matches     int       `db:"matches"`
		Total       int       `db:"total"`
		PassRate    float64   `db:"pass_rate"`
	}
	err := r.db.GetContext(ctx, &run, `
		SELECT id, evaluated_at, tolerance, matches, total, pass_rate
		FROM validation_runs
		ORDER BY evaluated_at DESC
		LIMIT 1
	`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting latest validation run: %w", err)
	}

	report := &domain.ValidationReport{
		EvaluatedAt: run.EvaluatedAt,
		Tolerance:   run.Tolerance,
		Matches:     run.Matches,
		Total:       run.Total,
		PassRate:    run.PassRate,
	}

	type checkRow struct {
		Location string `db:"location"`
		Expected int    `db:"expected"`
		Actual   int    `db:"actual"`
		Delta    int    `db:"delta"`
		Match    bool   `db:"match"`
	}
	var rows []checkRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT location, expected, actual, delta, match
		FROM validation_checks
		WHERE run_id = $1
		ORDER BY location
	`, run.ID); err != nil {
		return nil, fmt.Errorf("error getting validation checks: %w", err)
	}
	for _, row := range rows {
		report.Checks = append(report.Checks, domain.LocationCheck{
			Location: row.Location,
			Expected: row.Expected,
			Actual:   row.Actual,
			Delta:    row.Delta,
			Match:    row.Match,
		})
	}
	return report, nil
}
