// cmd/flowctl/seed.go
package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/hvdc-project/warehouse-flow/internal/pipeline"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS stock_records (
		id BIGSERIAL PRIMARY KEY,
		location TEXT NOT NULL,
		bucket DATE NOT NULL,
		opening_stock INT NOT NULL,
		inbound INT NOT NULL,
		transfer_out INT NOT NULL,
		final_out INT NOT NULL,
		total_outbound INT NOT NULL,
		closing_stock INT NOT NULL,
		UNIQUE (location, bucket)
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_summaries (
		id BIGSERIAL PRIMARY KEY,
		location TEXT NOT NULL,
		month DATE NOT NULL,
		inbound INT NOT NULL,
		outbound INT NOT NULL,
		net_change INT NOT NULL,
		closing_stock INT NOT NULL,
		turnover_rate DOUBLE PRECISION NOT NULL,
		UNIQUE (location, month)
	)`,
	`CREATE TABLE IF NOT EXISTS site_deliveries (
		id BIGSERIAL PRIMARY KEY,
		site TEXT NOT NULL,
		month DATE NOT NULL,
		quantity INT NOT NULL,
		UNIQUE (site, month)
	)`,
	`CREATE TABLE IF NOT EXISTS validation_runs (
		id BIGSERIAL PRIMARY KEY,
		evaluated_at TIMESTAMPTZ NOT NULL,
		tolerance INT NOT NULL,
		matches INT NOT NULL,
		total INT NOT NULL,
		pass_rate DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS validation_checks (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES validation_runs(id) ON DELETE CASCADE,
		location TEXT NOT NULL,
		expected INT NOT NULL,
		actual INT NOT NULL,
		delta INT NOT NULL,
		match BOOLEAN NOT NULL
	)`,
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func runMigrate(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(c.Context, ddl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	fmt.Println("Schema up to date")
	return nil
}

func runSeed(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator, err := buildOrchestrator(c, "")
	if err != nil {
		return err
	}

	result, err := orchestrator.RunDir(c.Context, c.String("data-dir"))
	if err != nil {
		return err
	}

	if err := seedResult(c.Context, db, result); err != nil {
		return err
	}

	fmt.Printf("Seeded %d stock records, %d monthly summaries, %d site deliveries\n",
		len(result.Daily), len(result.Monthly), len(result.Sites))
	return nil
}

func seedResult(ctx context.Context, db *sql.DB, result *pipeline.Result) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"stock_records", "monthly_summaries", "site_deliveries"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, rec := range result.Daily {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_records
				(location, bucket, opening_stock, inbound, transfer_out, final_out, total_outbound, closing_stock)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, rec.Location, rec.Bucket, rec.OpeningStock, rec.Inbound,
			rec.TransferOut, rec.FinalOut, rec.TotalOutbound, rec.ClosingStock); err != nil {
			return fmt.Errorf("failed to insert stock record: %w", err)
		}
	}

	for _, s := range result.Monthly {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_summaries
				(location, month, inbound, outbound, net_change, closing_stock, turnover_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, s.Location, s.Month, s.Inbound, s.Outbound, s.NetChange, s.ClosingStock, s.TurnoverRate); err != nil {
			return fmt.Errorf("failed to insert monthly summary: %w", err)
		}
	}

	for _, d := range result.Sites {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO site_deliveries (site, month, quantity) VALUES ($1, $2, $3)
		`, d.Site, d.Month, d.Quantity); err != nil {
			return fmt.Errorf("failed to insert site delivery: %w", err)
		}
	}

	if result.Validation != nil {
		rep := result.Validation
		var runID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO validation_runs (evaluated_at, tolerance, matches, total, pass_rate)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, rep.EvaluatedAt, rep.Tolerance, rep.Matches, rep.Total, rep.PassRate).Scan(&runID); err != nil {
			return fmt.Errorf("failed to insert validation run: %w", err)
		}
		for _, check := range rep.Checks {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO validation_checks (run_id, location, expected, actual, delta, match)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, runID, check.Location, check.Expected, check.Actual, check.Delta, check.Match); err != nil {
				return fmt.Errorf("failed to insert validation check: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}
