// internal/report/writer.go

// Package report renders computed stock data into a multi-sheet xlsx
// workbook for distribution to the logistics team.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
)

const (
	sheetDaily      = "Daily Stock"
	sheetMonthly    = "Monthly KPI"
	sheetSites      = "Site Deliveries"
	sheetReconcile  = "Reconciliation"
	sheetValidation = "Validation"
	dayLayout       = "2006-01-02"
	monthLayout     = "2006-01"
	timestampLayout = "2006-01-02 15:04:05"
)

// Workbook bundles everything one pipeline run produces for reporting.
// Validation is optional: it is nil when no expected-stock file was
// configured for the run.
type Workbook struct {
	Daily      []domain.StockRecord
	Monthly    []domain.MonthlySummary
	Sites      []domain.SiteDelivery
	Reconcile  domain.ReconcileReport
	Validation *domain.ValidationReport
}

// Write renders the workbook to path, one sheet per section.
func Write(path string, wb Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeDaily(f, wb.Daily); err != nil {
		return err
	}
	if err := writeMonthly(f, wb.Monthly); err != nil {
		return err
	}
	if err := writeSites(f, wb.Sites); err != nil {
		return err
	}
	if err := writeReconcile(f, wb.Reconcile); err != nil {
		return err
	}
	if wb.Validation != nil {
		if err := writeValidation(f, *wb.Validation); err != nil {
			return err
		}
	}

	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

func writeDaily(f *excelize.File, records []domain.StockRecord) error {
	rows := [][]interface{}{
		{"Location", "Date", "Opening", "Inbound", "Transfer Out", "Final Out", "Total Outbound", "Closing"},
	}
	for _, rec := range records {
		rows = append(rows, []interface{}{
			rec.Location, rec.Bucket.Format(dayLayout),
			rec.OpeningStock, rec.Inbound, rec.TransferOut, rec.FinalOut,
			rec.TotalOutbound, rec.ClosingStock,
		})
	}
	return writeSheet(f, sheetDaily, rows)
}

func writeMonthly(f *excelize.File, summaries []domain.MonthlySummary) error {
	rows := [][]interface{}{
		{"Location", "Month", "Inbound", "Outbound", "Net Change", "Closing", "Turnover"},
	}
	for _, s := range summaries {
		rows = append(rows, []interface{}{
			s.Location, s.Month.Format(monthLayout),
			s.Inbound, s.Outbound, s.NetChange, s.ClosingStock,
			strconv.FormatFloat(s.TurnoverRate, 'f', 3, 64),
		})
	}
	return writeSheet(f, sheetMonthly, rows)
}

func writeSites(f *excelize.File, deliveries []domain.SiteDelivery) error {
	rows := [][]interface{}{
		{"Site", "Month", "Delivered Qty"},
	}
	for _, d := range deliveries {
		rows = append(rows, []interface{}{d.Site, d.Month.Format(monthLayout), d.Quantity})
	}
	return writeSheet(f, sheetSites, rows)
}

func writeReconcile(f *excelize.File, rep domain.ReconcileReport) error {
	rows := [][]interface{}{
		{"Input Rows", rep.InputRows},
		{"Duplicates Removed", rep.DuplicatesRemoved},
		{"Orphan Transfers", len(rep.Orphans)},
		{"Synthesized Legs", rep.SynthesizedLegs},
		{"Imbalanced Cases", len(rep.Imbalances)},
		{},
		{"Case", "Location", "Date", "Qty", "Repaired"},
	}
	for _, o := range rep.Orphans {
		rows = append(rows, []interface{}{o.CaseID, o.Location, o.Date.Format(dayLayout), o.Quantity, o.Repaired})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Case", "Transfer Out", "Transfer In"})
	for _, im := range rep.Imbalances {
		rows = append(rows, []interface{}{im.CaseID, im.TransferOut, im.TransferIn})
	}
	return writeSheet(f, sheetReconcile, rows)
}

func writeValidation(f *excelize.File, rep domain.ValidationReport) error {
	rows := [][]interface{}{
		{"Evaluated At", rep.EvaluatedAt.Format(timestampLayout)},
		{"Tolerance", rep.Tolerance},
		{"Pass Rate", strconv.FormatFloat(rep.PassRate, 'f', 3, 64)},
		{},
		{"Location", "Expected", "Actual", "Delta", "Match"},
	}
	for _, c := range rep.Checks {
		rows = append(rows, []interface{}{c.Location, c.Expected, c.Actual, c.Delta, c.Match})
	}
	return writeSheet(f, sheetValidation, rows)
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d on %s: %w", i+1, name, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+1, name, err)
		}
	}
	return nil
}

// FileName builds the conventional report name for a run timestamp.
func FileName(at time.Time) string {
	return fmt.Sprintf("warehouse_flow_%s.xlsx", at.Format("20060102_150405"))
}
