// internal/excel/loader.go

// Package excel reads the warehouse xlsx exports into plain string
// tables for the extractor.
package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet name fragments that mark the case-list sheet in multi-sheet
// exports. Checked in order; the first sheet is the fallback.
var preferredSheets = []string{"case list", "case", "master"}

// Table is one sheet flattened to a header row plus data rows. Rows may
// be ragged; excelize drops trailing empty cells.
type Table struct {
	File   string
	Sheet  string
	Header []string
	Rows   [][]string
}

// Load opens an xlsx workbook and returns the case-list sheet as a
// Table. A workbook without sheets or without a header row is an error;
// the caller decides whether that fails the batch.
func Load(path string) (Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	sheet := pickSheet(sheets)

	rows, err := f.Rows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	table := Table{File: path, Sheet: sheet}
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return Table{}, fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Error(); err != nil {
		return Table{}, fmt.Errorf("error iterating rows in %s: %w", path, err)
	}

	if table.Header == nil {
		return Table{}, fmt.Errorf("xlsx file %s: sheet %s is empty", path, sheet)
	}
	return table, nil
}

func pickSheet(sheets []string) string {
	for _, fragment := range preferredSheets {
		for _, sheet := range sheets {
			if strings.Contains(strings.ToLower(sheet), fragment) {
				return sheet
			}
		}
	}
	return sheets[0]
}
