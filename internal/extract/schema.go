// internal/extract/schema.go
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/hvdc-project/warehouse-flow/internal/location"
)

// Schema detection runs once per file, before any business logic, and
// returns a typed ColumnMapping. Downstream code never probes headers
// again: either the mapping is valid or the file is rejected here.

var (
	// ErrNoCaseColumn means no column identifying the tracked cargo unit
	// could be found. The file cannot contribute events.
	ErrNoCaseColumn = errors.New("no case identifier column detected")

	// ErrNoDateColumns means the sheet is wide-format but carries no
	// column whose header maps to a warehouse and whose values look like
	// dates.
	ErrNoDateColumns = errors.New("no date columns detected")
)

// DateColumn is one wide-format column holding arrival timestamps for a
// specific warehouse, derived from the column header.
type DateColumn struct {
	Index     int
	Header    string
	Warehouse string
}

// ColumnMapping is the validated schema of one sheet. Index fields are
// -1 when the column is absent.
type ColumnMapping struct {
	CaseCol     int
	QtyCol      int
	DateCols    []DateColumn
	StatusCols  map[string]int
	TypeCol     int
	LocationCol int
	PlainDate   int
}

// Wide reports whether the sheet uses one column per warehouse (arrival
// timestamps spread across columns) rather than one row per transaction.
func (m ColumnMapping) Wide() bool {
	return len(m.DateCols) > 0
}

var caseKeywords = []string{"case", "carton", "box", "mr#", "mr #", "sct ship no"}

var qtyKeywords = []string{"quantity", "package", "piece", "each", "received", "count"}

var dateHeaderTokens = []string{"eta", "etd", "ata", "atd", "date", "time", "arrival", "departure"}

var statusHeaderKinds = map[string][]string{
	"warehouse": {"status_warehouse", "status warehouse"},
	"site":      {"status_site", "status site"},
	"current":   {"status_current", "status current"},
	"location":  {"status_location", "status location"},
	"storage":   {"status_storage", "status storage"},
}

// sampleSize caps how many non-blank values per column are inspected
// when deciding whether a column holds dates.
const sampleSize = 5

// DetectSchema inspects the header row plus a sample of data rows and
// returns the column mapping, or a structured failure when the sheet is
// unusable. It needs the normalizer to recognize warehouse names inside
// column headers.
func DetectSchema(header []string, rows [][]string, norm *location.Normalizer) (ColumnMapping, error) {
	m := ColumnMapping{
		CaseCol:     -1,
		QtyCol:      -1,
		TypeCol:     -1,
		LocationCol: -1,
		PlainDate:   -1,
		StatusCols:  make(map[string]int),
	}

	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		if lower == "" {
			continue
		}

		if m.CaseCol < 0 {
			for _, kw := range caseKeywords {
				if strings.Contains(lower, kw) {
					m.CaseCol = i
					break
				}
			}
		}

		if m.QtyCol < 0 && matchesQtyHeader(lower) {
			m.QtyCol = i
		}

		for kind, patterns := range statusHeaderKinds {
			if _, seen := m.StatusCols[kind]; seen {
				continue
			}
			for _, p := range patterns {
				if strings.Contains(lower, p) {
					m.StatusCols[kind] = i
					break
				}
			}
		}
	}

	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		if lower == "" || i == m.CaseCol || i == m.QtyCol {
			continue
		}
		if isStatusCol(m.StatusCols, i) {
			continue
		}

		// A wide-format date column must name a warehouse once the date
		// keyword tokens are stripped, and a supermajority of its sampled
		// values must parse as dates.
		wh := warehouseFromHeader(h, norm)
		if wh != location.Unknown && columnLooksLikeDates(rows, i) {
			m.DateCols = append(m.DateCols, DateColumn{Index: i, Header: h, Warehouse: wh})
			continue
		}

		// Long-format fallbacks.
		switch {
		case m.LocationCol < 0 && (strings.Contains(lower, "location") || lower == "site" || lower == "warehouse"):
			m.LocationCol = i
		case m.TypeCol < 0 && (lower == "type" || strings.Contains(lower, "tx type") || strings.Contains(lower, "transaction type")):
			m.TypeCol = i
		case lower == "status":
			if _, ok := m.StatusCols["current"]; !ok {
				m.StatusCols["current"] = i
			}
		case m.PlainDate < 0 && strings.Contains(lower, "date"):
			m.PlainDate = i
		}
	}

	if m.CaseCol < 0 {
		return m, ErrNoCaseColumn
	}
	if len(m.DateCols) == 0 && m.PlainDate < 0 {
		return m, ErrNoDateColumns
	}

	return m, nil
}

func isStatusCol(status map[string]int, idx int) bool {
	for _, v := range status {
		if v == idx {
			return true
		}
	}
	return false
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9\s]`)
var spacesRe = regexp.MustCompile(`\s+`)

// normalizeHeaderText lower-cases a header, strips punctuation,
// depluralizes and expands the abbreviations that show up in real
// shipping sheets (Q'TY, PKGs, P'KG and friends).
func normalizeHeaderText(h string) string {
	n := strings.ToLower(strings.TrimSpace(h))
	n = strings.ReplaceAll(n, "'", "")
	n = nonWordRe.ReplaceAllString(n, " ")
	n = spacesRe.ReplaceAllString(strings.TrimSpace(n), " ")

	words := strings.Split(n, " ")
	expanded := map[string]string{
		"pkg": "package", "pkgs": "package",
		"qty": "quantity", "qtys": "quantity",
		"pcs": "piece", "pc": "piece",
		"ea": "each", "cnt": "count",
	}
	for i, w := range words {
		if full, ok := expanded[w]; ok {
			words[i] = full
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	return strings.Join(words, " ")
}

func matchesQtyHeader(lower string) bool {
	n := normalizeHeaderText(lower)
	for _, kw := range qtyKeywords {
		if n == kw || strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

// warehouseFromHeader strips date keyword tokens from a column header
// and normalizes what remains. "DSV Indoor ETA" resolves to DSV Indoor;
// a header with no recognizable warehouse yields Unknown.
func warehouseFromHeader(h string, norm *location.Normalizer) string {
	lower := strings.ToLower(strings.TrimSpace(h))
	for _, tok := range dateHeaderTokens {
		lower = strings.ReplaceAll(lower, tok, " ")
	}
	lower = spacesRe.ReplaceAllString(strings.TrimSpace(lower), " ")
	if lower == "" {
		return location.Unknown
	}
	return norm.Normalize(lower)
}

// columnLooksLikeDates samples up to sampleSize non-blank values and
// requires at least half of them to parse as dates.
func columnLooksLikeDates(rows [][]string, idx int) bool {
	var sampled, parsed int
	for _, row := range rows {
		if idx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		sampled++
		if _, ok := ParseDate(v); ok {
			parsed++
		}
		if sampled == sampleSize {
			break
		}
	}
	return sampled > 0 && parsed*2 >= sampled
}
