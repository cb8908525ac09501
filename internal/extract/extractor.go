// internal/extract/extractor.go
package extract

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hvdc-project/warehouse-flow/internal/classify"
	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/location"
	"github.com/hvdc-project/warehouse-flow/pkg/logger"
)

// Stats summarizes one extraction run for data-quality reporting.
type Stats struct {
	Rows        int
	Events      int
	SkippedRows int
	NowFallback int
	UnknownLoc  int
}

// Extractor scans tabular sheets and produces chronologically ordered
// per-case movement events. It never aborts a batch over one malformed
// file: undetectable schemas yield an empty result and a warning.
type Extractor struct {
	norm       *location.Normalizer
	classifier *classify.Classifier
	now        func() time.Time
}

// NewExtractor builds an Extractor. The classifier is used for
// long-format sheets where each row already is a transaction.
func NewExtractor(norm *location.Normalizer, classifier *classify.Classifier) *Extractor {
	return &Extractor{
		norm:       norm,
		classifier: classifier,
		now:        time.Now,
	}
}

// Events extracts movement events from a wide-format sheet: one row per
// case, one date column per candidate warehouse. Events are returned
// sorted by (case, timestamp); ties keep input column order, which is
// the documented tie-break.
func (e *Extractor) Events(sourceFile string, header []string, rows [][]string) ([]domain.MovementEvent, Stats) {
	var stats Stats
	stats.Rows = len(rows)

	mapping, err := DetectSchema(header, rows, e.norm)
	if err != nil {
		logger.Log.Warn().Err(err).Str("file", sourceFile).Msg("skipping file: schema detection failed")
		return nil, stats
	}
	if !mapping.Wide() {
		logger.Log.Warn().Str("file", sourceFile).Msg("skipping file: no wide-format date columns")
		return nil, stats
	}

	quantities := e.caseQuantities(mapping, rows)

	var events []domain.MovementEvent
	for rowIdx, row := range rows {
		caseID := cell(row, mapping.CaseCol)
		if caseID == "" {
			caseID = fmt.Sprintf("CASE_%d", rowIdx)
		}

		statusLoc := e.statusLocation(mapping, row)

		var emitted bool
		for _, dc := range mapping.DateCols {
			raw := cell(row, dc.Index)
			if raw == "" {
				continue
			}
			ts, ok := ParseDate(raw)
			if !ok {
				logger.Log.Debug().Str("file", sourceFile).Str("column", dc.Header).Str("value", raw).Msg("unparseable date cell")
				continue
			}

			// A structured current-location field on the row overrides
			// the header-derived warehouse.
			loc := dc.Warehouse
			if statusLoc != "" {
				loc = statusLoc
			}
			if loc == location.Unknown {
				stats.UnknownLoc++
				continue
			}

			events = append(events, domain.MovementEvent{
				CaseID:       caseID,
				Timestamp:    ts,
				Location:     loc,
				Quantity:     quantities[rowIdx],
				SourceColumn: dc.Header,
			})
			emitted = true
		}
		if !emitted {
			stats.SkippedRows++
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CaseID != events[j].CaseID {
			return events[i].CaseID < events[j].CaseID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	stats.Events = len(events)
	return events, stats
}

// Transactions derives IN/OUT transactions from the ordered events of
// each case. Every arrival generates an IN; from the second arrival on,
// the previous location also gets an outbound leg whose kind depends on
// the destination: a terminal site ends the journey (FINAL_OUT), any
// other location is an inter-warehouse move (TRANSFER_OUT).
func (e *Extractor) Transactions(events []domain.MovementEvent, sourceFile string) []domain.Transaction {
	byCase := make(map[string][]domain.MovementEvent)
	var caseOrder []string
	for _, ev := range events {
		if _, ok := byCase[ev.CaseID]; !ok {
			caseOrder = append(caseOrder, ev.CaseID)
		}
		byCase[ev.CaseID] = append(byCase[ev.CaseID], ev)
	}

	ont := e.norm.Ontology()
	var txs []domain.Transaction
	for _, caseID := range caseOrder {
		seq := byCase[caseID]
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Timestamp.Before(seq[j].Timestamp) })

		for i, ev := range seq {
			txs = append(txs, domain.Transaction{
				CaseID:     caseID,
				Date:       ev.Timestamp,
				Location:   ev.Location,
				Kind:       domain.TxIn,
				Quantity:   ev.Quantity,
				SourceFile: sourceFile,
			})

			if i == 0 {
				continue
			}
			kind := domain.TxTransferOut
			if ont.IsSite(ev.Location) {
				kind = domain.TxFinalOut
			}
			txs = append(txs, domain.Transaction{
				CaseID:     caseID,
				Date:       ev.Timestamp,
				Location:   seq[i-1].Location,
				Kind:       kind,
				Quantity:   ev.Quantity,
				SourceFile: sourceFile,
			})
		}
	}

	return txs
}

// LongTransactions ingests a long-format sheet where each row is one
// transaction, classified from its explicit type/status/quantity fields.
// Rows whose kind resolves to UNKNOWN are dropped; rows without a
// parseable date fall back to now(), which is logged because it breaks
// idempotence and should be treated as a data-quality finding.
func (e *Extractor) LongTransactions(sourceFile string, header []string, rows [][]string) ([]domain.Transaction, Stats) {
	var stats Stats
	stats.Rows = len(rows)

	mapping, err := DetectSchema(header, rows, e.norm)
	if err != nil {
		logger.Log.Warn().Err(err).Str("file", sourceFile).Msg("skipping file: schema detection failed")
		return nil, stats
	}
	if mapping.LocationCol < 0 || mapping.PlainDate < 0 {
		logger.Log.Warn().Str("file", sourceFile).Msg("skipping file: not a long-format transaction sheet")
		return nil, stats
	}

	quantities := e.caseQuantities(mapping, rows)

	var txs []domain.Transaction
	for rowIdx, row := range rows {
		caseID := cell(row, mapping.CaseCol)
		if caseID == "" {
			caseID = fmt.Sprintf("CASE_%d", rowIdx)
		}

		loc := e.norm.Normalize(cell(row, mapping.LocationCol))
		if loc == location.Unknown {
			stats.UnknownLoc++
			continue
		}

		ts, ok := ParseDate(cell(row, mapping.PlainDate))
		if !ok {
			ts = e.now()
			stats.NowFallback++
			logger.Log.Warn().Str("file", sourceFile).Int("row", rowIdx).Msg("missing date, falling back to current time")
		}

		fields := classify.Fields{
			TypeField:   cell(row, mapping.TypeCol),
			StatusField: statusField(mapping, row),
		}
		if signed, ok := signedQty(row, mapping.QtyCol); ok {
			fields.SignedQty = &signed
		}

		var kind domain.TxKind
		switch e.classifier.Classify(fields) {
		case classify.KindIn:
			kind = domain.TxIn
		case classify.KindTransfer:
			kind = domain.TxTransferOut
		case classify.KindOut:
			kind = domain.TxFinalOut
		default:
			stats.SkippedRows++
			continue
		}

		txs = append(txs, domain.Transaction{
			CaseID:     caseID,
			Date:       ts,
			Location:   loc,
			Kind:       kind,
			Quantity:   quantities[rowIdx],
			SourceFile: sourceFile,
		})
	}

	stats.Events = len(txs)
	return txs, stats
}

// caseQuantities resolves the per-row quantity with the case-group fill
// rule: zero means missing, missing values borrow the first known
// quantity of the same case (a physical case carries one quantity
// across all its rows), and the final default is 1.
func (e *Extractor) caseQuantities(mapping ColumnMapping, rows [][]string) []int {
	qty := make([]int, len(rows))
	known := make(map[string]int)

	if mapping.QtyCol >= 0 {
		for i, row := range rows {
			v := cell(row, mapping.QtyCol)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
			if err != nil {
				continue
			}
			q := int(math.Abs(math.Round(f)))
			if q == 0 {
				continue
			}
			qty[i] = q
			caseID := cell(row, mapping.CaseCol)
			if _, ok := known[caseID]; !ok {
				known[caseID] = q
			}
		}
	}

	for i, row := range rows {
		if qty[i] != 0 {
			continue
		}
		if q, ok := known[cell(row, mapping.CaseCol)]; ok {
			qty[i] = q
			continue
		}
		qty[i] = 1
	}

	return qty
}

// statusLocation resolves the structured current-location fields on a
// row, in the documented precedence: location, then current, then
// warehouse. Empty string means no status field was present.
func (e *Extractor) statusLocation(mapping ColumnMapping, row []string) string {
	for _, kind := range []string{"location", "current", "warehouse"} {
		idx, ok := mapping.StatusCols[kind]
		if !ok {
			continue
		}
		if v := cell(row, idx); v != "" {
			return e.norm.Normalize(v)
		}
	}
	return ""
}

func statusField(mapping ColumnMapping, row []string) string {
	if idx, ok := mapping.StatusCols["current"]; ok {
		return cell(row, idx)
	}
	return ""
}

func signedQty(row []string, qtyCol int) (float64, bool) {
	if qtyCol < 0 {
		return 0, false
	}
	v := cell(row, qtyCol)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
