// internal/inventory/validate.go
package inventory

import (
	"sort"
	"time"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
)

// DefaultTolerance is the absolute delta (in units) a location may be
// off from its audited figure and still count as a match. Two units
// covers the rounding and late-posting noise seen in the source sheets.
const DefaultTolerance = 2

// ClosingByLocation reduces a stock run to each location's final closing
// balance, keyed by location.
func ClosingByLocation(records []domain.StockRecord) map[string]int {
	latest := make(map[string]time.Time)
	closing := make(map[string]int)
	for _, rec := range records {
		if ts, ok := latest[rec.Location]; !ok || rec.Bucket.After(ts) {
			latest[rec.Location] = rec.Bucket
			closing[rec.Location] = rec.ClosingStock
		}
	}
	return closing
}

// Validate compares computed closing stock against externally audited
// expected figures. Every expected location gets a check; mismatches are
// findings in the report, never errors.
func Validate(actual, expected map[string]int, tolerance int) domain.ValidationReport {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}

	locs := make([]string, 0, len(expected))
	for loc := range expected {
		locs = append(locs, loc)
	}
	sort.Strings(locs)

	report := domain.ValidationReport{
		Tolerance:   tolerance,
		EvaluatedAt: time.Now().UTC(),
	}
	for _, loc := range locs {
		want := expected[loc]
		got := actual[loc]
		delta := got - want
		check := domain.LocationCheck{
			Location: loc,
			Expected: want,
			Actual:   got,
			Delta:    delta,
			Match:    abs(delta) <= tolerance,
		}
		if check.Match {
			report.Matches++
		}
		report.Checks = append(report.Checks, check)
	}

	report.Total = len(report.Checks)
	if report.Total > 0 {
		report.PassRate = float64(report.Matches) / float64(report.Total)
	}
	return report
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
