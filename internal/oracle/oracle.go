// internal/oracle/oracle.go

// Package oracle loads externally audited stock figures used to validate
// the inventory engine's computed balances. The source file is YAML
// keyed by date, then location:
//
//	"2024-01-31":
//	  DSV Indoor: 413
//	  MOSB: 708
package oracle

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Book holds audited per-location stock snapshots keyed by date.
type Book struct {
	snapshots map[time.Time]map[string]int
}

// Load reads and parses an expected-stock YAML file.
func Load(path string) (*Book, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oracle: read %s: %w", path, err)
	}

	var doc map[string]map[string]int
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("oracle: parse %s: %w", path, err)
	}

	book := &Book{snapshots: make(map[time.Time]map[string]int, len(doc))}
	for key, locs := range doc {
		ts, err := time.Parse(dateLayout, key)
		if err != nil {
			return nil, fmt.Errorf("oracle: bad date key %q in %s: %w", key, path, err)
		}
		book.snapshots[ts] = locs
	}
	return book, nil
}

// Expected returns the audited figures for an exact snapshot date.
func (b *Book) Expected(date time.Time) (map[string]int, bool) {
	snap, ok := b.snapshots[date]
	return snap, ok
}

// Latest returns the most recent snapshot and its date. ok is false for
// an empty book.
func (b *Book) Latest() (time.Time, map[string]int, bool) {
	var latest time.Time
	for ts := range b.snapshots {
		if ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return time.Time{}, nil, false
	}
	return latest, b.snapshots[latest], true
}

// Dates lists the snapshot dates in ascending order.
func (b *Book) Dates() []time.Time {
	out := make([]time.Time, 0, len(b.snapshots))
	for ts := range b.snapshots {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
