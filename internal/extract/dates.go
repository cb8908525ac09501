// internal/extract/dates.go
package extract

import (
	"strconv"
	"strings"
	"time"
)

// Layouts seen across the warehouse exports. Day-first layouts are not
// attempted: the source sheets are consistently month-first or ISO.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// Excel serial dates count days since 1899-12-30. Anything inside this
// window is treated as a serial rather than a bare number.
const (
	serialMin = 20000 // 1954-09-19
	serialMax = 80000 // 2118-12-31
)

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses a raw cell value as a date. It accepts the known
// text layouts plus numeric Excel serials, which excelize yields for
// unformatted date cells.
func ParseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial >= serialMin && serial <= serialMax {
			days := int(serial)
			frac := serial - float64(days)
			t := serialEpoch.AddDate(0, 0, days)
			return t.Add(time.Duration(frac * 24 * float64(time.Hour))), true
		}
	}

	return time.Time{}, false
}
