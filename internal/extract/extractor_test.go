package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvdc-project/warehouse-flow/internal/classify"
	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/location"
)

func newTestExtractor() *Extractor {
	norm := location.NewNormalizer(location.DefaultOntology())
	return NewExtractor(norm, classify.New(classify.KindIn))
}

func wideHeader() []string {
	return []string{"Case No.", "Q'TY", "DSV Indoor Date", "DSV Outdoor Date", "DAS Date"}
}

func TestDetectSchemaWide(t *testing.T) {
	rows := [][]string{
		{"C1", "10", "2024-01-05", "", "2024-01-20"},
		{"C2", "4", "", "2024-02-01", ""},
	}

	norm := location.NewNormalizer(location.DefaultOntology())
	m, err := DetectSchema(wideHeader(), rows, norm)
	require.NoError(t, err)

	assert.Equal(t, 0, m.CaseCol)
	assert.Equal(t, 1, m.QtyCol)
	require.Len(t, m.DateCols, 3)
	assert.Equal(t, "DSV Indoor", m.DateCols[0].Warehouse)
	assert.Equal(t, "DSV Outdoor", m.DateCols[1].Warehouse)
	assert.Equal(t, "DAS", m.DateCols[2].Warehouse)
	assert.True(t, m.Wide())
}

func TestDetectSchemaFailures(t *testing.T) {
	norm := location.NewNormalizer(location.DefaultOntology())

	_, err := DetectSchema([]string{"Remarks", "Weight"}, nil, norm)
	assert.ErrorIs(t, err, ErrNoCaseColumn)

	_, err = DetectSchema([]string{"Case No.", "Weight"}, nil, norm)
	assert.ErrorIs(t, err, ErrNoDateColumns)
}

func TestDetectSchemaRejectsNonDateWarehouseColumn(t *testing.T) {
	header := []string{"Case No.", "DSV Indoor Date"}
	rows := [][]string{
		{"C1", "pending"},
		{"C2", "n/a"},
		{"C3", "tbd"},
	}

	norm := location.NewNormalizer(location.DefaultOntology())
	_, err := DetectSchema(header, rows, norm)
	assert.ErrorIs(t, err, ErrNoDateColumns)
}

func TestEventsOrderedPerCase(t *testing.T) {
	e := newTestExtractor()
	rows := [][]string{
		// DAS arrival is listed in a later column but happens first.
		{"C1", "10", "2024-01-20", "", "2024-01-05"},
	}

	events, stats := e.Events("test.xlsx", wideHeader(), rows)
	require.Len(t, events, 2)
	assert.Equal(t, "DAS", events[0].Location)
	assert.Equal(t, "DSV Indoor", events[1].Location)
	assert.True(t, events[0].Timestamp.Before(events[1].Timestamp))
	assert.Equal(t, 10, events[0].Quantity)
	assert.Equal(t, 2, stats.Events)
}

func TestEventsQuantityFillWithinCase(t *testing.T) {
	e := newTestExtractor()
	rows := [][]string{
		{"C1", "0", "2024-01-05", "", ""},  // zero treated as missing
		{"C1", "7", "", "2024-02-01", ""},  // known quantity for the case
		{"C2", "", "2024-01-10", "", ""},   // no quantity anywhere: default 1
	}

	events, _ := e.Events("test.xlsx", wideHeader(), rows)
	require.Len(t, events, 3)
	for _, ev := range events {
		if ev.CaseID == "C1" {
			assert.Equal(t, 7, ev.Quantity)
		}
		if ev.CaseID == "C2" {
			assert.Equal(t, 1, ev.Quantity)
		}
	}
}

func TestEventsStatusLocationOverride(t *testing.T) {
	e := newTestExtractor()
	header := []string{"Case No.", "Q'TY", "DSV Indoor Date", "Status_Location"}
	rows := [][]string{
		{"C1", "3", "2024-01-05", "MOSB"},
	}

	events, _ := e.Events("test.xlsx", header, rows)
	require.Len(t, events, 1)
	// The structured status field beats the header-derived warehouse.
	assert.Equal(t, "MOSB", events[0].Location)
}

func TestEventsMalformedFileYieldsEmpty(t *testing.T) {
	e := newTestExtractor()

	events, stats := e.Events("bad.xlsx", []string{"Remarks"}, [][]string{{"x"}})
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Rows)
}

func TestTransactionsFinalOutToSite(t *testing.T) {
	e := newTestExtractor()
	events := []domain.MovementEvent{
		{CaseID: "C1", Timestamp: date(2024, 1, 5), Location: "DSV Indoor", Quantity: 10},
		{CaseID: "C1", Timestamp: date(2024, 1, 20), Location: "DAS", Quantity: 10},
	}

	txs := e.Transactions(events, "test.xlsx")
	require.Len(t, txs, 3)

	assert.Equal(t, domain.TxIn, txs[0].Kind)
	assert.Equal(t, "DSV Indoor", txs[0].Location)

	assert.Equal(t, domain.TxIn, txs[1].Kind)
	assert.Equal(t, "DAS", txs[1].Location)

	// Departure from the warehouse toward a terminal site ends the
	// journey there.
	assert.Equal(t, domain.TxFinalOut, txs[2].Kind)
	assert.Equal(t, "DSV Indoor", txs[2].Location)
	assert.Equal(t, date(2024, 1, 20), txs[2].Date)
}

func TestTransactionsTransferBetweenWarehouses(t *testing.T) {
	e := newTestExtractor()
	events := []domain.MovementEvent{
		{CaseID: "C1", Timestamp: date(2024, 1, 5), Location: "DSV Indoor", Quantity: 5},
		{CaseID: "C1", Timestamp: date(2024, 1, 12), Location: "MOSB", Quantity: 5},
	}

	txs := e.Transactions(events, "test.xlsx")
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TxTransferOut, txs[2].Kind)
	assert.Equal(t, "DSV Indoor", txs[2].Location)
}

func TestLongTransactionsClassified(t *testing.T) {
	e := newTestExtractor()
	header := []string{"Case No.", "Qty", "Date", "Location", "Status"}
	rows := [][]string{
		{"C1", "5", "2024-03-01", "DSV Indoor", "Received"},
		{"C1", "5", "2024-03-10", "DSV Indoor", "WH Transfer"},
		{"C2", "2", "2024-03-02", "MOSB", "Delivery"},
		{"C3", "1", "2024-03-05", "Nowhere Yard", "Received"},
	}

	txs, stats := e.LongTransactions("tx.xlsx", header, rows)
	require.Len(t, txs, 3)
	assert.Equal(t, domain.TxIn, txs[0].Kind)
	assert.Equal(t, domain.TxTransferOut, txs[1].Kind)
	assert.Equal(t, domain.TxFinalOut, txs[2].Kind)
	assert.Equal(t, 1, stats.UnknownLoc)
}

func TestLongTransactionsNowFallback(t *testing.T) {
	e := newTestExtractor()
	fixed := date(2025, 6, 1)
	e.now = func() time.Time { return fixed }

	header := []string{"Case No.", "Qty", "Date", "Location"}
	rows := [][]string{
		{"C1", "5", "not a date", "DSV Indoor"},
	}

	txs, stats := e.LongTransactions("tx.xlsx", header, rows)
	require.Len(t, txs, 1)
	assert.Equal(t, fixed, txs[0].Date)
	assert.Equal(t, 1, stats.NowFallback)
}

func TestParseDateFormats(t *testing.T) {
	for _, v := range []string{"2024-01-05", "2024/01/05", "01/05/2024", "1/5/2024", "5-Jan-24"} {
		ts, ok := ParseDate(v)
		require.True(t, ok, v)
		assert.Equal(t, 2024, ts.Year(), v)
		assert.Equal(t, time.January, ts.Month(), v)
	}

	// Excel serial for 2024-01-05.
	ts, ok := ParseDate("45296")
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 5), ts)

	_, ok = ParseDate("hello")
	assert.False(t, ok)
	_, ok = ParseDate("12")
	assert.False(t, ok)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
