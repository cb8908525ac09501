package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/location"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(d time.Time, loc string, kind domain.TxKind, qty int) domain.Transaction {
	return domain.Transaction{CaseID: "C", Date: d, Location: loc, Kind: kind, Quantity: qty}
}

func newTestEngine() *Engine {
	return NewEngine(location.DefaultOntology())
}

func TestDailyStockRunningBalance(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 1), "DSV Indoor", domain.TxIn, 10),
		tx(date(2024, 1, 3), "DSV Indoor", domain.TxTransferOut, 4),
		tx(date(2024, 1, 5), "DSV Indoor", domain.TxFinalOut, 2),
	}

	records, err := e.DailyStock(txs, Options{})
	require.NoError(t, err)

	// Dense over 2024-01-01..2024-01-05 even though only three days have
	// activity.
	require.Len(t, records, 5)

	for i, rec := range records {
		assert.Equal(t, rec.OpeningStock+rec.Inbound-rec.TotalOutbound, rec.ClosingStock)
		assert.Equal(t, rec.TransferOut+rec.FinalOut, rec.TotalOutbound)
		if i > 0 {
			assert.Equal(t, records[i-1].ClosingStock, rec.OpeningStock)
		}
	}

	assert.Equal(t, 0, records[0].OpeningStock)
	assert.Equal(t, 10, records[0].ClosingStock)
	assert.Equal(t, 10, records[1].ClosingStock) // zero-activity day carries forward
	assert.Equal(t, 6, records[2].ClosingStock)
	assert.Equal(t, 4, records[4].ClosingStock)
}

func TestStockIdempotent(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 1), "DSV Indoor", domain.TxIn, 10),
		tx(date(2024, 1, 3), "MOSB", domain.TxIn, 7),
		tx(date(2024, 1, 5), "DSV Indoor", domain.TxTransferOut, 4),
		tx(date(2024, 2, 2), "MZP", domain.TxIn, 12),
		tx(date(2024, 2, 9), "MOSB", domain.TxFinalOut, 3),
		tx(date(2024, 2, 14), "MZP", domain.TxTransferOut, 5),
	}

	// Per-location walks run concurrently; reruns over the same input
	// must still yield byte-for-byte identical record sequences.
	first, err := e.DailyStock(txs, Options{})
	require.NoError(t, err)
	second, err := e.DailyStock(txs, Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	firstMonthly, err := e.MonthlyStock(txs, Options{})
	require.NoError(t, err)
	secondMonthly, err := e.MonthlyStock(txs, Options{})
	require.NoError(t, err)
	assert.Equal(t, firstMonthly, secondMonthly)
}

func TestDailyStockExcludesSitesAndUnknown(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 1), "DSV Indoor", domain.TxIn, 10),
		tx(date(2024, 1, 2), "DAS", domain.TxIn, 10),
		tx(date(2024, 1, 3), location.Unknown, domain.TxIn, 3),
		tx(date(2024, 1, 4), "", domain.TxIn, 3),
	}

	records, err := e.DailyStock(txs, Options{})
	require.NoError(t, err)
	for _, rec := range records {
		assert.Equal(t, "DSV Indoor", rec.Location)
	}
}

func TestDailyStockExplicitWindow(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 10), "DSV Indoor", domain.TxIn, 5),
	}

	records, err := e.DailyStock(txs, Options{From: date(2024, 1, 8), To: date(2024, 1, 12)})
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, date(2024, 1, 8), records[0].Bucket)
	assert.Equal(t, 0, records[0].ClosingStock)
	assert.Equal(t, 5, records[4].ClosingStock)
}

func TestStockDeterministicOrder(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 2), "MOSB", domain.TxIn, 1),
		tx(date(2024, 1, 1), "DSV Indoor", domain.TxIn, 1),
		tx(date(2024, 1, 1), "AAA Storage", domain.TxIn, 1),
	}

	records, err := e.DailyStock(txs, Options{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "AAA Storage", records[0].Location)
	assert.Equal(t, "DSV Indoor", records[1].Location)
	assert.Equal(t, "MOSB", records[2].Location)
}

func TestStockHardErrors(t *testing.T) {
	e := newTestEngine()

	_, err := e.DailyStock(nil, Options{From: date(2024, 2, 1), To: date(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = e.DailyStock([]domain.Transaction{
		tx(date(2024, 1, 1), "DSV Indoor", domain.TxIn, -5),
	}, Options{})
	assert.ErrorIs(t, err, ErrNegativeQuantity)
}

func TestStockEmptyInput(t *testing.T) {
	e := newTestEngine()
	records, err := e.DailyStock(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMonthlyStockBuckets(t *testing.T) {
	e := newTestEngine()
	txs := []domain.Transaction{
		tx(date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx(date(2024, 1, 28), "DSV Indoor", domain.TxIn, 5),
		tx(date(2024, 3, 2), "DSV Indoor", domain.TxFinalOut, 6),
	}

	records, err := e.MonthlyStock(txs, Options{})
	require.NoError(t, err)
	require.Len(t, records, 3) // Jan, Feb, Mar dense

	assert.Equal(t, date(2024, 1, 1), records[0].Bucket)
	assert.Equal(t, 15, records[0].ClosingStock)
	assert.Equal(t, 15, records[1].ClosingStock)
	assert.Equal(t, 9, records[2].ClosingStock)
}

func TestMonthlySummaries(t *testing.T) {
	a := NewMonthlyAggregator(newTestEngine())
	txs := []domain.Transaction{
		tx(date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx(date(2024, 1, 20), "DSV Indoor", domain.TxTransferOut, 5),
	}

	sums, err := a.Summaries(txs, Options{})
	require.NoError(t, err)
	require.Len(t, sums, 1)

	s := sums[0]
	assert.Equal(t, 10, s.Inbound)
	assert.Equal(t, 5, s.Outbound)
	assert.Equal(t, 5, s.NetChange)
	assert.Equal(t, 5, s.ClosingStock)
	assert.InDelta(t, 1.0, s.TurnoverRate, 1e-9)
}

func TestTurnoverZeroClosingDivisor(t *testing.T) {
	a := NewMonthlyAggregator(newTestEngine())
	txs := []domain.Transaction{
		tx(date(2024, 1, 5), "DSV Indoor", domain.TxIn, 7),
		tx(date(2024, 1, 20), "DSV Indoor", domain.TxFinalOut, 7),
	}

	sums, err := a.Summaries(txs, Options{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 0, sums[0].ClosingStock)
	// Everything shipped out: rate is outbound over a divisor of 1.
	assert.InDelta(t, 7.0, sums[0].TurnoverRate, 1e-9)
}

func TestSiteDeliveriesDenseMonths(t *testing.T) {
	a := NewMonthlyAggregator(newTestEngine())
	txs := []domain.Transaction{
		tx(date(2024, 1, 10), "DAS", domain.TxIn, 4),
		tx(date(2024, 3, 2), "DAS", domain.TxIn, 6),
		tx(date(2024, 1, 15), "MIR", domain.TxIn, 2),
		tx(date(2024, 1, 15), "DSV Indoor", domain.TxIn, 9), // warehouse, not a delivery
	}

	deliveries := a.SiteDeliveries(txs)
	require.Len(t, deliveries, 4) // DAS Jan/Feb/Mar + MIR Jan

	assert.Equal(t, domain.SiteDelivery{Site: "DAS", Month: date(2024, 1, 1), Quantity: 4}, deliveries[0])
	assert.Equal(t, domain.SiteDelivery{Site: "DAS", Month: date(2024, 2, 1), Quantity: 0}, deliveries[1])
	assert.Equal(t, domain.SiteDelivery{Site: "DAS", Month: date(2024, 3, 1), Quantity: 6}, deliveries[2])
	assert.Equal(t, domain.SiteDelivery{Site: "MIR", Month: date(2024, 1, 1), Quantity: 2}, deliveries[3])
}

func TestValidateTolerance(t *testing.T) {
	actual := map[string]int{
		"DSV Indoor":  100,
		"DSV Outdoor": 57,
		"MOSB":        0,
	}
	expected := map[string]int{
		"DSV Indoor":  102, // delta -2, inside tolerance
		"DSV Outdoor": 50,  // delta +7, outside
		"MOSB":        1,   // delta -1, inside
	}

	report := Validate(actual, expected, DefaultTolerance)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Matches)
	assert.InDelta(t, 2.0/3.0, report.PassRate, 1e-9)
	assert.Equal(t, DefaultTolerance, report.Tolerance)

	// Checks come back sorted by location.
	require.Len(t, report.Checks, 3)
	assert.Equal(t, "DSV Indoor", report.Checks[0].Location)
	assert.True(t, report.Checks[0].Match)
	assert.Equal(t, "DSV Outdoor", report.Checks[1].Location)
	assert.False(t, report.Checks[1].Match)
	assert.Equal(t, 7, report.Checks[1].Delta)
}

func TestClosingByLocation(t *testing.T) {
	records := []domain.StockRecord{
		{Location: "DSV Indoor", Bucket: date(2024, 1, 1), ClosingStock: 10},
		{Location: "DSV Indoor", Bucket: date(2024, 1, 2), ClosingStock: 8},
		{Location: "MOSB", Bucket: date(2024, 1, 1), ClosingStock: 3},
	}

	closing := ClosingByLocation(records)
	assert.Equal(t, map[string]int{"DSV Indoor": 8, "MOSB": 3}, closing)
}
