package dedupe

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

func tx(caseID string, d time.Time, loc string, kind domain.TxKind, qty int) domain.Transaction {
	return domain.Transaction{CaseID: caseID, Date: d, Location: loc, Kind: kind, Quantity: qty}
}

func newEngine() *Engine {
	return New(location.DefaultOntology())
}

func TestExactDuplicateRemoval(t *testing.T) {
	e := newEngine()
	in := tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10)

	txs, report := e.Run([]domain.Transaction{in, in, in})

	assert.Len(t, txs, 1)
	assert.Equal(t, 2, report.DuplicatesRemoved)
	assert.Equal(t, 3, report.InputRows)
}

func TestBalancedTransferPassesClean(t *testing.T) {
	e := newEngine()
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "MOSB", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "DSV Indoor", domain.TxTransferOut, 10),
	}

	out, report := e.Run(txs)

	assert.Len(t, out, 3)
	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.Imbalances)
	assert.Zero(t, report.SynthesizedLegs)
}

func TestOrphanTransferSynthesized(t *testing.T) {
	e := newEngine()
	// The transfer out of DSV Indoor has no matching arrival, but the
	// case is later seen at MOSB with a different quantity row missing.
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "DSV Indoor", domain.TxTransferOut, 10),
		tx("C1", date(2024, 1, 20), "MOSB", domain.TxIn, 4),
	}

	out, report := e.Run(txs)

	require.Len(t, report.Orphans, 1)
	assert.True(t, report.Orphans[0].Repaired)
	assert.Equal(t, 1, report.SynthesizedLegs)

	// A compensating inbound leg was inserted at the next known
	// location, tagged as inferred.
	require.Len(t, out, 4)
	synth := out[3]
	assert.Equal(t, domain.TxIn, synth.Kind)
	assert.Equal(t, "MOSB", synth.Location)
	assert.Equal(t, 10, synth.Quantity)
	assert.True(t, synth.Inferred)

	// Net transfer flow sums to zero after repair, so no imbalance for
	// the synthesized quantity itself (the stray 4-unit arrival still
	// shows up).
	require.Len(t, report.Imbalances, 1)
	assert.Equal(t, 10, report.Imbalances[0].TransferOut)
	assert.Equal(t, 14, report.Imbalances[0].TransferIn)
}

func TestOrphanWithoutDestinationReportedOnly(t *testing.T) {
	e := newEngine()
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "DSV Indoor", domain.TxTransferOut, 10),
	}

	out, report := e.Run(txs)

	assert.Len(t, out, 2)
	require.Len(t, report.Orphans, 1)
	assert.False(t, report.Orphans[0].Repaired)
	assert.Zero(t, report.SynthesizedLegs)

	require.Len(t, report.Imbalances, 1)
	assert.Equal(t, "C1", report.Imbalances[0].CaseID)
	assert.Equal(t, 10, report.Imbalances[0].TransferOut)
	assert.Equal(t, 0, report.Imbalances[0].TransferIn)
}

func TestSynthesisDisabled(t *testing.T) {
	e := newEngine()
	e.Synthesize = false
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "DSV Indoor", domain.TxTransferOut, 10),
		tx("C1", date(2024, 1, 20), "MOSB", domain.TxIn, 4),
	}

	out, report := e.Run(txs)

	assert.Len(t, out, 3)
	require.Len(t, report.Orphans, 1)
	assert.False(t, report.Orphans[0].Repaired)
}

func TestSiteArrivalDoesNotCompensateTransfer(t *testing.T) {
	e := newEngine()
	// Indoor -> DAS is a final delivery; the dangling transfer out of
	// MOSB must not be considered compensated by the site arrival.
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "MOSB", domain.TxIn, 10),
		tx("C1", date(2024, 1, 12), "MOSB", domain.TxTransferOut, 10),
		tx("C1", date(2024, 1, 20), "DAS", domain.TxIn, 10),
	}

	out, report := e.Run(txs)

	// The site arrival neither pairs with the transfer out nor serves
	// as a synthesis destination: the leg stays an unrepaired orphan
	// and the case is flagged as imbalanced.
	assert.Len(t, out, 3)
	require.Len(t, report.Orphans, 1)
	assert.False(t, report.Orphans[0].Repaired)
	assert.Zero(t, report.SynthesizedLegs)

	require.Len(t, report.Imbalances, 1)
	assert.Equal(t, 10, report.Imbalances[0].TransferOut)
	assert.Equal(t, 0, report.Imbalances[0].TransferIn)
}

func TestMultiLegJourneyBalanced(t *testing.T) {
	e := newEngine()
	txs := []domain.Transaction{
		tx("C1", date(2024, 1, 5), "DSV Indoor", domain.TxIn, 6),
		tx("C1", date(2024, 1, 10), "MOSB", domain.TxIn, 6),
		tx("C1", date(2024, 1, 10), "DSV Indoor", domain.TxTransferOut, 6),
		tx("C1", date(2024, 1, 25), "DAS", domain.TxIn, 6),
		tx("C1", date(2024, 1, 25), "MOSB", domain.TxFinalOut, 6),
	}

	_, report := e.Run(txs)

	assert.Empty(t, report.Orphans)
	assert.Empty(t, report.Imbalances)
}

func TestEmptyInput(t *testing.T) {
	e := newEngine()
	out, report := e.Run(nil)
	assert.Empty(t, out)
	assert.Zero(t, report.InputRows)
}
