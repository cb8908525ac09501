// internal/dedupe/dedupe.go
package dedupe

import (
	"sort"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/location"
	"github.com/hvdc-project/warehouse-flow/pkg/logger"
)

// Engine removes exact-duplicate transactions and repairs orphan
// transfer legs. Findings are collected into a ReconcileReport instead
// of raised: imperfect source sheets are the normal case, and the
// caller decides whether findings block the run.
type Engine struct {
	ont location.Ontology

	// Synthesize controls whether orphan TRANSFER_OUT legs get a
	// compensating inbound record (tagged Inferred) when a destination
	// can be determined. When false, orphans are only reported.
	Synthesize bool
}

// New returns an Engine with leg synthesis enabled. The ontology is
// needed to tell warehouse arrivals (transfer compensation) apart from
// site arrivals (final deliveries).
func New(ont location.Ontology) *Engine {
	return &Engine{ont: ont, Synthesize: true}
}

// Run deduplicates and reconciles the transaction set. The input slice
// is not mutated.
func (e *Engine) Run(txs []domain.Transaction) ([]domain.Transaction, domain.ReconcileReport) {
	report := domain.ReconcileReport{InputRows: len(txs)}

	deduped := dropExactDuplicates(txs, &report)
	repaired := e.reconcileOrphans(deduped, &report)
	e.validateTransferBalance(repaired, &report)

	if report.DuplicatesRemoved > 0 || len(report.Orphans) > 0 || len(report.Imbalances) > 0 {
		logger.Log.Warn().
			Int("duplicates_removed", report.DuplicatesRemoved).
			Int("orphans", len(report.Orphans)).
			Int("synthesized", report.SynthesizedLegs).
			Int("imbalanced_cases", len(report.Imbalances)).
			Msg("transfer reconciliation finished with findings")
	}

	return repaired, report
}

// dropExactDuplicates removes rows that are identical across all fields,
// which happens when the same export is ingested twice.
func dropExactDuplicates(txs []domain.Transaction, report *domain.ReconcileReport) []domain.Transaction {
	seen := make(map[domain.Transaction]struct{}, len(txs))
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx]; ok {
			report.DuplicatesRemoved++
			continue
		}
		seen[tx] = struct{}{}
		out = append(out, tx)
	}
	return out
}

// reconcileOrphans pairs every TRANSFER_OUT of a case with a later (or
// same-day) IN of equal quantity at another warehouse. Site arrivals
// are final deliveries and never complete a transfer. An unmatched leg
// is an orphan: the cargo left one warehouse with no arrival recorded
// anywhere. When the case has a later known warehouse the missing
// inbound is synthesized there so that net transfer flow sums to zero;
// otherwise the orphan is only reported.
func (e *Engine) reconcileOrphans(txs []domain.Transaction, report *domain.ReconcileReport) []domain.Transaction {
	byCase, caseOrder := groupByCase(txs)
	out := append([]domain.Transaction(nil), txs...)

	for _, caseID := range caseOrder {
		idxs := byCase[caseID]

		var outs, ins []int
		for _, i := range idxs {
			switch txs[i].Kind {
			case domain.TxTransferOut:
				outs = append(outs, i)
			case domain.TxIn:
				ins = append(ins, i)
			}
		}
		if len(outs) == 0 {
			continue
		}

		sort.SliceStable(outs, func(a, b int) bool { return txs[outs[a]].Date.Before(txs[outs[b]].Date) })
		sort.SliceStable(ins, func(a, b int) bool { return txs[ins[a]].Date.Before(txs[ins[b]].Date) })

		// Greedy chronological pairing. The first IN of a case is its
		// original arrival and never compensates a transfer.
		used := make(map[int]bool)
		for _, o := range outs {
			tx := txs[o]
			if e.pairWithIn(txs, ins, tx, used) {
				continue
			}

			orphan := domain.OrphanTransfer{
				CaseID:   tx.CaseID,
				Location: tx.Location,
				Date:     tx.Date,
				Quantity: tx.Quantity,
			}

			if e.Synthesize {
				if dest := e.nextLocationAfter(txs, idxs, tx); dest != "" {
					out = append(out, domain.Transaction{
						CaseID:     tx.CaseID,
						Date:       tx.Date,
						Location:   dest,
						Kind:       domain.TxIn,
						Quantity:   tx.Quantity,
						Inferred:   true,
						SourceFile: tx.SourceFile,
					})
					report.SynthesizedLegs++
					orphan.Repaired = true
				}
			}
			report.Orphans = append(report.Orphans, orphan)
		}
	}

	return out
}

func (e *Engine) pairWithIn(txs []domain.Transaction, ins []int, out domain.Transaction, used map[int]bool) bool {
	for k, in := range ins {
		if k == 0 || used[in] {
			continue
		}
		cand := txs[in]
		if e.ont.IsSite(cand.Location) {
			continue
		}
		if !cand.Date.Before(out.Date) && cand.Quantity == out.Quantity && cand.Location != out.Location {
			used[in] = true
			return true
		}
	}
	return false
}

// nextLocationAfter picks the destination for a synthesized inbound leg:
// the earliest warehouse the case is seen at on or after the transfer
// date, other than the transfer origin. Sites are excluded so a repair
// never fabricates a delivery.
func (e *Engine) nextLocationAfter(txs []domain.Transaction, idxs []int, ref domain.Transaction) string {
	best := -1
	for _, i := range idxs {
		tx := txs[i]
		if tx.Kind != domain.TxIn || tx.Location == ref.Location || tx.Date.Before(ref.Date) || e.ont.IsSite(tx.Location) {
			continue
		}
		if best < 0 || tx.Date.Before(txs[best].Date) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return txs[best].Location
}

// validateTransferBalance checks, per case, that transfer-out quantity
// nets out against compensating inbound quantity. Compensation means a
// warehouse arrival after the case's original one; site arrivals are
// final deliveries and never compensate a transfer.
func (e *Engine) validateTransferBalance(txs []domain.Transaction, report *domain.ReconcileReport) {
	type balance struct {
		out      int
		in       int
		arrivals int
	}
	balances := make(map[string]*balance)
	var caseOrder []string

	sorted := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for _, tx := range sorted {
		b, ok := balances[tx.CaseID]
		if !ok {
			b = &balance{}
			balances[tx.CaseID] = b
			caseOrder = append(caseOrder, tx.CaseID)
		}
		switch tx.Kind {
		case domain.TxTransferOut:
			b.out += tx.Quantity
		case domain.TxIn:
			b.arrivals++
			if b.arrivals > 1 && !e.ont.IsSite(tx.Location) {
				b.in += tx.Quantity
			}
		}
	}

	for _, caseID := range caseOrder {
		b := balances[caseID]
		if b.out == 0 {
			continue
		}
		if b.out != b.in {
			report.Imbalances = append(report.Imbalances, domain.CaseImbalance{
				CaseID:      caseID,
				TransferOut: b.out,
				TransferIn:  b.in,
			})
		}
	}
}

func groupByCase(txs []domain.Transaction) (map[string][]int, []string) {
	byCase := make(map[string][]int)
	var order []string
	for i, tx := range txs {
		if _, ok := byCase[tx.CaseID]; !ok {
			order = append(order, tx.CaseID)
		}
		byCase[tx.CaseID] = append(byCase[tx.CaseID], i)
	}
	return byCase, order
}
