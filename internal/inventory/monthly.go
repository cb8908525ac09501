// internal/inventory/monthly.go
package inventory

import (
	"sort"
	"time"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
)

// MonthlyAggregator derives month-granularity KPI rows and site delivery
// summaries on top of the engine's balance walk.
type MonthlyAggregator struct {
	engine *Engine
}

func NewMonthlyAggregator(e *Engine) *MonthlyAggregator {
	return &MonthlyAggregator{engine: e}
}

// Summaries computes per-location monthly KPIs. Turnover divides
// outbound by closing stock; a zero closing stock substitutes 1 as the
// divisor so the rate stays defined.
func (a *MonthlyAggregator) Summaries(txs []domain.Transaction, opts Options) ([]domain.MonthlySummary, error) {
	records, err := a.engine.MonthlyStock(txs, opts)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MonthlySummary, 0, len(records))
	for _, rec := range records {
		divisor := rec.ClosingStock
		if divisor == 0 {
			divisor = 1
		}
		out = append(out, domain.MonthlySummary{
			Location:     rec.Location,
			Month:        rec.Bucket,
			Inbound:      rec.Inbound,
			Outbound:     rec.TotalOutbound,
			NetChange:    rec.Inbound - rec.TotalOutbound,
			ClosingStock: rec.ClosingStock,
			TurnoverRate: float64(rec.TotalOutbound) / float64(divisor),
		})
	}
	return out, nil
}

// SiteDeliveries sums quantity delivered to each terminal site per month,
// dense over the site's observed month range. Deliveries are site
// arrivals, so the input is IN transactions at site locations.
func (a *MonthlyAggregator) SiteDeliveries(txs []domain.Transaction) []domain.SiteDelivery {
	bySite := make(map[string]map[time.Time]int)
	var order []string

	for _, tx := range txs {
		if tx.Kind != domain.TxIn || !a.engine.ont.IsSite(tx.Location) {
			continue
		}
		months, ok := bySite[tx.Location]
		if !ok {
			months = make(map[time.Time]int)
			bySite[tx.Location] = months
			order = append(order, tx.Location)
		}
		months[truncate(tx.Date, Monthly)] += tx.Quantity
	}
	sort.Strings(order)

	var out []domain.SiteDelivery
	for _, site := range order {
		months := bySite[site]
		var first, last time.Time
		for m := range months {
			if first.IsZero() || m.Before(first) {
				first = m
			}
			if last.IsZero() || m.After(last) {
				last = m
			}
		}
		for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
			out = append(out, domain.SiteDelivery{
				Site:     site,
				Month:    m,
				Quantity: months[m],
			})
		}
	}
	return out
}
