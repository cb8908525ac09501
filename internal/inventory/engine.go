// internal/inventory/engine.go
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/location"
)

// Hard failures. These indicate caller bugs, not bad source data; data
// quality findings travel in reports instead.
var (
	ErrInvalidRange     = errors.New("inventory: range start is after range end")
	ErrNegativeQuantity = errors.New("inventory: negative transaction quantity")
)

// Granularity selects the bucket size of a stock run.
type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

// Options narrows a stock computation. A zero From/To means the observed
// per-location range; when both are set they bound every location to the
// same window so reports line up column for column.
type Options struct {
	From time.Time
	To   time.Time
}

// Engine turns refined transactions into per-(location, bucket) running
// balances. Locations walk independently, so the walks run concurrently.
type Engine struct {
	ont location.Ontology

	// Workers caps concurrent per-location walks. Zero means no cap.
	Workers int
}

func NewEngine(ont location.Ontology) *Engine {
	return &Engine{ont: ont, Workers: 8}
}

// DailyStock computes day-granularity stock records. Buckets with no
// activity are still emitted, carrying the balance forward, so the
// output is dense over the range.
func (e *Engine) DailyStock(txs []domain.Transaction, opts Options) ([]domain.StockRecord, error) {
	return e.stock(txs, opts, Daily)
}

// MonthlyStock is DailyStock at month granularity.
func (e *Engine) MonthlyStock(txs []domain.Transaction, opts Options) ([]domain.StockRecord, error) {
	return e.stock(txs, opts, Monthly)
}

type bucketSums struct {
	inbound     int
	transferOut int
	finalOut    int
}

func (e *Engine) stock(txs []domain.Transaction, opts Options, g Granularity) ([]domain.StockRecord, error) {
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.From.After(opts.To) {
		return nil, ErrInvalidRange
	}

	byLoc, locOrder, err := e.groupWarehouseTxs(txs, g)
	if err != nil {
		return nil, err
	}
	if len(locOrder) == 0 {
		return nil, nil
	}

	results := make([][]domain.StockRecord, len(locOrder))
	var grp errgroup.Group
	if e.Workers > 0 {
		grp.SetLimit(e.Workers)
	}

	for i, loc := range locOrder {
		i, loc := i, loc
		sums := byLoc[loc]
		grp.Go(func() error {
			records, err := walkBalance(loc, sums, opts, g)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var out []domain.StockRecord
	for _, records := range results {
		out = append(out, records...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Bucket.Before(out[j].Bucket)
	})
	return out, nil
}

// groupWarehouseTxs buckets quantities per (location, bucket). Unknown
// locations are skipped and sites are excluded entirely: a site is a
// delivery destination, not stock-holding space.
func (e *Engine) groupWarehouseTxs(txs []domain.Transaction, g Granularity) (map[string]map[time.Time]*bucketSums, []string, error) {
	byLoc := make(map[string]map[time.Time]*bucketSums)
	var order []string

	for _, tx := range txs {
		if tx.Quantity < 0 {
			return nil, nil, fmt.Errorf("%w: case %s has quantity %d", ErrNegativeQuantity, tx.CaseID, tx.Quantity)
		}
		if tx.Location == "" || tx.Location == location.Unknown || e.ont.IsSite(tx.Location) {
			continue
		}

		buckets, ok := byLoc[tx.Location]
		if !ok {
			buckets = make(map[time.Time]*bucketSums)
			byLoc[tx.Location] = buckets
			order = append(order, tx.Location)
		}

		b := truncate(tx.Date, g)
		sums, ok := buckets[b]
		if !ok {
			sums = &bucketSums{}
			buckets[b] = sums
		}
		switch tx.Kind {
		case domain.TxIn:
			sums.inbound += tx.Quantity
		case domain.TxTransferOut:
			sums.transferOut += tx.Quantity
		case domain.TxFinalOut:
			sums.finalOut += tx.Quantity
		}
	}

	return byLoc, order, nil
}

// walkBalance enumerates the dense bucket range for one location and
// carries the balance bucket to bucket. The first opening stock is zero;
// every later opening equals the previous closing.
func walkBalance(loc string, sums map[time.Time]*bucketSums, opts Options, g Granularity) ([]domain.StockRecord, error) {
	if len(sums) == 0 {
		return nil, nil
	}

	first, last := observedRange(sums)
	if !opts.From.IsZero() {
		first = truncate(opts.From, g)
	}
	if !opts.To.IsZero() {
		last = truncate(opts.To, g)
	}
	if first.After(last) {
		return nil, ErrInvalidRange
	}

	var (
		records []domain.StockRecord
		balance int
	)
	for b := first; !b.After(last); b = next(b, g) {
		rec := domain.StockRecord{
			Location:     loc,
			Bucket:       b,
			OpeningStock: balance,
		}
		if s, ok := sums[b]; ok {
			rec.Inbound = s.inbound
			rec.TransferOut = s.transferOut
			rec.FinalOut = s.finalOut
		}
		rec.TotalOutbound = rec.TransferOut + rec.FinalOut
		rec.ClosingStock = rec.OpeningStock + rec.Inbound - rec.TotalOutbound
		balance = rec.ClosingStock
		records = append(records, rec)
	}
	return records, nil
}

func observedRange(sums map[time.Time]*bucketSums) (first, last time.Time) {
	for b := range sums {
		if first.IsZero() || b.Before(first) {
			first = b
		}
		if last.IsZero() || b.After(last) {
			last = b
		}
	}
	return first, last
}

func truncate(t time.Time, g Granularity) time.Time {
	if g == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func next(t time.Time, g Granularity) time.Time {
	if g == Monthly {
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}
