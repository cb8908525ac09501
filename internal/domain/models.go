// internal/domain/models.go
package domain

import "time"

// TxKind is the refined transaction kind carried by a Transaction.
// IN covers every arrival; outbound movements are split by whether the
// cargo left the warehouse network (FINAL_OUT) or moved to another
// warehouse (TRANSFER_OUT).
type TxKind string

const (
	TxIn          TxKind = "IN"
	TxTransferOut TxKind = "TRANSFER_OUT"
	TxFinalOut    TxKind = "FINAL_OUT"
)

// MovementEvent is one arrival of a case at a location, extracted from a
// single (row, date-column) cell of a wide-format sheet. Immutable once
// created.
type MovementEvent struct {
	CaseID       string    `json:"case_id"`
	Timestamp    time.Time `json:"timestamp"`
	Location     string    `json:"location"`
	Quantity     int       `json:"quantity"`
	SourceColumn string    `json:"source_column"`
}

// Transaction is a single inventory movement derived from consecutive
// MovementEvents of the same case. Inferred marks records synthesized
// during transfer reconciliation rather than extracted from source data.
type Transaction struct {
	CaseID     string    `json:"case_id" db:"case_id"`
	Date       time.Time `json:"date" db:"tx_date"`
	Location   string    `json:"location" db:"location"`
	Kind       TxKind    `json:"kind" db:"kind"`
	Quantity   int       `json:"quantity" db:"quantity"`
	Inferred   bool      `json:"inferred" db:"inferred"`
	SourceFile string    `json:"source_file" db:"source_file"`
}

// StockRecord is the per-(location, bucket) balance row produced by the
// inventory engine. Closing = Opening + Inbound - TotalOutbound always
// holds, and Opening of a bucket equals Closing of the previous one.
type StockRecord struct {
	Location      string    `json:"location" db:"location"`
	Bucket        time.Time `json:"bucket" db:"bucket"`
	OpeningStock  int       `json:"opening_stock" db:"opening_stock"`
	Inbound       int       `json:"inbound" db:"inbound"`
	TransferOut   int       `json:"transfer_out" db:"transfer_out"`
	FinalOut      int       `json:"final_out" db:"final_out"`
	TotalOutbound int       `json:"total_outbound" db:"total_outbound"`
	ClosingStock  int       `json:"closing_stock" db:"closing_stock"`
}

// MonthlySummary is the month-granularity KPI row per location.
// TurnoverRate divides outbound by closing stock, substituting 1 for a
// zero closing stock to keep the ratio defined.
type MonthlySummary struct {
	Location     string    `json:"location" db:"location"`
	Month        time.Time `json:"month" db:"month"`
	Inbound      int       `json:"inbound" db:"inbound"`
	Outbound     int       `json:"outbound" db:"outbound"`
	NetChange    int       `json:"net_change" db:"net_change"`
	ClosingStock int       `json:"closing_stock" db:"closing_stock"`
	TurnoverRate float64   `json:"turnover_rate" db:"turnover_rate"`
}

// SiteDelivery is the per-site, per-month delivered quantity. Sites are
// delivery destinations, not inventory locations, so they are reported
// here instead of in StockRecords.
type SiteDelivery struct {
	Site     string    `json:"site" db:"site"`
	Month    time.Time `json:"month" db:"month"`
	Quantity int       `json:"quantity" db:"quantity"`
}

// LocationCheck is the validation outcome for a single location:
// engine-computed closing stock against an externally audited figure.
type LocationCheck struct {
	Location string `json:"location"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
	Delta    int    `json:"delta"`
	Match    bool   `json:"match"`
}

// ValidationReport aggregates per-location checks into an overall pass
// rate. It is a report value, never an error: mismatches are expected
// with imperfect source data.
type ValidationReport struct {
	Checks      []LocationCheck `json:"checks"`
	Matches     int             `json:"matches"`
	Total       int             `json:"total"`
	PassRate    float64         `json:"pass_rate"`
	Tolerance   int             `json:"tolerance"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
}

// OrphanTransfer is a TRANSFER_OUT leg with no compensating inbound leg
// for the same case.
type OrphanTransfer struct {
	CaseID   string    `json:"case_id"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Repaired bool      `json:"repaired"`
}

// CaseImbalance records a case whose transfer-out quantities do not net
// out against its compensating inbound quantities after reconciliation.
type CaseImbalance struct {
	CaseID      string `json:"case_id"`
	TransferOut int    `json:"transfer_out"`
	TransferIn  int    `json:"transfer_in"`
}

// ReconcileReport is the structured outcome of deduplication and orphan
// transfer repair. The pipeline continues regardless of its contents;
// callers decide whether findings are blocking.
type ReconcileReport struct {
	InputRows         int              `json:"input_rows"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	Orphans           []OrphanTransfer `json:"orphans"`
	SynthesizedLegs   int              `json:"synthesized_legs"`
	Imbalances        []CaseImbalance  `json:"imbalances"`
}

// StockFilter narrows stock record queries served by the API.
type StockFilter struct {
	Locations []string  `json:"locations"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// StockDashboard bundles the pieces the reporting frontend renders on one
// screen.
type StockDashboard struct {
	Latest   []StockRecord    `json:"latest"`
	Monthly  []MonthlySummary `json:"monthly"`
	Sites    []SiteDelivery   `json:"site_deliveries"`
	Unknowns int              `json:"unknown_location_rows"`
	AsOf     time.Time        `json:"as_of"`
}
