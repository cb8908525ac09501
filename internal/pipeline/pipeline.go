// internal/pipeline/pipeline.go

// Package pipeline wires the stages together: workbook loading, event
// extraction, reconciliation, balance computation, reporting and
// persistence. One malformed source file never fails a batch; it is
// logged and skipped.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hvdc-project/warehouse-flow/internal/classify"
	"github.com/hvdc-project/warehouse-flow/internal/config"
	"github.com/hvdc-project/warehouse-flow/internal/dedupe"
	"github.com/hvdc-project/warehouse-flow/internal/domain"
	"github.com/hvdc-project/warehouse-flow/internal/excel"
	"github.com/hvdc-project/warehouse-flow/internal/extract"
	"github.com/hvdc-project/warehouse-flow/internal/inventory"
	"github.com/hvdc-project/warehouse-flow/internal/location"
	"github.com/hvdc-project/warehouse-flow/internal/oracle"
	"github.com/hvdc-project/warehouse-flow/internal/report"
	"github.com/hvdc-project/warehouse-flow/internal/service"
	"github.com/hvdc-project/warehouse-flow/internal/storage"
	"github.com/hvdc-project/warehouse-flow/pkg/logger"
)

// Result bundles everything one batch run produced.
type Result struct {
	Transactions []domain.Transaction
	Daily        []domain.StockRecord
	Monthly      []domain.MonthlySummary
	Sites        []domain.SiteDelivery
	Reconcile    domain.ReconcileReport
	Validation   *domain.ValidationReport
	ReportPath   string
	FilesLoaded  int
	FilesSkipped int
	UnknownRows  int
}

// Options configures an Orchestrator. Store and Archive are optional;
// a nil value disables that stage.
type Options struct {
	Ontology  location.Ontology
	Classify  *classify.Classifier
	Tolerance int
	// Expected holds audited stock figures; nil disables validation.
	Expected *oracle.Book
	// Synthesize toggles orphan transfer repair.
	Synthesize bool
	Workers    int
	// ReportDir receives the generated workbook; empty disables the
	// report stage.
	ReportDir string
	Store     *service.StockService
	Archive   storage.ObjectStorage
	Now       func() time.Time
}

type Orchestrator struct {
	norm      *location.Normalizer
	extractor *extract.Extractor
	dedupe    *dedupe.Engine
	engine    *inventory.Engine
	agg       *inventory.MonthlyAggregator
	opts      Options
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Classify == nil {
		opts.Classify = classify.New(classify.KindIn)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = inventory.DefaultTolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	norm := location.NewNormalizer(opts.Ontology)
	engine := inventory.NewEngine(opts.Ontology)
	if opts.Workers > 0 {
		engine.Workers = opts.Workers
	}
	ded := dedupe.New(opts.Ontology)
	ded.Synthesize = opts.Synthesize

	return &Orchestrator{
		norm:      norm,
		extractor: extract.NewExtractor(norm, opts.Classify),
		dedupe:    ded,
		engine:    engine,
		agg:       inventory.NewMonthlyAggregator(engine),
		opts:      opts,
	}
}

// FromConfig builds an Orchestrator from application config, loading
// the ontology and expected-stock files when configured.
func FromConfig(cfg *config.Config, store *service.StockService, archive storage.ObjectStorage) (*Orchestrator, error) {
	ont := location.DefaultOntology()
	if cfg.Engine.OntologyFile != "" {
		loaded, err := location.LoadOntology(cfg.Engine.OntologyFile)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load ontology: %w", err)
		}
		ont = loaded
	}

	var expected *oracle.Book
	if cfg.Engine.ExpectedStockFile != "" {
		book, err := oracle.Load(cfg.Engine.ExpectedStockFile)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load expected stock: %w", err)
		}
		expected = book
	}

	defaultKind := classify.KindIn
	if strings.EqualFold(cfg.Engine.DefaultKind, "UNKNOWN") {
		defaultKind = classify.KindUnknown
	}

	return NewOrchestrator(Options{
		Ontology:   ont,
		Classify:   classify.New(defaultKind),
		Tolerance:  cfg.Engine.Tolerance,
		Expected:   expected,
		Synthesize: cfg.Engine.SynthesizeLegs,
		Workers:    cfg.Engine.Workers,
		ReportDir:  cfg.App.ReportDir,
		Store:      store,
		Archive:    archive,
	}), nil
}

// RunDir processes every xlsx file in dir.
func (o *Orchestrator) RunDir(ctx context.Context, dir string) (*Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: scan %s: %w", dir, err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		logger.Log.Warn().Str("dir", dir).Msg("no xlsx files found")
	}
	return o.Run(ctx, paths)
}

// Run executes the full batch over the given files.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{}

	var txs []domain.Transaction
	for _, path := range paths {
		fileTxs, stats, err := o.ingestFile(path)
		if err != nil {
			logger.Log.Warn().Err(err).Str("file", path).Msg("skipping unreadable file")
			result.FilesSkipped++
			continue
		}
		if len(fileTxs) == 0 {
			result.FilesSkipped++
		} else {
			result.FilesLoaded++
		}
		result.UnknownRows += stats.UnknownLoc
		txs = append(txs, fileTxs...)
	}

	repaired, reconcile := o.dedupe.Run(txs)
	result.Transactions = repaired
	result.Reconcile = reconcile

	daily, err := o.engine.DailyStock(repaired, inventory.Options{})
	if err != nil {
		return nil, fmt.Errorf("pipeline: daily stock: %w", err)
	}
	result.Daily = daily

	monthly, err := o.agg.Summaries(repaired, inventory.Options{})
	if err != nil {
		return nil, fmt.Errorf("pipeline: monthly summary: %w", err)
	}
	result.Monthly = monthly
	result.Sites = o.agg.SiteDeliveries(repaired)

	if o.opts.Expected != nil {
		if _, snap, ok := o.opts.Expected.Latest(); ok {
			rep := inventory.Validate(inventory.ClosingByLocation(daily), snap, o.opts.Tolerance)
			result.Validation = &rep
		}
	}

	if o.opts.ReportDir != "" {
		path := filepath.Join(o.opts.ReportDir, report.FileName(o.opts.Now()))
		wb := report.Workbook{
			Daily:      result.Daily,
			Monthly:    result.Monthly,
			Sites:      result.Sites,
			Reconcile:  result.Reconcile,
			Validation: result.Validation,
		}
		if err := report.Write(path, wb); err != nil {
			return nil, fmt.Errorf("pipeline: write report: %w", err)
		}
		result.ReportPath = path

		if o.opts.Archive != nil {
			if s3, ok := o.opts.Archive.(*storage.S3Client); ok {
				if err := s3.ArchiveFile(ctx, path); err != nil {
					logger.Log.Warn().Err(err).Str("report", path).Msg("report archive failed")
				}
			}
		}
	}

	if o.opts.Store != nil {
		if err := o.opts.Store.StoreRun(ctx, result.Daily, result.Monthly, result.Sites, result.Validation); err != nil {
			return nil, fmt.Errorf("pipeline: store run: %w", err)
		}
	}

	logger.Log.Info().
		Int("files_loaded", result.FilesLoaded).
		Int("files_skipped", result.FilesSkipped).
		Int("transactions", len(result.Transactions)).
		Int("stock_records", len(result.Daily)).
		Msg("pipeline run finished")

	return result, nil
}

// ingestFile loads one workbook and turns it into transactions, picking
// wide or long format from the detected schema.
func (o *Orchestrator) ingestFile(path string) ([]domain.Transaction, extract.Stats, error) {
	table, err := excel.Load(path)
	if err != nil {
		return nil, extract.Stats{}, err
	}

	mapping, err := extract.DetectSchema(table.Header, table.Rows, o.norm)
	if err != nil {
		logger.Log.Warn().Err(err).Str("file", path).Msg("schema detection failed")
		return nil, extract.Stats{}, nil
	}

	if mapping.Wide() {
		events, stats := o.extractor.Events(path, table.Header, table.Rows)
		return o.extractor.Transactions(events, path), stats, nil
	}
	txs, stats := o.extractor.LongTransactions(path, table.Header, table.Rows)
	return txs, stats, nil
}

// RunFiles implements the API upload contract: process the files and
// shape the outcome as a dashboard payload.
func (o *Orchestrator) RunFiles(ctx context.Context, paths []string) (*domain.StockDashboard, error) {
	result, err := o.Run(ctx, paths)
	if err != nil {
		return nil, err
	}

	latest := make([]domain.StockRecord, 0)
	for loc, closing := range inventory.ClosingByLocation(result.Daily) {
		latest = append(latest, domain.StockRecord{Location: loc, ClosingStock: closing})
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].Location < latest[j].Location })

	return &domain.StockDashboard{
		Latest:   latest,
		Monthly:  result.Monthly,
		Sites:    result.Sites,
		Unknowns: result.UnknownRows,
		AsOf:     o.opts.Now().UTC(),
	}, nil
}
