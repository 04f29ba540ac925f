package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/ingestcas/internal/config"
	"github.com/nao1215/ingestcas/internal/model"
)

// missingURLMessage is the error message of entries skipped for lack of a URL.
const missingURLMessage = "Missing URL"

// Selection enables source categories for Flows.Run.
type Selection struct {
	Files bool
	Pages bool
	APIs  bool
}

// All selects every category.
var All = Selection{Files: true, Pages: true, APIs: true}

// Store is the part of the content-addressable store the flows use.
type Store interface {
	FileAcquirer
	ManifestSaver
}

// Flows runs the configured sources of each category.
type Flows struct {
	store   Store
	scraper PageScraper
	api     APIFetcher

	recorder Recorder
	reporter Reporter
	runID    string

	retry  RetryPolicy
	batch  *BatchProcessor
	logger *slog.Logger
	now    func() time.Time
}

// FlowOption configures Flows.
type FlowOption func(*Flows)

// WithRecorder records every acquired result under runID.
func WithRecorder(recorder Recorder, runID string) FlowOption {
	return func(f *Flows) {
		f.recorder = recorder
		f.runID = runID
	}
}

// WithRunID sets the run ID used in the summary when no recorder is set.
func WithRunID(runID string) FlowOption {
	return func(f *Flows) {
		f.runID = runID
	}
}

// WithReporter writes a report artifact for every successful result and
// for the run summary.
func WithReporter(reporter Reporter) FlowOption {
	return func(f *Flows) {
		f.reporter = reporter
	}
}

// WithRetryPolicy sets the retry policy of the acquire steps.
func WithRetryPolicy(p RetryPolicy) FlowOption {
	return func(f *Flows) {
		f.retry = p
	}
}

// WithBatchProcessor sets the processor that runs units concurrently.
func WithBatchProcessor(bp *BatchProcessor) FlowOption {
	return func(f *Flows) {
		f.batch = bp
	}
}

// WithFlowLogger sets the logger for unit outcomes.
func WithFlowLogger(logger *slog.Logger) FlowOption {
	return func(f *Flows) {
		f.logger = logger
	}
}

// WithFlowClock overrides the clock used for run timestamps.
func WithFlowClock(now func() time.Time) FlowOption {
	return func(f *Flows) {
		f.now = now
	}
}

// NewFlows creates Flows over the given store, scraper and API fetcher.
func NewFlows(store Store, scraper PageScraper, api APIFetcher, opts ...FlowOption) *Flows {
	f := &Flows{
		store:   store,
		scraper: scraper,
		api:     api,
		retry:   NoRetry,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.batch == nil {
		f.batch = NewBatchProcessor(WithBatchLogger(f.logger))
	}

	return f
}

// newPipeline assembles the steps every unit shares around acquire.
func (f *Flows) newPipeline(acquire ...Step) *Pipeline {
	p := New(WithLogger(f.logger), WithContinueOnError(true))
	p.AddSteps(acquire...)
	if f.recorder != nil {
		p.AddStep(NewRecordStep(f.recorder, f.runID))
	}
	if f.reporter != nil {
		p.AddStep(NewReportStep(f.reporter))
	}
	p.AddStep(NewLogStep(f.logger))
	return p
}

// RunFiles acquires every configured file into the store.
func (f *Flows) RunFiles(ctx context.Context, src config.FileDownloads) model.CategorySummary {
	units := make([]*Unit, len(src.FilesToAcquire))
	for i, entry := range src.FilesToAcquire {
		units[i] = &Unit{
			Category:      model.SourceFiles,
			Name:          entry.Name,
			URL:           entry.URL,
			DataSource:    src.DataSourceName,
			SourcePageURL: entry.SourcePageURL,
			LinkTitle:     entry.LinkTitle,
		}
	}
	p := f.newPipeline(NewAcquireFileStep(f.store, f.retry))
	return f.runUnits(ctx, model.SourceFiles, src.DataSourceName, units, p)
}

// RunPages scrapes every configured page and saves its manifest.
func (f *Flows) RunPages(ctx context.Context, src config.PageScraping) model.CategorySummary {
	units := make([]*Unit, len(src.PagesToScrape))
	for i, entry := range src.PagesToScrape {
		units[i] = &Unit{
			Category:   model.SourcePages,
			Name:       entry.Name,
			URL:        entry.URL,
			DataSource: src.DataSourceName,
		}
	}
	p := f.newPipeline(NewScrapePageStep(f.scraper, f.retry), NewSavePageManifestStep(f.store))
	return f.runUnits(ctx, model.SourcePages, src.DataSourceName, units, p)
}

// RunAPIs polls every configured API and extracts its key.
func (f *Flows) RunAPIs(ctx context.Context, src config.APIPolling) model.CategorySummary {
	units := make([]*Unit, len(src.APIsToPoll))
	for i, entry := range src.APIsToPoll {
		units[i] = &Unit{
			Category:   model.SourceAPIs,
			Name:       entry.Name,
			URL:        entry.URL,
			DataSource: src.DataSourceName,
			Params:     entry.Params,
			ExtractKey: entry.ExtractKey,
		}
	}
	p := f.newPipeline(NewFetchAPIStep(f.api, f.retry))
	return f.runUnits(ctx, model.SourceAPIs, src.DataSourceName, units, p)
}

// runUnits executes p for every unit with a URL and summarizes the
// outcomes in configuration order. Units without a URL are SKIPPED.
func (f *Flows) runUnits(ctx context.Context, category model.SourceCategory, dataSource string, units []*Unit, p *Pipeline) model.CategorySummary {
	outcomes := make([]model.ItemOutcome, len(units))

	_ = f.batch.Process(ctx, len(units), func(ctx context.Context, i int) { //nolint:errcheck // cancellation is reported per unit
		unit := units[i]
		if unit.URL == "" {
			f.logger.Warn("skipping entry without URL",
				"category", string(category),
				"name", unit.Name,
			)
			outcomes[i] = model.ItemOutcome{
				Name:         unit.Name,
				Status:       model.StatusSkipped,
				ErrorMessage: missingURLMessage,
			}
			return
		}
		_ = p.Execute(ctx, unit) //nolint:errcheck // step errors are logged by the pipeline
		outcomes[i] = unit.Outcome()
	})

	summary := model.NewCategorySummary(category, dataSource, outcomes)
	f.logger.Info("category finished",
		"category", string(category),
		"status", summary.Status.String(),
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary
}

// Run executes the selected categories of sources one after another and
// returns the run summary. A nil sources file yields a NO_SOURCES summary.
// When a reporter is set the summary is also written as an artifact.
func (f *Flows) Run(ctx context.Context, flowName, configPath string, sources *config.File, sel Selection) *model.RunSummary {
	summary := &model.RunSummary{
		RunID:      f.runID,
		FlowName:   flowName,
		ConfigPath: configPath,
		StartedAt:  model.NewUTCTime(f.now()),
		Status:     model.RunRunning,
	}

	f.logger.Info("run started", "run_id", f.runID, "flow", flowName)

	if sources != nil {
		if sel.Files {
			summary.Categories = append(summary.Categories, f.RunFiles(ctx, sources.ScheduledFileDownloads))
		}
		if sel.Pages {
			summary.Categories = append(summary.Categories, f.RunPages(ctx, sources.WebPageLinkScraping))
		}
		if sel.APIs {
			summary.Categories = append(summary.Categories, f.RunAPIs(ctx, sources.PublicAPIData))
		}
	}

	summary.FinishedAt = model.NewUTCTime(f.now())
	summary.Finalize()

	if f.reporter != nil {
		path, err := f.reporter.ReportRun(summary)
		if err != nil {
			f.logger.Error("failed to write run summary", "error", err)
		} else {
			f.logger.Info("run summary written", "path", path)
		}
	}

	total, succeeded, failed, skipped := summary.Totals()
	f.logger.Info("run finished",
		"run_id", f.runID,
		"status", summary.Status.String(),
		"total", total,
		"succeeded", succeeded,
		"failed", failed,
		"skipped", skipped,
	)
	return summary
}
