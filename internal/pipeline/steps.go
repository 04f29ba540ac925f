package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"

	"github.com/nao1215/ingestcas/internal/apifetch"
	"github.com/nao1215/ingestcas/internal/cas"
	"github.com/nao1215/ingestcas/internal/log"
	"github.com/nao1215/ingestcas/internal/model"
)

// FileAcquirer stores files in the content-addressable store.
// *cas.Store implements it.
type FileAcquirer interface {
	AcquireFile(ctx context.Context, req cas.FileRequest) model.FileResult
}

// ManifestSaver writes scraped page manifests. *cas.Store implements it.
type ManifestSaver interface {
	SavePageManifest(result model.ScrapeResult, dataSource string) (string, error)
}

// PageScraper fetches a page and extracts its links. *crawler.Fetcher
// implements it.
type PageScraper interface {
	Scrape(ctx context.Context, pageURL string) model.ScrapeResult
}

// APIFetcher fetches JSON documents. *apifetch.Fetcher implements it.
type APIFetcher interface {
	FetchJSON(ctx context.Context, rawURL string, params url.Values) model.APIResult
}

// Recorder persists results in the run history. *database.HistoryDB
// implements it.
type Recorder interface {
	RecordFile(ctx context.Context, runID string, r model.FileResult) error
	RecordScrape(ctx context.Context, runID string, r model.ScrapeResult, dataSource, manifestPath string) error
	RecordAPI(ctx context.Context, runID string, r model.APIResult, name, dataSource string) error
}

// Reporter writes one report artifact per result. *report.DirWriter
// implements it.
type Reporter interface {
	ReportFile(result model.FileResult) (string, error)
	ReportScrape(result model.ScrapeResult, dataSource, manifestPath string) (string, error)
	ReportAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (string, error)
	ReportRun(summary *model.RunSummary) (string, error)
}

// AcquireFileStep downloads the unit's file into the store.
type AcquireFileStep struct {
	acquirer FileAcquirer
	retry    RetryPolicy
}

// NewAcquireFileStep creates a new file acquisition step.
func NewAcquireFileStep(acquirer FileAcquirer, retry RetryPolicy) *AcquireFileStep {
	return &AcquireFileStep{acquirer: acquirer, retry: retry}
}

// Name returns the step name.
func (s *AcquireFileStep) Name() string {
	return "acquire_file"
}

// Do acquires the file, retrying transient failures.
func (s *AcquireFileStep) Do(ctx context.Context, unit *Unit) error {
	req := cas.FileRequest{
		URL:           unit.URL,
		DataSource:    unit.DataSource,
		SourcePageURL: unit.SourcePageURL,
		LinkTitle:     unit.LinkTitle,
	}

	var result model.FileResult
	unit.Attempts, _ = s.retry.Do(ctx, func(ctx context.Context) error {
		result = s.acquirer.AcquireFile(ctx, req)
		return errorFromResult(result.Status, result.ErrorCategory, result.HTTPStatusCode, result.ErrorMessage)
	}, IsRetryableResult)
	unit.File = &result
	return nil
}

// ScrapePageStep fetches the unit's page and extracts its links.
type ScrapePageStep struct {
	scraper PageScraper
	retry   RetryPolicy
}

// NewScrapePageStep creates a new page scraping step.
func NewScrapePageStep(scraper PageScraper, retry RetryPolicy) *ScrapePageStep {
	return &ScrapePageStep{scraper: scraper, retry: retry}
}

// Name returns the step name.
func (s *ScrapePageStep) Name() string {
	return "scrape_page"
}

// Do scrapes the page, retrying transient fetch failures.
func (s *ScrapePageStep) Do(ctx context.Context, unit *Unit) error {
	var result model.ScrapeResult
	unit.Attempts, _ = s.retry.Do(ctx, func(ctx context.Context) error {
		result = s.scraper.Scrape(ctx, unit.URL)
		return errorFromResult(result.Status, result.ErrorCategory, result.HTTPStatusCode, result.ErrorMessage)
	}, IsRetryableResult)
	unit.Scrape = &result
	return nil
}

// SavePageManifestStep writes the manifest of a successfully scraped page.
type SavePageManifestStep struct {
	saver ManifestSaver
}

// NewSavePageManifestStep creates a new manifest step.
func NewSavePageManifestStep(saver ManifestSaver) *SavePageManifestStep {
	return &SavePageManifestStep{saver: saver}
}

// Name returns the step name.
func (s *SavePageManifestStep) Name() string {
	return "save_page_manifest"
}

// Do writes the manifest. A write failure turns the unit into a
// FAILED_STORAGE result, since the scrape left no durable trace.
func (s *SavePageManifestStep) Do(_ context.Context, unit *Unit) error {
	if unit.Scrape == nil || !unit.Scrape.Status.IsSuccess() {
		return nil
	}
	path, err := s.saver.SavePageManifest(*unit.Scrape, unit.DataSource)
	if err != nil {
		unit.Scrape.Status = model.StatusFailedStorage
		unit.Scrape.ErrorCategory = model.Categorize(err)
		unit.Scrape.ErrorMessage = err.Error()
		return nil
	}
	unit.ManifestPath = path
	return nil
}

// FetchAPIStep polls the unit's API and extracts the configured key.
type FetchAPIStep struct {
	fetcher APIFetcher
	retry   RetryPolicy
}

// NewFetchAPIStep creates a new API fetch step.
func NewFetchAPIStep(fetcher APIFetcher, retry RetryPolicy) *FetchAPIStep {
	return &FetchAPIStep{fetcher: fetcher, retry: retry}
}

// Name returns the step name.
func (s *FetchAPIStep) Name() string {
	return "fetch_api"
}

// Do fetches the document, retrying transient failures, and extracts the
// unit's key from a successful response.
func (s *FetchAPIStep) Do(ctx context.Context, unit *Unit) error {
	params := make(url.Values, len(unit.Params))
	for _, k := range slices.Sorted(maps.Keys(unit.Params)) {
		params.Set(k, unit.Params[k])
	}

	var result model.APIResult
	unit.Attempts, _ = s.retry.Do(ctx, func(ctx context.Context) error {
		result = s.fetcher.FetchJSON(ctx, unit.URL, params)
		return errorFromResult(result.Status, result.ErrorCategory, result.StatusCode, result.ErrorMessage)
	}, IsRetryableResult)
	unit.API = &result

	if result.Status.IsSuccess() {
		unit.Extracted = apifetch.ExtractField(result.Object(), unit.ExtractKey)
	}
	return nil
}

// RecordStep writes the unit's result to the run history.
type RecordStep struct {
	recorder Recorder
	runID    string
}

// NewRecordStep creates a new history step for runID.
func NewRecordStep(recorder Recorder, runID string) *RecordStep {
	return &RecordStep{recorder: recorder, runID: runID}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record_history"
}

// Do records whichever result the unit carries.
func (s *RecordStep) Do(ctx context.Context, unit *Unit) error {
	var err error
	switch {
	case unit.File != nil:
		err = s.recorder.RecordFile(ctx, s.runID, *unit.File)
	case unit.Scrape != nil:
		err = s.recorder.RecordScrape(ctx, s.runID, *unit.Scrape, unit.DataSource, unit.ManifestPath)
	case unit.API != nil:
		err = s.recorder.RecordAPI(ctx, s.runID, *unit.API, unit.Name, unit.DataSource)
	}
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", unit.URL, err)
	}
	return nil
}

// ReportStep writes the report artifact of a successful unit.
type ReportStep struct {
	reporter Reporter
}

// NewReportStep creates a new report step.
func NewReportStep(reporter Reporter) *ReportStep {
	return &ReportStep{reporter: reporter}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "write_report"
}

// Do writes the artifact. Failed units and API responses without
// extracted data get no artifact.
func (s *ReportStep) Do(_ context.Context, unit *Unit) error {
	if !unit.Status().IsSuccess() {
		return nil
	}

	var (
		path string
		err  error
	)
	switch {
	case unit.File != nil:
		path, err = s.reporter.ReportFile(*unit.File)
	case unit.Scrape != nil:
		path, err = s.reporter.ReportScrape(*unit.Scrape, unit.DataSource, unit.ManifestPath)
	case unit.API != nil:
		if len(unit.Extracted) == 0 {
			return nil
		}
		path, err = s.reporter.ReportAPI(*unit.API, unit.Name, unit.DataSource, unit.Extracted)
	}
	if err != nil {
		return fmt.Errorf("failed to write report for %s: %w", unit.URL, err)
	}
	unit.ArtifactPath = path
	return nil
}

// LogStep emits the one-line outcome of the unit.
type LogStep struct {
	logger *slog.Logger
}

// NewLogStep creates a new logging step.
func NewLogStep(logger *slog.Logger) *LogStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStep{logger: logger}
}

// Name returns the step name.
func (s *LogStep) Name() string {
	return "log_result"
}

// Do logs the unit's result.
func (s *LogStep) Do(_ context.Context, unit *Unit) error {
	switch {
	case unit.File != nil:
		log.LogFileResult(s.logger, *unit.File)
	case unit.Scrape != nil:
		log.LogScrapeResult(s.logger, *unit.Scrape, unit.ManifestPath)
	case unit.API != nil:
		log.LogAPIResult(s.logger, *unit.API, unit.Name)
	}
	return nil
}
