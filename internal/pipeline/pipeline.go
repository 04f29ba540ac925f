package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/ingestcas/internal/model"
)

// Unit is one configured source entry moving through a pipeline.
// Steps fill in the fields they own; exactly one of File, Scrape and API
// is set by the acquire step of the unit's category.
type Unit struct {
	Category   model.SourceCategory
	Name       string
	URL        string
	DataSource string

	// Source entry details used by the acquire steps.
	SourcePageURL string
	LinkTitle     string
	Params        map[string]string
	ExtractKey    string

	// Attempts is the number of acquire attempts made.
	Attempts int

	File   *model.FileResult
	Scrape *model.ScrapeResult
	API    *model.APIResult

	// ManifestPath is the page manifest written for a scraped page.
	ManifestPath string

	// Extracted holds the fields extracted from an API response.
	Extracted map[string]any

	// ArtifactPath is the report artifact written for the unit.
	ArtifactPath string

	// Err is set when the pipeline stopped before the unit was acquired.
	Err error

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string
}

// Status returns the status of the unit's result. A unit that was never
// acquired reports the failure status of its category.
func (u *Unit) Status() model.Status {
	switch {
	case u.File != nil:
		return u.File.Status
	case u.Scrape != nil:
		return u.Scrape.Status
	case u.API != nil:
		return u.API.Status
	}
	switch u.Category {
	case model.SourceFiles:
		return model.StatusFailedDownload
	case model.SourcePages:
		return model.StatusFailedFetch
	default:
		return model.StatusFailedNetwork
	}
}

// Outcome summarizes the unit for the run summary.
func (u *Unit) Outcome() model.ItemOutcome {
	out := model.ItemOutcome{
		Name:         u.Name,
		URL:          u.URL,
		Status:       u.Status(),
		Attempts:     u.Attempts,
		ArtifactPath: u.ArtifactPath,
	}
	switch {
	case u.File != nil:
		out.ErrorCategory, out.ErrorMessage = u.File.ErrorCategory, u.File.ErrorMessage
	case u.Scrape != nil:
		out.ErrorCategory, out.ErrorMessage = u.Scrape.ErrorCategory, u.Scrape.ErrorMessage
	case u.API != nil:
		out.ErrorCategory, out.ErrorMessage = u.API.ErrorCategory, u.API.ErrorMessage
	case u.Err != nil:
		out.ErrorCategory = model.Categorize(u.Err)
		out.ErrorMessage = fmt.Sprintf("not started: %v", u.Err)
	}
	return out
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the unit as left by the
// previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry their dependencies (store, database, writer)
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step. A failed acquisition is not an error;
	// it is recorded in the unit's result. Errors are reserved for steps
	// that could not do their own work, such as a history write.
	Do(ctx context.Context, unit *Unit) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps for one unit.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
//
// Design decision: Flows enable this so that an unwritable report
// directory does not hide the history record, and vice versa.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked only before the first step. Once a unit has been
// acquired its history record and report are still written, so a result
// that exists on disk is never missing from the ledger.
//
// Returns the first step error if continueOnError is false, or the last
// one otherwise.
func (p *Pipeline) Execute(ctx context.Context, unit *Unit) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("unit cancelled before start",
			"name", unit.Name,
			"url", unit.URL,
			"reason", err,
		)
		unit.Err = err
		return err
	}

	var lastErr error
	for _, step := range p.steps {
		p.logger.Debug("executing step",
			"step", step.Name(),
			"name", unit.Name,
		)

		if err := step.Do(ctx, unit); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"name", unit.Name,
				"error", err,
			)
			lastErr = err
			if !p.continueOnError {
				return err
			}
		}

		unit.PerformedSteps = append(unit.PerformedSteps, step.Name())
	}

	return lastErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
