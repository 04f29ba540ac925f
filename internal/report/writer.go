package report

import (
	"fmt"
	"io"

	"github.com/nao1215/ingestcas/internal/model"
)

// Writer defines the interface for report output.
// Implementations write one artifact per call.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or buffers
// with the same API.
type Writer interface {
	// WriteFile reports a stored file. The manifest path is taken from the
	// result.
	WriteFile(result model.FileResult) (int, error)

	// WriteScrape reports a scraped page and its page manifest.
	WriteScrape(result model.ScrapeResult, dataSource, manifestPath string) (int, error)

	// WriteAPI reports the fields extracted from an API response.
	WriteAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (int, error)

	// WriteRunSummary reports the outcome of a whole run.
	WriteRunSummary(summary *model.RunSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteFile reports the file to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteFile(result model.FileResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteFile(result) })
}

// WriteScrape reports the page to all configured Writers.
func (m *MultiWriter) WriteScrape(result model.ScrapeResult, dataSource, manifestPath string) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteScrape(result, dataSource, manifestPath) })
}

// WriteAPI reports the API data to all configured Writers.
func (m *MultiWriter) WriteAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteAPI(result, name, dataSource, extracted) })
}

// WriteRunSummary reports the run to all configured Writers.
func (m *MultiWriter) WriteRunSummary(summary *model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRunSummary(summary) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// checkReportable rejects results that did not succeed.
func checkReportable(status model.Status, what string) error {
	if !status.IsSuccess() {
		return fmt.Errorf("%w: %s has status %s", ErrNotReportable, what, status)
	}
	return nil
}
