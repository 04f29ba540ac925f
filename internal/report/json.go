package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/ingestcas/internal/model"
)

// Artifact kinds recorded in JSON output.
const (
	KindFile       = "file"
	KindScrape     = "scrape"
	KindAPI        = "api"
	KindRunSummary = "run_summary"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the manifests themselves are encoding/json output
// and the artifacts should serialize model types identically.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Artifact wraps a single result with the context it was produced in.
type Artifact struct {
	Kind         string         `json:"kind"`
	Name         string         `json:"name,omitempty"`
	DataSource   string         `json:"data_source,omitempty"`
	ManifestPath string         `json:"manifest_path,omitempty"`
	Result       any            `json:"result"`
	Extracted    map[string]any `json:"extracted,omitempty"`
}

// WriteFile outputs a stored file result.
func (w *JSONWriter) WriteFile(result model.FileResult) (int, error) {
	if err := checkReportable(result.Status, "file "+result.URL); err != nil {
		return 0, err
	}
	return w.writeJSON(Artifact{
		Kind:         KindFile,
		Name:         result.OriginalFilename,
		DataSource:   result.DataSource,
		ManifestPath: result.ManifestPath,
		Result:       result,
	})
}

// WriteScrape outputs a scraped page result.
func (w *JSONWriter) WriteScrape(result model.ScrapeResult, dataSource, manifestPath string) (int, error) {
	if err := checkReportable(result.Status, "page "+result.OriginalURL); err != nil {
		return 0, err
	}
	return w.writeJSON(Artifact{
		Kind:         KindScrape,
		DataSource:   dataSource,
		ManifestPath: manifestPath,
		Result:       result,
	})
}

// WriteAPI outputs an API result with its extracted record.
func (w *JSONWriter) WriteAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (int, error) {
	if err := checkReportable(result.Status, "api "+result.URL); err != nil {
		return 0, err
	}
	if len(extracted) == 0 {
		return 0, fmt.Errorf("%w: api %s has no extracted data", ErrNotReportable, result.URL)
	}
	return w.writeJSON(Artifact{
		Kind:       KindAPI,
		Name:       name,
		DataSource: dataSource,
		Result:     result,
		Extracted:  extracted,
	})
}

// WriteRunSummary outputs the run summary.
func (w *JSONWriter) WriteRunSummary(summary *model.RunSummary) (int, error) {
	return w.writeJSON(Artifact{
		Kind:   KindRunSummary,
		Name:   summary.FlowName,
		Result: summary,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
