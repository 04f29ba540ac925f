package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/ingestcas/internal/model"
)

// Format selects the artifact encoding.
type Format string

const (
	// FormatMarkdown writes Markdown artifacts.
	FormatMarkdown Format = "markdown"
	// FormatJSON writes pretty-printed JSON artifacts.
	FormatJSON Format = "json"
)

// ParseFormat parses a format name. The empty string selects Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", string(FormatMarkdown):
		return FormatMarkdown, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for artifacts of this format.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// DirWriter writes one artifact file per result into a directory.
// Artifacts are named by their artifact key, so reporting the same result
// twice replaces the earlier file. It is safe for concurrent use as long
// as concurrent calls report different results.
type DirWriter struct {
	dir    string
	format Format
}

// NewDirWriter creates dir if needed and returns a writer for it.
func NewDirWriter(dir string, format Format) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &DirWriter{dir: dir, format: format}, nil
}

// Dir returns the report directory.
func (d *DirWriter) Dir() string {
	return d.dir
}

// ReportFile writes the artifact for a stored file and returns its path.
func (d *DirWriter) ReportFile(result model.FileResult) (string, error) {
	return d.write(FileArtifactKey(result), func(w Writer) (int, error) {
		return w.WriteFile(result)
	})
}

// ReportScrape writes the artifact for a scraped page and returns its path.
func (d *DirWriter) ReportScrape(result model.ScrapeResult, dataSource, manifestPath string) (string, error) {
	return d.write(ScrapeArtifactKey(result, dataSource), func(w Writer) (int, error) {
		return w.WriteScrape(result, dataSource, manifestPath)
	})
}

// ReportAPI writes the artifact for an API poll and returns its path.
func (d *DirWriter) ReportAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (string, error) {
	return d.write(APIArtifactKey(result, name, dataSource), func(w Writer) (int, error) {
		return w.WriteAPI(result, name, dataSource, extracted)
	})
}

// ReportRun writes the run summary artifact and returns its path.
func (d *DirWriter) ReportRun(summary *model.RunSummary) (string, error) {
	return d.write(RunSummaryArtifactKey(summary), func(w Writer) (int, error) {
		return w.WriteRunSummary(summary)
	})
}

// write renders into memory first so that unreportable results leave no
// file behind.
func (d *DirWriter) write(key string, render func(Writer) (int, error)) (string, error) {
	var buf bytes.Buffer
	if _, err := render(d.writerFor(&buf)); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, key+d.format.Extension())
	if err := os.WriteFile(path, buf.Bytes(), 0o640); err != nil { //nolint:gosec // path is built from a cleaned key
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}

func (d *DirWriter) writerFor(buf *bytes.Buffer) Writer {
	if d.format == FormatJSON {
		return NewJSONWriter(buf, WithPrettyPrint())
	}
	return NewMarkdownWriter(buf)
}
