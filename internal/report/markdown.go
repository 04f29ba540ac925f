package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/ingestcas/internal/model"
)

const (
	// MaxManifestExcerpt is the number of manifest characters embedded in a
	// report before it is cut off.
	MaxManifestExcerpt = 2000

	// MaxListedLinks is the number of extracted links listed per page.
	MaxListedLinks = 20

	truncationMarker = "\n... (manifest truncated)"
	notAvailable     = "N/A"
)

// MarkdownWriter outputs reports in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, the same way for every artifact kind, so that manifests,
// link lists and summary tables all render consistently.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteFile outputs a summary of a stored file and its manifest.
func (w *MarkdownWriter) WriteFile(result model.FileResult) (int, error) {
	if err := checkReportable(result.Status, "file "+result.URL); err != nil {
		return 0, err
	}
	md := markdown.NewMarkdown(w.output)

	name := orNA(result.OriginalFilename)
	md.H3("File Downloaded & Manifested: " + name)
	md.PlainText("")
	md.BulletList(
		field("Data Source", result.DataSource),
		field("Original URL", result.URL),
		field("Download Timestamp (UTC)", result.DownloadTimestampUTC.String()),
		field("Content Hash ("+orNA(result.HashAlgorithm)+")", result.ContentHash),
		field("Storage Path", result.StoragePath),
		field("File Size", sizeText(result.FileSizeBytes)),
		field("Content-Type", result.ContentType),
	)
	md.PlainText("")
	w.writeManifest(md, result.ManifestPath)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteScrape outputs the links and canonical URL of a scraped page.
func (w *MarkdownWriter) WriteScrape(result model.ScrapeResult, dataSource, manifestPath string) (int, error) {
	if err := checkReportable(result.Status, "page "+result.OriginalURL); err != nil {
		return 0, err
	}
	md := markdown.NewMarkdown(w.output)

	canonical := "Not declared, original URL used"
	if result.CanonicalDeclared {
		canonical = result.CanonicalOrOriginal()
	}

	md.H3("Web Page Scrape Summary: " + result.OriginalURL)
	md.PlainText("")
	md.BulletList(
		field("Data Source", dataSource),
		field("Original URL", result.OriginalURL),
		field("Canonical URL", canonical),
		field("Canonical URL Hash ("+orNA(result.HashAlgorithm)+")", result.CanonicalURLHash),
	)
	md.PlainText("")

	w.writeLinks(md, result.ExtractedLinks)
	w.writeManifest(md, manifestPath)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteAPI outputs the record extracted from an API response.
func (w *MarkdownWriter) WriteAPI(result model.APIResult, name, dataSource string, extracted map[string]any) (int, error) {
	if err := checkReportable(result.Status, "api "+result.URL); err != nil {
		return 0, err
	}
	if len(extracted) == 0 {
		return 0, fmt.Errorf("%w: api %s has no extracted data", ErrNotReportable, result.URL)
	}
	data, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode extracted data: %w", err)
	}

	md := markdown.NewMarkdown(w.output)
	md.H3("API Data Polled: " + orNA(name))
	md.PlainText("")
	md.BulletList(
		field("Data Source", dataSource),
		field("API URL", result.URL),
		field("HTTP Status", strconv.Itoa(result.StatusCode)),
		field("Poll Timestamp (UTC)", result.FetchedAtUTC.String()),
	)
	md.PlainText("")
	md.H4("Parsed Data")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightJSON, string(data))
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteRunSummary outputs the overall outcome of a run.
func (w *MarkdownWriter) WriteRunSummary(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	total, succeeded, failed, skipped := summary.Totals()

	md.H2("Ingestion Summary: " + orNA(summary.FlowName))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + orNA(summary.RunID) + "`"},
			{"Overall Status", "`" + summary.Status.String() + "`"},
			{"Started (UTC)", summary.StartedAt.String()},
			{"Finished (UTC)", summary.FinishedAt.String()},
			{"Duration", summary.FinishedAt.Sub(summary.StartedAt.Time).String()},
			{"Configuration", orNA(summary.ConfigPath)},
		},
	})
	md.PlainText("")

	switch summary.Status {
	case model.RunCompletedWithErrors:
		md.Warningf("%d of %d unit(s) failed.", failed, total)
	case model.RunNoSources:
		md.Note("No sources were configured for this run.")
	default:
		md.Tip("All units completed without errors.")
	}
	md.PlainText("")

	if total > 0 {
		w.writePieChart(md, succeeded, failed, skipped)
	}

	w.writeCategories(md, summary.Categories)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeLinks lists the first MaxListedLinks links.
func (w *MarkdownWriter) writeLinks(md *markdown.Markdown, links []string) {
	md.H4(fmt.Sprintf("Extracted Links (%d)", len(links)))
	md.PlainText("")

	if len(links) == 0 {
		md.PlainText("_No links extracted from the page._")
		md.PlainText("")
		return
	}

	shown := links
	if len(shown) > MaxListedLinks {
		shown = shown[:MaxListedLinks]
	}
	items := make([]string, 0, len(shown)+1)
	for _, link := range shown {
		items = append(items, "`"+link+"`")
	}
	if rest := len(links) - len(shown); rest > 0 {
		items = append(items, fmt.Sprintf("...and %d more (see manifest for full list).", rest))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeManifest embeds the manifest found at path, or a note explaining
// why it could not be.
func (w *MarkdownWriter) writeManifest(md *markdown.Markdown, path string) {
	if path == "" {
		md.PlainText("*No manifest path provided.*")
		md.PlainText("")
		return
	}

	md.BulletList(field("Manifest Path", path))
	md.PlainText("")

	excerpt, err := manifestExcerpt(path)
	if err != nil {
		md.PlainTextf("*Manifest content could not be read: %v*", err)
		md.PlainText("")
		return
	}

	md.H4("Manifest Content")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightJSON, excerpt)
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of unit outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, succeeded, failed, skipped int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Unit Outcomes"),
		piechart.WithShowData(true),
	)

	if succeeded > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(succeeded))
	}
	if failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(skipped))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeCategories writes the per-category table and the failed units.
func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, categories []model.CategorySummary) {
	md.H3("Category Details")
	md.PlainText("")

	if len(categories) == 0 {
		md.PlainText("No categories were run.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(categories))
	for i, c := range categories {
		rows[i] = []string{
			string(c.Category),
			orDash(c.DataSource),
			c.Status.String(),
			humanize.Comma(int64(c.Total)),
			humanize.Comma(int64(c.Succeeded)),
			humanize.Comma(int64(c.Failed)),
			humanize.Comma(int64(c.Skipped)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Data Source", "Status", "Total", "Succeeded", "Failed", "Skipped"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, c := range categories {
		var failedRows [][]string
		for _, item := range c.Items {
			if item.Status.IsSuccess() || item.Status == model.StatusSkipped {
				continue
			}
			failedRows = append(failedRows, []string{
				orDash(item.Name),
				orDash(item.URL),
				item.Status.String(),
				truncateString(orDash(item.ErrorMessage), 80),
			})
		}
		if len(failedRows) == 0 {
			continue
		}
		md.H4("Failures: " + string(c.Category))
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Name", "URL", "Status", "Error"},
			Rows:   failedRows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [ingestcas](https://github.com/nao1215/ingestcas)*")
}

// manifestExcerpt reads the manifest at path, re-indents it and cuts it
// to MaxManifestExcerpt characters.
func manifestExcerpt(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from our own store
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("manifest is not valid JSON: %w", err)
	}

	content := []rune(buf.String())
	if len(content) <= MaxManifestExcerpt {
		return string(content), nil
	}
	return string(content[:MaxManifestExcerpt]) + truncationMarker, nil
}

func field(label, value string) string {
	return "**" + label + ":** `" + orNA(value) + "`"
}

func sizeText(size int64) string {
	if size < 0 {
		return notAvailable
	}
	return humanize.IBytes(uint64(size)) + " (" + humanize.Comma(size) + " bytes)"
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
