// Package report renders ingestion outcomes as human-readable artifacts.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: Markdown summaries that embed the stored manifest
//   - JSONWriter: structured JSON output for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output. DirWriter places
// one artifact per result in a report directory, named by ArtifactKey.
//
// Only successful results are reported; anything else yields
// ErrNotReportable so callers can skip it without treating it as a failure.
package report
