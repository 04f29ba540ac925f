// Package model defines the data structures shared across the ingestion
// pipeline.
//
// This package contains the following main types:
//   - FileManifestEntry: provenance record written next to every stored file
//   - ScrapedPageManifestEntry: provenance record for a scraped web page
//   - FileResult, ScrapeResult, APIResult: transient, status-tagged outcomes
//     handed back to whoever drives the acquisition
//   - UTCTime: a timestamp that always serializes as ISO-8601 with a Z suffix
//
// Manifests are the on-disk contract with downstream readers, so their JSON
// field names must not change without bumping SchemaVersion. Result types are
// never persisted as their own entity; the history database stores a
// flattened projection of them.
//
// We keep models in their own package to avoid circular dependencies: the
// cas, crawler, apifetch, report, database and pipeline packages all use them.
package model
