// Package pipeline orchestrates ingestion runs.
//
// Every configured source entry becomes a Unit that passes through a
// Pipeline of steps: acquire (file download, page scrape or API fetch,
// retried under a RetryPolicy), save the page manifest, record the result
// in the history database, write the report artifact and log the outcome.
// Units of one category run concurrently under a BatchProcessor, and the
// outcomes of all categories are folded into a model.RunSummary.
//
// Design decision: The core packages (cas, crawler, apifetch) never retry
// and never log. Both happen here, at the process boundary, so the core
// operations stay deterministic and easy to test.
//
// A failing unit never cancels its siblings. Failures are carried in the
// unit's result status rather than in Go errors; step errors are reserved
// for the side channels (history, reports) and are logged, not propagated.
package pipeline
