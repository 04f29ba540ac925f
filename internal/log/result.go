package log

import (
	"log/slog"

	"github.com/nao1215/ingestcas/internal/model"
)

// LogFileResult logs one line for a file acquisition: Info on success,
// Warn otherwise.
func LogFileResult(logger *slog.Logger, r model.FileResult) {
	if r.Status.IsSuccess() {
		logger.Info("file stored",
			"url", r.URL,
			"data_source", r.DataSource,
			"filename", r.OriginalFilename,
			"hash", r.ContentHash,
			"size", r.FileSizeBytes,
			"path", r.StoragePath,
		)
		return
	}
	logger.Warn("file acquisition failed",
		"url", r.URL,
		"data_source", r.DataSource,
		"status", r.Status.String(),
		"category", r.ErrorCategory.String(),
		"error", r.ErrorMessage,
	)
}

// LogScrapeResult logs one line for a page scrape.
func LogScrapeResult(logger *slog.Logger, r model.ScrapeResult, manifestPath string) {
	if r.Status.IsSuccess() {
		logger.Info("page scraped",
			"url", r.OriginalURL,
			"canonical", r.CanonicalOrOriginal(),
			"links", len(r.ExtractedLinks),
			"manifest", manifestPath,
		)
		return
	}
	logger.Warn("page scrape failed",
		"url", r.OriginalURL,
		"status", r.Status.String(),
		"category", r.ErrorCategory.String(),
		"error", r.ErrorMessage,
	)
}

// LogAPIResult logs one line for an API poll.
func LogAPIResult(logger *slog.Logger, r model.APIResult, name string) {
	if r.Status.IsSuccess() {
		logger.Info("api polled",
			"name", name,
			"url", r.URL,
			"status_code", r.StatusCode,
		)
		return
	}
	logger.Warn("api poll failed",
		"name", name,
		"url", r.URL,
		"status", r.Status.String(),
		"status_code", r.StatusCode,
		"category", r.ErrorCategory.String(),
		"error", r.ErrorMessage,
		"body_excerpt", r.BodyExcerpt,
	)
}
