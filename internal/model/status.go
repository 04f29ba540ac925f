package model

// Status is the outcome tag carried by every processing result.
// Callers branch on Status rather than on Go errors.
type Status string

// Acquisition statuses.
const (
	StatusSuccess Status = "SUCCESS"

	// File acquisition failures, in pipeline order.
	StatusFailedDownload Status = "FAILED_DOWNLOAD"
	StatusFailedHashing  Status = "FAILED_HASHING"
	StatusFailedStorage  Status = "FAILED_STORAGE"

	// Page scraping failures.
	StatusFailedFetch   Status = "FAILED_FETCH"
	StatusFailedNoHTML  Status = "FAILED_NO_HTML"
	StatusFailedParsing Status = "FAILED_PARSING"

	// API fetching failures. These keep the failure kind distinct instead
	// of collapsing everything into "no data".
	StatusFailedHTTPStatus Status = "FAILED_HTTP_STATUS"
	StatusFailedNetwork    Status = "FAILED_NETWORK"
	StatusFailedDecode     Status = "FAILED_DECODE"

	// StatusFailedValidation means required input was missing or malformed.
	StatusFailedValidation Status = "FAILED_VALIDATION"

	// StatusSkipped is used by the orchestrator for entries it never ran,
	// such as configuration entries without a URL.
	StatusSkipped Status = "SKIPPED"
)

// String returns the status as it appears in manifests and reports.
func (s Status) String() string {
	return string(s)
}

// IsSuccess reports whether s is StatusSuccess.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// ErrorCategory classifies the failure behind a non-success status.
type ErrorCategory string

// Error categories.
const (
	CategoryNone       ErrorCategory = ""
	CategoryNetwork    ErrorCategory = "network"
	CategoryHTTPStatus ErrorCategory = "http_status"
	CategoryIO         ErrorCategory = "io"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryParse      ErrorCategory = "parse"
	CategoryValidation ErrorCategory = "validation"
	CategoryCancelled  ErrorCategory = "cancelled"
)

// String returns the category name.
func (c ErrorCategory) String() string {
	return string(c)
}
