package model

// FileResult is the outcome of acquiring one file into the CAS.
// On SUCCESS every field is populated. On failure only the fields known at
// the point of failure are set; StoragePath is set for FAILED_STORAGE so the
// caller can find the stored file that lacks a manifest.
type FileResult struct {
	Status     Status `json:"status"`
	URL        string `json:"url"`
	DataSource string `json:"data_source"`

	OriginalFilename string `json:"original_filename,omitempty"`
	ContentHash      string `json:"content_hash,omitempty"`
	HashAlgorithm    string `json:"hash_algorithm,omitempty"`
	StoragePath      string `json:"storage_path,omitempty"`
	ManifestPath     string `json:"manifest_path,omitempty"`
	FileSizeBytes    int64  `json:"file_size_bytes,omitempty"`
	ContentType      string `json:"content_type,omitempty"`

	// HTTPHeaders holds every response header. The manifest keeps only a
	// selected subset.
	HTTPHeaders          map[string]string `json:"http_headers,omitempty"`
	DownloadTimestampUTC UTCTime           `json:"download_timestamp_utc"`

	// HTTPStatusCode is set when the download failed with a non-2xx status.
	HTTPStatusCode int `json:"http_status_code,omitempty"`

	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// ScrapeResult is the outcome of extracting links and the canonical URL
// from one HTML page.
type ScrapeResult struct {
	Status      Status `json:"status"`
	OriginalURL string `json:"original_url"`

	// HTTPStatusCode is set when the fetch failed with a non-2xx status.
	HTTPStatusCode int `json:"http_status_code,omitempty"`

	// CanonicalURL is the declared canonical link when valid, otherwise the
	// original URL. It is nil only for failed results.
	CanonicalURL *string `json:"canonical_url"`

	// CanonicalDeclared is true when the page carried a usable
	// <link rel="canonical">.
	CanonicalDeclared bool `json:"canonical_declared"`

	CanonicalURLHash string   `json:"canonical_url_hash,omitempty"`
	HashAlgorithm    string   `json:"hash_algorithm,omitempty"`
	ExtractedLinks   []string `json:"extracted_links"`

	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// CanonicalOrOriginal returns the canonical URL when set and the original
// URL otherwise.
func (r *ScrapeResult) CanonicalOrOriginal() string {
	if r.CanonicalURL != nil && *r.CanonicalURL != "" {
		return *r.CanonicalURL
	}
	return r.OriginalURL
}

// APIResult is the outcome of fetching one JSON endpoint.
// Failure kinds stay distinguishable through Status; Body is only set on
// SUCCESS and BodyExcerpt only on FAILED_HTTP_STATUS.
type APIResult struct {
	Status     Status `json:"status"`
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`

	// Body is the decoded JSON document. Objects decode to map[string]any.
	Body any `json:"body,omitempty"`

	// BodyExcerpt is the leading part of a non-2xx response body.
	BodyExcerpt string `json:"body_excerpt,omitempty"`

	FetchedAtUTC UTCTime `json:"fetched_at_utc"`

	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
}

// Object returns Body as a JSON object, or nil if it is not one.
func (r *APIResult) Object() map[string]any {
	obj, _ := r.Body.(map[string]any)
	return obj
}
