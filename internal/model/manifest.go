package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Manifest constants shared by writers and readers.
const (
	// SchemaVersion is written into every manifest as manifest_schema_version.
	SchemaVersion = "1.0.0"

	// StorageTypeLocalCAS identifies the local content-addressable layout.
	StorageTypeLocalCAS = "local_cas"

	// PlaceholderStoragePath marks a file manifest whose storage path has not
	// been filled in yet. A persisted manifest never carries it.
	PlaceholderStoragePath = "placeholder"

	// ManifestSuffix is appended to a stored filename to name its manifest.
	ManifestSuffix = ".manifest.json"

	// ScrapedPagesDir is the per-data-source directory holding page manifests.
	ScrapedPagesDir = "scraped_pages_manifests"
)

// FileManifestEntry is the provenance record for one stored file.
// It is persisted next to the file as {filename}.manifest.json.
//
// The entry is built after hashing with StoragePath set to
// PlaceholderStoragePath and completed once the file has been moved into
// its final CAS location.
type FileManifestEntry struct {
	// DataSourceName is the logical source grouping, e.g. "project_alpha_demo_files".
	DataSourceName string `json:"data_source_name"`

	// OriginalFilename is the sanitized filename used for storage.
	OriginalFilename string `json:"original_filename"`

	// SourceURL is the URL the file was downloaded from.
	SourceURL string `json:"source_url"`

	// SourcePageURL is the page that linked to the file, if known.
	SourcePageURL string `json:"source_page_url,omitempty"`

	// LinkTitle is the anchor text of the link, if known.
	LinkTitle string `json:"link_title,omitempty"`

	ContentHash   string `json:"content_hash"`
	HashAlgorithm string `json:"hash_algorithm"`

	// StoragePath is the absolute path of the stored file.
	StoragePath string `json:"storage_path"`
	StorageType string `json:"storage_type"`

	DownloadTimestampUTC UTCTime `json:"download_timestamp_utc"`
	FileSizeBytes        int64   `json:"file_size_bytes"`

	// ContentType is the MIME type reported by the server, if any.
	ContentType string `json:"content_type,omitempty"`

	// HTTPHeaders holds a selected subset of response headers.
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	// MediaMetadata holds EXIF tags for image files.
	MediaMetadata map[string]string `json:"media_metadata,omitempty"`

	ManifestSchemaVersion string `json:"manifest_schema_version"`
}

// IsPlaceholder reports whether the storage path is still unset.
func (e *FileManifestEntry) IsPlaceholder() bool {
	return e.StoragePath == "" || e.StoragePath == PlaceholderStoragePath
}

// ScrapedPageManifestEntry is the provenance record for one scraped page.
type ScrapedPageManifestEntry struct {
	DataSourceName string `json:"data_source_name"`
	OriginalURL    string `json:"original_url"`

	// ScrapeTimestampUTC is taken when the manifest is persisted.
	ScrapeTimestampUTC UTCTime `json:"scrape_timestamp_utc"`

	// CanonicalURL is serialized as null when absent.
	CanonicalURL     *string `json:"canonical_url"`
	CanonicalURLHash string  `json:"canonical_url_hash"`
	HashAlgorithm    string  `json:"hash_algorithm"`

	ExtractedLinksCount int      `json:"extracted_links_count"`
	ExtractedLinks      []string `json:"extracted_links"`

	// ManifestPath is the absolute path this manifest was written to.
	ManifestPath string `json:"manifest_path"`

	StatusOfScrape     Status `json:"status_of_scrape"`
	ScrapeErrorMessage string `json:"scrape_error_message,omitempty"`

	ManifestSchemaVersion string `json:"manifest_schema_version"`
}

// EncodeManifest writes v as indented JSON followed by a newline.
func EncodeManifest(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// DecodeFileManifest decodes a FileManifestEntry from r.
func DecodeFileManifest(r io.Reader) (*FileManifestEntry, error) {
	var entry FileManifestEntry
	if err := json.NewDecoder(r).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode file manifest: %w", err)
	}
	return &entry, nil
}

// DecodeScrapedPageManifest decodes a ScrapedPageManifestEntry from r.
func DecodeScrapedPageManifest(r io.Reader) (*ScrapedPageManifestEntry, error) {
	var entry ScrapedPageManifestEntry
	if err := json.NewDecoder(r).Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to decode page manifest: %w", err)
	}
	return &entry, nil
}

// ReadFileManifest reads and decodes the file manifest at path.
func ReadFileManifest(path string) (*FileManifestEntry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the CAS walker
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return DecodeFileManifest(f)
}

// ReadScrapedPageManifest reads and decodes the page manifest at path.
func ReadScrapedPageManifest(path string) (*ScrapedPageManifestEntry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the CAS walker
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return DecodeScrapedPageManifest(f)
}
