package config

import (
	"strings"
)

// Defaults for optional fields of the sources file.
const (
	DefaultFileDataSource = "demo_files"
	DefaultPageDataSource = "web_pages"
	DefaultAPIDataSource  = "public_apis"
	DefaultExtractKey     = "fact"
	unnamedFile           = "Unnamed File"
	unnamedPage           = "Unnamed Page"
	unnamedAPI            = "Unnamed API"
)

// File represents the structure of the sources file.
type File struct {
	// Storage overrides the store location and hash algorithm.
	Storage StorageConfig `yaml:"storage,omitempty"`

	// ScheduledFileDownloads lists files to acquire into the store.
	ScheduledFileDownloads FileDownloads `yaml:"scheduled_file_downloads,omitempty"`

	// WebPageLinkScraping lists pages whose links are extracted.
	WebPageLinkScraping PageScraping `yaml:"web_page_link_scraping,omitempty"`

	// PublicAPIData lists JSON APIs to poll.
	PublicAPIData APIPolling `yaml:"public_api_data,omitempty"`

	// Headers maps a host (or "*" for every host) to extra request headers.
	Headers map[string]map[string]string `yaml:"headers,omitempty"`
}

// StorageConfig configures the content-addressable store.
type StorageConfig struct {
	// CASRoot is resolved relative to the sources file when not absolute.
	CASRoot       string `yaml:"cas_root,omitempty"`
	HashAlgorithm string `yaml:"hash_algorithm,omitempty"`
}

// FileDownloads is the scheduled file download category.
type FileDownloads struct {
	DataSourceName string       `yaml:"data_source_name,omitempty"`
	FilesToAcquire []FileSource `yaml:"files_to_acquire,omitempty"`
}

// FileSource is one file to acquire.
type FileSource struct {
	Name          string `yaml:"name,omitempty"`
	URL           string `yaml:"url,omitempty"`
	SourcePageURL string `yaml:"source_page_url,omitempty"`
	LinkTitle     string `yaml:"link_title,omitempty"`
}

// PageScraping is the web page link scraping category.
type PageScraping struct {
	DataSourceName string       `yaml:"data_source_name,omitempty"`
	PagesToScrape  []PageSource `yaml:"pages_to_scrape,omitempty"`
}

// PageSource is one page to scrape.
type PageSource struct {
	Name string `yaml:"name,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

// APIPolling is the public API data category.
type APIPolling struct {
	DataSourceName string      `yaml:"data_source_name,omitempty"`
	APIsToPoll     []APISource `yaml:"apis_to_poll,omitempty"`
}

// APISource is one API to poll.
type APISource struct {
	Name       string            `yaml:"name,omitempty"`
	URL        string            `yaml:"url,omitempty"`
	Params     map[string]string `yaml:"params,omitempty"`
	ExtractKey string            `yaml:"extract_key,omitempty"`
}

// applyDefaults fills optional fields the way an omitted value is meant.
// URLs are trimmed but never defaulted; a missing URL makes the entry
// SKIPPED at run time.
func (f *File) applyDefaults() {
	f.ScheduledFileDownloads.DataSourceName = orDefault(f.ScheduledFileDownloads.DataSourceName, DefaultFileDataSource)
	for i := range f.ScheduledFileDownloads.FilesToAcquire {
		src := &f.ScheduledFileDownloads.FilesToAcquire[i]
		src.Name = orDefault(src.Name, unnamedFile)
		src.URL = strings.TrimSpace(src.URL)
	}

	f.WebPageLinkScraping.DataSourceName = orDefault(f.WebPageLinkScraping.DataSourceName, DefaultPageDataSource)
	for i := range f.WebPageLinkScraping.PagesToScrape {
		src := &f.WebPageLinkScraping.PagesToScrape[i]
		src.Name = orDefault(src.Name, unnamedPage)
		src.URL = strings.TrimSpace(src.URL)
	}

	f.PublicAPIData.DataSourceName = orDefault(f.PublicAPIData.DataSourceName, DefaultAPIDataSource)
	for i := range f.PublicAPIData.APIsToPoll {
		src := &f.PublicAPIData.APIsToPoll[i]
		src.Name = orDefault(src.Name, unnamedAPI)
		src.URL = strings.TrimSpace(src.URL)
		src.ExtractKey = orDefault(src.ExtractKey, DefaultExtractKey)
	}
}

// Empty reports whether no category lists any entry.
func (f *File) Empty() bool {
	return len(f.ScheduledFileDownloads.FilesToAcquire) == 0 &&
		len(f.WebPageLinkScraping.PagesToScrape) == 0 &&
		len(f.PublicAPIData.APIsToPoll) == 0
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
