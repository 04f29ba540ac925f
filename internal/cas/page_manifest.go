package cas

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
)

// pageManifestFallbackName names a page manifest whose URL yields no
// usable filename.
const pageManifestFallbackName = "scraped_page_data"

// SavePageManifest persists a successful scrape result under
// {root}/{dataSource}/scraped_pages_manifests/{hash}/{name}.manifest.json
// and returns the manifest path.
//
// Results that are not SUCCESS, or that lack an original URL, are not
// written: the returned error is ErrManifestSkipped and the path is empty.
// Any other error means the manifest could not be written.
func (s *Store) SavePageManifest(result model.ScrapeResult, dataSource string) (string, error) {
	if result.Status != model.StatusSuccess {
		return "", fmt.Errorf("%w: status %s", ErrManifestSkipped, result.Status)
	}
	if strings.TrimSpace(result.OriginalURL) == "" {
		return "", fmt.Errorf("%w: missing original URL", ErrManifestSkipped)
	}

	urlHash := result.CanonicalURLHash
	algorithm := result.HashAlgorithm
	if urlHash == "" {
		urlHash = s.hasher.SumString(result.CanonicalOrOriginal())
		algorithm = s.hasher.Name()
	}
	if algorithm == "" {
		algorithm = hashutil.AlgorithmSHA256
	}

	manifestPath := filepath.Join(
		s.PageManifestDir(dataSource, urlHash),
		pageManifestBaseName(result.OriginalURL)+model.ManifestSuffix,
	)

	links := result.ExtractedLinks
	if links == nil {
		links = []string{}
	}
	entry := model.ScrapedPageManifestEntry{
		DataSourceName:        dataSource,
		OriginalURL:           result.OriginalURL,
		ScrapeTimestampUTC:    model.NewUTCTime(s.now()),
		CanonicalURL:          result.CanonicalURL,
		CanonicalURLHash:      urlHash,
		HashAlgorithm:         algorithm,
		ExtractedLinksCount:   len(links),
		ExtractedLinks:        links,
		ManifestPath:          manifestPath,
		StatusOfScrape:        result.Status,
		ScrapeErrorMessage:    result.ErrorMessage,
		ManifestSchemaVersion: model.SchemaVersion,
	}

	if err := writeManifestAtomic(manifestPath, &entry); err != nil {
		return "", fmt.Errorf("failed to save page manifest for %s: %w", result.OriginalURL, err)
	}
	return manifestPath, nil
}

// pageManifestBaseName derives the manifest filename from the page URL:
// the URL path when it has one, otherwise the host.
func pageManifestBaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return pageManifestFallbackName
	}
	source := strings.Trim(u.Path, "/")
	if source == "" {
		source = u.Host
	}
	return hashutil.SanitizeFilename(source, pageManifestFallbackName)
}
