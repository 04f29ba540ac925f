package report

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/ingestcas/internal/model"
)

// MaxArtifactKeyLength bounds the length of keys built by ArtifactKey.
const MaxArtifactKeyLength = 200

// Key prefixes per artifact kind.
const (
	PrefixFile       = "file-dl-manifest"
	PrefixScrape     = "scraped-page-manifest"
	PrefixAPI        = "api-poll"
	PrefixRunSummary = "ingestion-summary"
)

// ArtifactKey joins the cleaned parts into a key made of lowercase ASCII
// letters, digits and single dashes, at most MaxArtifactKeyLength long.
// Empty parts are replaced by a per-position default.
func ArtifactKey(prefix, dataSource, identifier, uniqueID string) string {
	key := strings.Join([]string{
		cleanKeyPart(prefix, "artifact"),
		cleanKeyPart(dataSource, "datasource"),
		cleanKeyPart(identifier, "item"),
		cleanKeyPart(uniqueID, "id"),
	}, "-")
	if len(key) > MaxArtifactKeyLength {
		key = strings.TrimRight(key[:MaxArtifactKeyLength], "-")
	}
	return key
}

// cleanKeyPart lowercases s, turns spaces and underscores into dashes,
// drops everything else that is not [a-z0-9-] and collapses dash runs.
func cleanKeyPart(s, fallback string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == '-' || r == ' ' || r == '_':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// FileArtifactKey returns the key for a stored file: its name stem and the
// first 8 hash characters.
func FileArtifactKey(result model.FileResult) string {
	stem := strings.TrimSuffix(result.OriginalFilename, path.Ext(result.OriginalFilename))
	if stem == "" {
		stem = "file"
	}
	return ArtifactKey(PrefixFile, result.DataSource, stem, shortHash(result.ContentHash, 8))
}

// ScrapeArtifactKey returns the key for a scraped page: host plus path stem
// and the first 12 characters of the canonical URL hash.
func ScrapeArtifactKey(result model.ScrapeResult, dataSource string) string {
	identifier := "webpage"
	if u, err := url.Parse(result.OriginalURL); err == nil && u.Host != "" {
		base := path.Base(u.Path)
		if base == "/" || base == "." {
			base = ""
		}
		identifier = u.Hostname() + "-" + strings.TrimSuffix(base, path.Ext(base))
	}
	return ArtifactKey(PrefixScrape, dataSource, identifier, shortHash(result.CanonicalURLHash, 12))
}

// APIArtifactKey returns the key for an API poll, unique per second.
func APIArtifactKey(result model.APIResult, name, dataSource string) string {
	return ArtifactKey(PrefixAPI, dataSource, name, result.FetchedAtUTC.Format("20060102t150405z"))
}

// RunSummaryArtifactKey returns the key for a run summary.
func RunSummaryArtifactKey(summary *model.RunSummary) string {
	return ArtifactKey(PrefixRunSummary, summary.FlowName, summary.StartedAt.Format("2006-01-02"), shortHash(summary.RunID, 8))
}

func shortHash(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
