package report

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ingestcas/internal/model"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// TestArtifactKey tests key cleaning.
func TestArtifactKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                        string
		prefix, ds, ident, uniqueID string
		want                        string
	}{
		{
			name:   "plain parts",
			prefix: "file-dl-manifest", ds: "central_bank", ident: "Rates 2024", uniqueID: "84d89877",
			want: "file-dl-manifest-central-bank-rates-2024-84d89877",
		},
		{
			name:   "punctuation dropped and dashes collapsed",
			prefix: "api-poll", ds: "Cat  Facts!!", ident: "__fact__(v2)", uniqueID: "20250501t123000z",
			want: "api-poll-cat-facts-fact-v2-20250501t123000z",
		},
		{
			name:   "empty parts use defaults",
			prefix: "", ds: "", ident: "???", uniqueID: "",
			want: "artifact-datasource-item-id",
		},
		{
			name:   "non-ascii removed",
			prefix: "x", ds: "données", ident: "日本", uniqueID: "1",
			want: "x-donnes-item-1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ArtifactKey(tt.prefix, tt.ds, tt.ident, tt.uniqueID)
			if got != tt.want {
				t.Errorf("ArtifactKey() = %q, want %q", got, tt.want)
			}
			if !keyPattern.MatchString(got) {
				t.Errorf("key %q has invalid characters", got)
			}
		})
	}

	t.Run("length is bounded", func(t *testing.T) {
		t.Parallel()

		got := ArtifactKey("p", strings.Repeat("a", 150), strings.Repeat("b-", 100), "id")
		if len(got) > MaxArtifactKeyLength {
			t.Errorf("len = %d", len(got))
		}
		if !keyPattern.MatchString(got) {
			t.Errorf("key %q has invalid characters", got)
		}
	})
}

// TestResultArtifactKeys tests the per-kind key builders.
func TestResultArtifactKeys(t *testing.T) {
	t.Parallel()

	if got := FileArtifactKey(testFileResult("")); got != "file-dl-manifest-central-bank-rates-84d89877" {
		t.Errorf("FileArtifactKey() = %q", got)
	}
	if got := ScrapeArtifactKey(testScrapeResult(0), "news"); got != "scraped-page-manifest-news-examplecom-news-84d89877f0d4" {
		t.Errorf("ScrapeArtifactKey() = %q", got)
	}

	root := testScrapeResult(0)
	root.OriginalURL = "https://example.com/"
	if got := ScrapeArtifactKey(root, "news"); got != "scraped-page-manifest-news-examplecom-84d89877f0d4" {
		t.Errorf("ScrapeArtifactKey(root) = %q", got)
	}

	api := model.APIResult{FetchedAtUTC: model.NewUTCTime(time.Date(2025, 5, 1, 12, 30, 5, 0, time.UTC))}
	if got := APIArtifactKey(api, "Cat Fact", "cats"); got != "api-poll-cats-cat-fact-20250501t123005z" {
		t.Errorf("APIArtifactKey() = %q", got)
	}

	if got := RunSummaryArtifactKey(testRunSummary()); got != "ingestion-summary-ingestion-flow-2025-05-01-0b5e9a2c" {
		t.Errorf("RunSummaryArtifactKey() = %q", got)
	}
}
