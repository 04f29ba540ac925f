package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

func newTestFetcher(t *testing.T, opts ...FetcherOption) *Fetcher {
	t.Helper()
	client, err := transport.NewClient(transport.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewFetcher(client, opts...)
}

// TestFetchHTML tests page downloads and charset handling.
func TestFetchHTML(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/utf8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<p>café</p>")
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	})
	mux.HandleFunc("/meta", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta charset="windows-1252"></head><body>caf` + "\xe9" + `</body></html>`))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("User-Agent"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("a", 2048))
	})
	mux.HandleFunc("/missing", http.NotFound)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Run("utf-8 body", func(t *testing.T) {
		t.Parallel()

		got, err := newTestFetcher(t).FetchHTML(context.Background(), server.URL+"/utf8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "<p>café</p>" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("nil client gets a bounded default", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(nil)
		if f.client == nil || f.client.Timeout != transport.DefaultTimeout {
			t.Fatalf("expected default client with %v timeout, got %+v", transport.DefaultTimeout, f.client)
		}
		got, err := f.FetchHTML(context.Background(), server.URL+"/ua")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != transport.DefaultUserAgent {
			t.Errorf("User-Agent = %q", got)
		}
	})

	t.Run("declared latin-1 decoded", func(t *testing.T) {
		t.Parallel()

		got, err := newTestFetcher(t).FetchHTML(context.Background(), server.URL+"/latin1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "<p>café</p>" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("meta charset decoded", func(t *testing.T) {
		t.Parallel()

		got, err := newTestFetcher(t).FetchHTML(context.Background(), server.URL+"/meta")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "café") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("descriptive user agent", func(t *testing.T) {
		t.Parallel()

		got, err := newTestFetcher(t).FetchHTML(context.Background(), server.URL+"/ua")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != transport.DefaultUserAgent {
			t.Errorf("got %q", got)
		}
	})

	t.Run("body size bounded", func(t *testing.T) {
		t.Parallel()

		_, err := newTestFetcher(t, WithMaxBodySize(1024)).FetchHTML(context.Background(), server.URL+"/big")
		if !errors.Is(err, transport.ErrBodyTooLarge) {
			t.Errorf("expected ErrBodyTooLarge, got %v", err)
		}
	})

	t.Run("http status error", func(t *testing.T) {
		t.Parallel()

		_, err := newTestFetcher(t).FetchHTML(context.Background(), server.URL+"/missing")
		var statusErr *transport.HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 HTTPStatusError, got %v", err)
		}
	})
}

// TestScrape tests the combined fetch and extract path.
func TestScrape(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<link rel="canonical" href="/canon"><a href="/next">n</a>`)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := newTestFetcher(t)

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Scrape(context.Background(), server.URL+"/page")
		if result.Status != model.StatusSuccess {
			t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
		}
		if *result.CanonicalURL != server.URL+"/canon" || !result.CanonicalDeclared {
			t.Errorf("canonical = %q", *result.CanonicalURL)
		}
		if len(result.ExtractedLinks) != 1 || result.ExtractedLinks[0] != server.URL+"/next" {
			t.Errorf("links = %v", result.ExtractedLinks)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Scrape(context.Background(), server.URL+"/empty")
		if result.Status != model.StatusFailedNoHTML {
			t.Errorf("status = %s", result.Status)
		}
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Scrape(context.Background(), server.URL+"/boom")
		if result.Status != model.StatusFailedFetch {
			t.Errorf("status = %s", result.Status)
		}
		if result.ErrorCategory != model.CategoryHTTPStatus || result.HTTPStatusCode != http.StatusBadGateway {
			t.Errorf("category = %q, code = %d", result.ErrorCategory, result.HTTPStatusCode)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()

		result := fetcher.Scrape(context.Background(), "mailto:x@example.com")
		if result.Status != model.StatusFailedValidation {
			t.Errorf("status = %s", result.Status)
		}
	})
}
