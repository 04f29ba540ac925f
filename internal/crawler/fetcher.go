package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

// DefaultMaxBodySize bounds page bodies read by a Fetcher.
const DefaultMaxBodySize = 5 * 1024 * 1024

// Fetcher downloads HTML pages.
type Fetcher struct {
	// client must be created by transport.NewClient so that the user agent,
	// timeout and redirect policy are applied.
	client *http.Client

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	parser *Parser
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize sets the maximum page size in bytes.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithParser replaces the default Parser used by Scrape.
func WithParser(p *Parser) FetcherOption {
	return func(f *Fetcher) {
		if p != nil {
			f.parser = p
		}
	}
}

// NewFetcher creates a Fetcher using client for all requests.
// A nil client is replaced by one bounded by transport.DefaultTimeout.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = transport.NewDefaultClient(transport.DefaultTimeout)
	}
	f := &Fetcher{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
		parser:      NewParser(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchHTML downloads pageURL and returns its body decoded to UTF-8.
//
// Errors are *transport.HTTPStatusError for non-2xx responses,
// *transport.NetworkError when no response arrived, and wrapped
// transport.ErrBodyTooLarge or transport.ErrInvalidURL otherwise.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := transport.NewRequest(ctx, pageURL)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := transport.Do(f.client, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := transport.ReadLimited(resp.Body, f.maxBodySize)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", pageURL, err)
	}
	return decodeToUTF8(raw, resp.Header.Get("Content-Type"))
}

// decodeToUTF8 converts raw into UTF-8 using the charset from contentType,
// a <meta> declaration or content sniffing, in that order.
func decodeToUTF8(raw []byte, contentType string) (string, error) {
	enc, _, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("%w: decoding body: %w", ErrParse, err)
	}
	return string(decoded), nil
}

// Scrape fetches pageURL and extracts its links and canonical URL.
// Fetch failures produce a FAILED_FETCH result carrying the error category.
func (f *Fetcher) Scrape(ctx context.Context, pageURL string) model.ScrapeResult {
	content, err := f.FetchHTML(ctx, pageURL)
	if err != nil {
		status := model.StatusFailedFetch
		if errors.Is(err, transport.ErrInvalidURL) {
			status = model.StatusFailedValidation
		}
		return model.ScrapeResult{
			Status:         status,
			OriginalURL:    pageURL,
			HTTPStatusCode: transport.StatusCode(err),
			ExtractedLinks: []string{},
			ErrorCategory:  model.Categorize(err),
			ErrorMessage:   err.Error(),
		}
	}
	return f.parser.Extract(content, pageURL)
}
