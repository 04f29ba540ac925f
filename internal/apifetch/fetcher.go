package apifetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

// DefaultMaxBodySize bounds API response bodies.
const DefaultMaxBodySize = 5 * 1024 * 1024

// ErrTrailingData is returned when a body holds more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// Fetcher performs JSON GET requests.
type Fetcher struct {
	client      *http.Client
	maxBodySize int64
	now         func() model.UTCTime
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBodySize sets the maximum response size in bytes.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher. client should come from transport.NewClient
// with the short API timeout.
// A nil client is replaced by one bounded by transport.DefaultTimeout.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = transport.NewDefaultClient(transport.DefaultTimeout)
	}
	f := &Fetcher{
		client:      client,
		maxBodySize: DefaultMaxBodySize,
		now:         model.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchJSON sends a single GET to rawURL with params merged into its query
// and decodes the JSON body. Redirects are followed by the client.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string, params url.Values) model.APIResult {
	result := model.APIResult{URL: rawURL, FetchedAtUTC: f.now()}

	target, err := withParams(rawURL, params)
	if err != nil {
		return failed(result, model.StatusFailedValidation, err)
	}
	result.URL = target

	req, err := transport.NewRequest(ctx, target)
	if err != nil {
		return failed(result, model.StatusFailedValidation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := transport.Do(f.client, req)
	if err != nil {
		var statusErr *transport.HTTPStatusError
		if errors.As(err, &statusErr) {
			result.StatusCode = statusErr.StatusCode
			result.BodyExcerpt = statusErr.Body
			return failed(result, model.StatusFailedHTTPStatus, err)
		}
		return failed(result, model.StatusFailedNetwork, err)
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode

	raw, err := transport.ReadLimited(resp.Body, f.maxBodySize)
	if err != nil {
		if errors.Is(err, transport.ErrBodyTooLarge) {
			return failed(result, model.StatusFailedDecode, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		return failed(result, model.StatusFailedNetwork, &transport.NetworkError{URL: target, Err: err})
	}

	body, err := decodeJSON(raw)
	if err != nil {
		return failed(result, model.StatusFailedDecode, err)
	}
	result.Body = body
	result.Status = model.StatusSuccess
	return result
}

// withParams merges params into the query of rawURL. Existing query values
// are kept and params are appended after them.
func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := transport.ParseHTTPURL(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeJSON decodes exactly one JSON value. Numbers are kept as
// json.Number so that large integers survive unchanged.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode JSON: %w", ErrTrailingData)
	}
	return v, nil
}

func failed(result model.APIResult, status model.Status, err error) model.APIResult {
	result.Status = status
	result.ErrorMessage = err.Error()
	switch status {
	case model.StatusFailedDecode:
		result.ErrorCategory = model.CategoryParse
	case model.StatusFailedValidation:
		result.ErrorCategory = model.CategoryValidation
	default:
		result.ErrorCategory = model.Categorize(err)
	}
	return result
}
