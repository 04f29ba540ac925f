package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// MaxErrorExcerpt is the number of body bytes kept in an HTTPStatusError.
const MaxErrorExcerpt = 500

// RedactedHeaderValue replaces the value of response headers that carry
// credentials in ResponseHeaders.
const RedactedHeaderValue = "[redacted]"

// credentialHeaders are reported by name only.
var credentialHeaders = map[string]bool{
	"Set-Cookie":         true,
	"Authorization":      true,
	"Proxy-Authenticate": true,
	"Www-Authenticate":   true,
}

// capturedHeaders are the response headers recorded in file manifests.
var capturedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Disposition",
	"ETag",
	"Last-Modified",
	"Cache-Control",
	"Content-Encoding",
}

// NewRequest builds a GET request for rawURL.
// Only absolute http and https URLs are accepted; anything else yields a
// *URLError.
func NewRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	u, err := ParseHTTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &URLError{URL: rawURL, Reason: err.Error()}
	}
	return req, nil
}

// ParseHTTPURL parses rawURL and requires an http or https scheme and a host.
func ParseHTTPURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, &URLError{URL: rawURL, Reason: "empty"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &URLError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &URLError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return nil, &URLError{URL: rawURL, Reason: "missing host"}
	}
	return u, nil
}

// Do sends req and classifies the outcome.
//
// On success the caller owns resp.Body. A transport failure is returned as
// *NetworkError and a non-2xx status as *HTTPStatusError; in both cases the
// body has already been closed.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Err: err, Timeout: isTimeout(err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorExcerpt)) //nolint:errcheck // excerpt is best effort
		return nil, &HTTPStatusError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.ToValidUTF8(string(excerpt), "�"),
		}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ReadLimited reads all of r but fails with ErrBodyTooLarge once more than
// limit bytes arrive. A non-positive limit disables the check.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return data, nil
}

// CaptureHeaders returns the manifest-relevant subset of h, or nil when
// none of them are present.
func CaptureHeaders(h http.Header) map[string]string {
	var out map[string]string
	for _, name := range capturedHeaders {
		value := h.Get(name)
		if value == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(capturedHeaders))
		}
		out[name] = value
	}
	return out
}

// ResponseHeaders flattens every header in h, joining repeated values with
// ", ". Credential-bearing headers keep their name but not their value.
// It returns nil for an empty header.
func ResponseHeaders(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := http.CanonicalHeaderKey(name)
		if credentialHeaders[key] {
			out[key] = RedactedHeaderValue
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}
