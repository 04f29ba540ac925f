package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/ingestcas/internal/model"
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBodyTooLarge is returned when a response body exceeds the read limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrProxyUnreachable is returned by ProbeProxy when no TCP connection
	// to the proxy could be established.
	ErrProxyUnreachable = errors.New("cannot connect to proxy")

	// ErrProxyNotSOCKS5 is returned by ProbeProxy when the proxy answered
	// but did not speak SOCKS5 without authentication.
	ErrProxyNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy accepting unauthenticated clients")
)

// NetworkError reports a request that produced no HTTP response:
// DNS failure, refused connection, TLS error, timeout or cancellation.
type NetworkError struct {
	URL     string
	Err     error
	Timeout bool
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("network error fetching %s (timeout): %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Category implements model.Categorizer.
func (e *NetworkError) Category() model.ErrorCategory {
	if errors.Is(e.Err, context.Canceled) {
		return model.CategoryCancelled
	}
	return model.CategoryNetwork
}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int

	// Body holds at most MaxErrorExcerpt bytes of the response body.
	Body string
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s from %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Category implements model.Categorizer.
func (e *HTTPStatusError) Category() model.ErrorCategory {
	return model.CategoryHTTPStatus
}

// Temporary reports whether retrying the request may succeed:
// server errors, 408 and 429.
func (e *HTTPStatusError) Temporary() bool {
	switch {
	case e.StatusCode >= http.StatusInternalServerError:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// IsTemporary reports whether err is a failure worth retrying.
// Network errors other than cancellation are temporary, as are
// HTTPStatusErrors whose Temporary method says so.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(netErr.Err, context.Canceled)
	}
	return false
}

// ErrInvalidURL is matched by errors.Is for every URL rejected by NewRequest.
var ErrInvalidURL = errors.New("invalid URL")

// URLError describes why a URL was rejected before any request was sent.
type URLError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *URLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}

// Is lets errors.Is match ErrInvalidURL.
func (e *URLError) Is(target error) bool {
	return target == ErrInvalidURL
}

// Category implements model.Categorizer.
func (e *URLError) Category() model.ErrorCategory {
	return model.CategoryValidation
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *HTTPStatusError.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
