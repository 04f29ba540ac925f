// Package transport builds the HTTP clients used by every fetcher and
// classifies their failures.
//
// All outbound traffic goes through a client created by NewClient. The
// client injects a descriptive User-Agent and optional per-host headers,
// follows a bounded number of redirects, and can route through a SOCKS5
// proxy. Do wraps a request so that callers only ever see two failure
// shapes: *NetworkError when no response arrived and *HTTPStatusError when
// the server answered with a non-2xx status.
package transport
