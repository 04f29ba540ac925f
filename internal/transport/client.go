package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults applied by NewClient when the corresponding option is zero.
const (
	// DefaultUserAgent identifies the tool to the servers it talks to.
	DefaultUserAgent = "ingestcas/1.0 (+https://github.com/nao1215/ingestcas)"

	// DefaultTimeout is used for page and API requests.
	DefaultTimeout = 30 * time.Second

	// DefaultFileTimeout is used for file downloads.
	DefaultFileTimeout = 180 * time.Second

	// DefaultMaxRedirects bounds redirect chains.
	DefaultMaxRedirects = 10
)

// WildcardHost is the Headers key whose values apply to every host.
const WildcardHost = "*"

// Options configures NewClient.
type Options struct {
	// Timeout bounds the whole request including reading the body.
	// File downloads use a long timeout, pages and APIs a short one.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UserAgent replaces DefaultUserAgent when set.
	UserAgent string

	// Headers maps a lowercase host name (or WildcardHost) to extra
	// request headers. Host-specific values override wildcard values.
	Headers map[string]map[string]string

	// MaxRedirects replaces DefaultMaxRedirects when positive.
	MaxRedirects int
}

// NewClient creates an HTTP client configured by opts.
//
// The proxy address is validated but not contacted. Use ProbeProxy to check
// that the proxy is reachable.
func NewClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("unexpected default transport type %T", http.DefaultTransport)
	}
	tr := base.Clone()

	if opts.ProxyAddress != "" {
		if !IsValidProxyAddress(opts.ProxyAddress) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, opts.ProxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		// Environment proxies must not bypass the configured one.
		tr.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &http.Client{
		Transport: &headerInjectingTransport{
			base:      tr,
			userAgent: userAgent,
			headers:   normalizeHeaderMap(opts.Headers),
		},
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// NewDefaultClient returns a direct client with the default user agent and
// redirect policy, bounded by timeout. It backs components that were not
// given a client.
func NewDefaultClient(timeout time.Duration) *http.Client {
	client, err := NewClient(Options{Timeout: timeout})
	if err != nil {
		// Only a replaced http.DefaultTransport gets here.
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		return &http.Client{Timeout: timeout}
	}
	return client
}

// IsValidProxyAddress checks for "host:port" with a port in 1..65535.
func IsValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

func normalizeHeaderMap(in map[string]map[string]string) map[string]map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for host, headers := range in {
		out[strings.ToLower(strings.TrimSpace(host))] = headers
	}
	return out
}

// headerInjectingTransport sets the User-Agent and configured per-host
// headers on every request, including redirects.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	for key, value := range t.headers[WildcardHost] {
		clone.Header.Set(key, value)
	}
	for key, value := range t.headers[strings.ToLower(clone.URL.Hostname())] {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
