package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/ingestcas/internal/model"
)

// TestNewClient tests the client constructor.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, expected %v", client.Timeout, DefaultTimeout)
		}
	})

	t.Run("custom timeout kept", func(t *testing.T) {
		t.Parallel()

		client, err := NewClient(Options{Timeout: 180 * time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Timeout != 180*time.Second {
			t.Errorf("Timeout = %v", client.Timeout)
		}
	})

	t.Run("valid proxy accepted", func(t *testing.T) {
		t.Parallel()

		if _, err := NewClient(Options{ProxyAddress: "127.0.0.1:9050"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("invalid proxy rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(Options{ProxyAddress: "127.0.0.1"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

// TestNewDefaultClient tests the fallback client used when none is given.
func TestNewDefaultClient(t *testing.T) {
	t.Parallel()

	if got := NewDefaultClient(DefaultFileTimeout).Timeout; got != DefaultFileTimeout {
		t.Errorf("Timeout = %v, expected %v", got, DefaultFileTimeout)
	}
	if got := NewDefaultClient(0).Timeout; got != DefaultTimeout {
		t.Errorf("Timeout = %v, expected %v", got, DefaultTimeout)
	}
	if _, ok := NewDefaultClient(time.Second).Transport.(*headerInjectingTransport); !ok {
		t.Error("expected the user agent to be injected")
	}
}

// TestIsValidProxyAddress tests the proxy address validation function.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:9050", true},
		{"valid hostname with port", "proxy.example.com:1080", true},
		{"valid IPv6 with port", "[::1]:1080", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":9050", false},
		{"empty port", "127.0.0.1:", false},
		{"port zero", "127.0.0.1:0", false},
		{"port too large", "127.0.0.1:70000", false},
		{"multiple colons", "127.0.0.1:9050:extra", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidProxyAddress(tc.address); got != tc.expected {
				t.Errorf("IsValidProxyAddress(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

// TestHeaderInjection tests that the User-Agent and per-host headers are sent.
func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	received := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		Headers: map[string]map[string]string{
			"*":         {"Accept-Language": "en", "X-Trace": "wild"},
			"127.0.0.1": {"X-Trace": "host"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	req, err := NewRequest(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := Do(client, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	got := <-received
	if ua := got.Get("User-Agent"); ua != DefaultUserAgent {
		t.Errorf("User-Agent = %q, expected %q", ua, DefaultUserAgent)
	}
	if v := got.Get("Accept-Language"); v != "en" {
		t.Errorf("Accept-Language = %q", v)
	}
	if v := got.Get("X-Trace"); v != "host" {
		t.Errorf("X-Trace = %q, expected host-specific value", v)
	}
}

// TestRedirects tests that redirects are followed up to the limit.
func TestRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "done")
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{MaxRedirects: 3})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("followed", func(t *testing.T) {
		t.Parallel()

		req, _ := NewRequest(context.Background(), server.URL+"/start")
		resp, err := Do(client, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "done" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("loop stops with status error", func(t *testing.T) {
		t.Parallel()

		req, _ := NewRequest(context.Background(), server.URL+"/loop")
		_, err := Do(client, req)
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected HTTPStatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusFound {
			t.Errorf("StatusCode = %d", statusErr.StatusCode)
		}
	})
}

// TestDoClassification tests error classification of Do.
func TestDoClassification(t *testing.T) {
	t.Parallel()

	t.Run("non-2xx becomes HTTPStatusError with excerpt", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, strings.Repeat("x", 2000))
		}))
		t.Cleanup(server.Close)

		client, _ := NewClient(Options{})
		req, _ := NewRequest(context.Background(), server.URL)
		_, err := Do(client, req)

		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected HTTPStatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d", statusErr.StatusCode)
		}
		if len(statusErr.Body) != MaxErrorExcerpt {
			t.Errorf("excerpt length = %d, expected %d", len(statusErr.Body), MaxErrorExcerpt)
		}
		if !statusErr.Temporary() || !IsTemporary(err) {
			t.Error("503 should be temporary")
		}
		if model.Categorize(err) != model.CategoryHTTPStatus {
			t.Errorf("category = %q", model.Categorize(err))
		}
	})

	t.Run("404 is not temporary", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)

		client, _ := NewClient(Options{})
		req, _ := NewRequest(context.Background(), server.URL)
		_, err := Do(client, req)
		if err == nil {
			t.Fatal("expected error")
		}
		if IsTemporary(err) {
			t.Error("404 should not be temporary")
		}
	})

	t.Run("refused connection becomes NetworkError", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		client, _ := NewClient(Options{Timeout: 2 * time.Second})
		req, _ := NewRequest(context.Background(), "http://"+addr+"/")
		_, err = Do(client, req)

		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if !IsTemporary(err) {
			t.Error("network error should be temporary")
		}
		if model.Categorize(err) != model.CategoryNetwork {
			t.Errorf("category = %q", model.Categorize(err))
		}
	})

	t.Run("cancelled context is categorized as cancelled", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(server.Close)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client, _ := NewClient(Options{})
		req, _ := NewRequest(ctx, server.URL)
		_, err := Do(client, req)
		if model.Categorize(err) != model.CategoryCancelled {
			t.Errorf("category = %q, err = %v", model.Categorize(err), err)
		}
		if IsTemporary(err) {
			t.Error("cancellation should not be temporary")
		}
	})

	t.Run("timeout flagged", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(server.Close)
		defer close(release)

		client, _ := NewClient(Options{Timeout: 50 * time.Millisecond})
		req, _ := NewRequest(context.Background(), server.URL)
		_, err := Do(client, req)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
		if !netErr.Timeout {
			t.Errorf("expected Timeout flag, got %v", err)
		}
	})
}

// TestNewRequest tests URL validation.
func TestNewRequest(t *testing.T) {
	t.Parallel()

	bad := []string{"", "   ", "ftp://example.com/x", "example.com/path", "http://", "://bad"}
	for _, raw := range bad {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			_, err := NewRequest(context.Background(), raw)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
			if model.Categorize(err) != model.CategoryValidation {
				t.Errorf("category = %q", model.Categorize(err))
			}
		})
	}

	req, err := NewRequest(context.Background(), " https://example.com/a?b=c ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.URL.String() != "https://example.com/a?b=c" {
		t.Errorf("URL = %q", req.URL.String())
	}
}

// TestReadLimited tests bounded body reads.
func TestReadLimited(t *testing.T) {
	t.Parallel()

	data, err := ReadLimited(strings.NewReader("hello"), 5)
	if err != nil || string(data) != "hello" {
		t.Errorf("got %q, %v", data, err)
	}

	_, err = ReadLimited(strings.NewReader("hello!"), 5)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}

	data, err = ReadLimited(strings.NewReader("unbounded"), 0)
	if err != nil || string(data) != "unbounded" {
		t.Errorf("got %q, %v", data, err)
	}
}

// TestCaptureHeaders tests header selection.
func TestCaptureHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Content-Type", "application/pdf")
	h.Set("ETag", `"abc"`)
	h.Set("Set-Cookie", "secret=1")

	got := CaptureHeaders(h)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if got["Content-Type"] != "application/pdf" || got["ETag"] != `"abc"` {
		t.Errorf("got %v", got)
	}
	if _, ok := got["Set-Cookie"]; ok {
		t.Error("Set-Cookie must not be captured")
	}

	if CaptureHeaders(http.Header{}) != nil {
		t.Error("expected nil for no captured headers")
	}
}

// TestResponseHeaders tests that every header is kept and credentials are
// reduced to their name.
func TestResponseHeaders(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Add("Vary", "Accept")
	h.Add("Vary", "Origin")
	h.Set("X-Request-Id", "r-1")
	h.Set("Set-Cookie", "session=abc123")

	got := ResponseHeaders(h)
	want := map[string]string{
		"Content-Type": "text/plain",
		"Vary":         "Accept, Origin",
		"X-Request-Id": "r-1",
		"Set-Cookie":   RedactedHeaderValue,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, expected %q", k, got[k], v)
		}
	}

	if ResponseHeaders(nil) != nil {
		t.Error("expected nil for no headers")
	}
}

// TestProbeProxy tests the SOCKS5 greeting check against fake servers.
func TestProbeProxy(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, reply []byte) string {
		t.Helper()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { ln.Close() })
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			_, _ = conn.Write(reply)
		}()
		return ln.Addr().String()
	}

	t.Run("socks5 accepted", func(t *testing.T) {
		t.Parallel()

		addr := serve(t, []byte{0x05, 0x00})
		if err := ProbeProxy(context.Background(), addr); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("auth required rejected", func(t *testing.T) {
		t.Parallel()

		addr := serve(t, []byte{0x05, 0xFF})
		if err := ProbeProxy(context.Background(), addr); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("http server rejected", func(t *testing.T) {
		t.Parallel()

		addr := serve(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		if err := ProbeProxy(context.Background(), addr); !errors.Is(err, ErrProxyNotSOCKS5) {
			t.Errorf("expected ErrProxyNotSOCKS5, got %v", err)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()

		if err := ProbeProxy(context.Background(), addr); !errors.Is(err, ErrProxyUnreachable) {
			t.Errorf("expected ErrProxyUnreachable, got %v", err)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		if err := ProbeProxy(context.Background(), "nope"); !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}
