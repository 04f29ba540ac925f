package cas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

// fixtureHash is the SHA-256 of "0123456789".
const fixtureHash = "84d89877f0d4041efb6bf91a16f0248f2fd573e6af05c19f96bedb9f882f7882"

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	client, err := transport.NewClient(transport.Options{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	base := []Option{WithHTTPClient(client), WithClock(func() time.Time { return fixedNow })}
	store, err := NewStore(t.TempDir(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func assertStagingEmpty(t *testing.T, store *Store) {
	t.Helper()
	entries, err := os.ReadDir(store.StagingDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("staging directory not empty: %v", names)
	}
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fixture.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("ETag", `"v1"`)
		_, _ = io.WriteString(w, "0123456789")
	})
	mux.HandleFunc("/copy/fixture.txt.manifest.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Annual Report 2024.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	})
	mux.HandleFunc("/extended", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="fallback.txt"; filename*=UTF-8''na%C3%AFve%20file.txt`)
		_, _ = io.WriteString(w, "x")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "index")
	})
	mux.HandleFunc("/missing.bin", http.NotFound)
	mux.HandleFunc("/reset", func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("hijacking not supported")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Error(err)
			return
		}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 1000\r\n\r\n")
		_, _ = buf.WriteString("0123456789")
		_ = buf.Flush()
		_ = conn.Close()
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestAcquireFileEndToEnd stores a 10-byte fixture and checks the layout.
func TestAcquireFileEndToEnd(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	store := newTestStore(t)

	result := store.AcquireFile(context.Background(), FileRequest{
		URL:           server.URL + "/fixture.txt",
		DataSource:    "demo",
		SourcePageURL: server.URL + "/",
		LinkTitle:     "Fixture",
	})
	if result.Status != model.StatusSuccess {
		t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
	}

	wantPath := filepath.Join(store.Root(), "demo", fixtureHash, "fixture.txt")
	if result.StoragePath != wantPath {
		t.Errorf("StoragePath = %q, expected %q", result.StoragePath, wantPath)
	}
	if result.ManifestPath != wantPath+".manifest.json" {
		t.Errorf("ManifestPath = %q", result.ManifestPath)
	}
	if result.ContentHash != fixtureHash || result.FileSizeBytes != 10 {
		t.Errorf("hash = %q, size = %d", result.ContentHash, result.FileSizeBytes)
	}

	content, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "0123456789" {
		t.Errorf("stored content = %q", content)
	}

	entry, err := model.ReadFileManifest(result.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if entry.FileSizeBytes != 10 {
		t.Errorf("file_size_bytes = %d", entry.FileSizeBytes)
	}
	if entry.StoragePath != wantPath || entry.IsPlaceholder() {
		t.Errorf("storage_path = %q", entry.StoragePath)
	}
	if entry.ContentHash != fixtureHash || entry.HashAlgorithm != hashutil.AlgorithmSHA256 {
		t.Errorf("hash fields = %q %q", entry.ContentHash, entry.HashAlgorithm)
	}
	if entry.StorageType != model.StorageTypeLocalCAS || entry.ManifestSchemaVersion != model.SchemaVersion {
		t.Errorf("storage type %q, schema %q", entry.StorageType, entry.ManifestSchemaVersion)
	}
	if entry.SourcePageURL != server.URL+"/" || entry.LinkTitle != "Fixture" {
		t.Errorf("provenance = %q %q", entry.SourcePageURL, entry.LinkTitle)
	}
	if entry.HTTPHeaders["ETag"] != `"v1"` || entry.ContentType != "text/plain" {
		t.Errorf("headers = %v, content type %q", entry.HTTPHeaders, entry.ContentType)
	}
	if _, ok := entry.HTTPHeaders["Date"]; ok {
		t.Errorf("manifest should keep only selected headers, got %v", entry.HTTPHeaders)
	}
	if result.HTTPHeaders["Date"] == "" || result.HTTPHeaders["Etag"] != `"v1"` {
		t.Errorf("result should carry every response header, got %v", result.HTTPHeaders)
	}
	if !entry.DownloadTimestampUTC.Equal(fixedNow) {
		t.Errorf("timestamp = %v", entry.DownloadTimestampUTC)
	}

	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"download_timestamp_utc": "2024-05-06T07:08:09Z"`) {
		t.Errorf("manifest timestamp not in Z form:\n%s", data)
	}
	if err := model.ValidateFileManifestJSON(data); err != nil {
		t.Errorf("manifest fails schema: %v", err)
	}

	assertStagingEmpty(t, store)
}

// TestAcquireFileIdempotent tests that repeated acquisition of the same
// content lands in the same place.
func TestAcquireFileIdempotent(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	store := newTestStore(t)
	req := FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"}

	first := store.AcquireFile(context.Background(), req)
	second := store.AcquireFile(context.Background(), req)
	if first.Status != model.StatusSuccess || second.Status != model.StatusSuccess {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	if first.StoragePath != second.StoragePath || first.ContentHash != second.ContentHash {
		t.Errorf("placement differs: %q vs %q", first.StoragePath, second.StoragePath)
	}

	entries, err := os.ReadDir(filepath.Dir(first.StoragePath))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected file and manifest only, got %d entries", len(entries))
	}
	assertStagingEmpty(t, store)
}

// TestAcquireFileConcurrent tests concurrent acquisition of the same file.
func TestAcquireFileConcurrent(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	store := newTestStore(t)
	req := FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"}

	var wg sync.WaitGroup
	results := make([]model.FileResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.AcquireFile(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r.Status != model.StatusSuccess {
			t.Errorf("result %d: %s %s", i, r.Status, r.ErrorMessage)
		}
	}
	if _, err := model.ReadFileManifest(results[0].ManifestPath); err != nil {
		t.Errorf("manifest unreadable after concurrent writes: %v", err)
	}
	assertStagingEmpty(t, store)
}

// TestAcquireFileFilenames tests filename selection.
func TestAcquireFileFilenames(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	store := newTestStore(t)

	tests := []struct {
		path string
		want string
	}{
		{"/download", "Annual_Report_2024.pdf"},
		{"/extended", "naïve_file.txt"},
		{"/", hashutil.DefaultFallbackName},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + tt.path, DataSource: "names"})
			if result.Status != model.StatusSuccess {
				t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
			}
			if result.OriginalFilename != tt.want {
				t.Errorf("filename = %q, expected %q", result.OriginalFilename, tt.want)
			}
			if filepath.Base(result.StoragePath) != tt.want {
				t.Errorf("storage path = %q", result.StoragePath)
			}
		})
	}
}

// TestAcquireFileFailures tests failure statuses and staging cleanup.
func TestAcquireFileFailures(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)

	t.Run("missing URL", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{DataSource: "demo"})
		if result.Status != model.StatusFailedValidation {
			t.Errorf("status = %s", result.Status)
		}
	})

	t.Run("missing data source", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt"})
		if result.Status != model.StatusFailedValidation {
			t.Errorf("status = %s", result.Status)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{URL: "file:///etc/passwd", DataSource: "demo"})
		if result.Status != model.StatusFailedValidation || result.ErrorCategory != model.CategoryValidation {
			t.Errorf("status = %s, category = %s", result.Status, result.ErrorCategory)
		}
	})

	t.Run("http 404", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/missing.bin", DataSource: "demo"})
		if result.Status != model.StatusFailedDownload {
			t.Errorf("status = %s", result.Status)
		}
		if result.ErrorCategory != model.CategoryHTTPStatus || result.HTTPStatusCode != http.StatusNotFound {
			t.Errorf("category = %s, code = %d", result.ErrorCategory, result.HTTPStatusCode)
		}
		assertStagingEmpty(t, store)
	})

	t.Run("mid-download reset leaves nothing behind", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/reset", DataSource: "demo"})
		if result.Status != model.StatusFailedDownload {
			t.Fatalf("status = %s", result.Status)
		}
		if result.ErrorCategory != model.CategoryNetwork {
			t.Errorf("category = %s", result.ErrorCategory)
		}
		assertStagingEmpty(t, store)
		if _, err := os.Stat(store.SourceDir("demo")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("data source directory should not exist, stat err = %v", err)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, WithMaxFileSize(5))
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
		if result.Status != model.StatusFailedDownload {
			t.Errorf("status = %s", result.Status)
		}
		assertStagingEmpty(t, store)
	})

	t.Run("manifest write failure keeps storage path", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		dir := store.ContentDir("demo", fixtureHash)
		// A directory where the manifest should go makes the final rename fail.
		if err := os.MkdirAll(filepath.Join(dir, "fixture.txt.manifest.json", "blocker"), 0o750); err != nil {
			t.Fatal(err)
		}

		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
		if result.Status != model.StatusFailedStorage {
			t.Fatalf("status = %s", result.Status)
		}
		if result.StoragePath != filepath.Join(dir, "fixture.txt") {
			t.Errorf("StoragePath = %q", result.StoragePath)
		}
		if result.ManifestPath != "" {
			t.Errorf("ManifestPath = %q, expected empty", result.ManifestPath)
		}
		if _, err := os.Stat(result.StoragePath); err != nil {
			t.Errorf("stored file missing: %v", err)
		}
		assertStagingEmpty(t, store)
	})
}

// TestAcquireFileHashingFailure tests that a staged file that cannot be
// hashed is reported as FAILED_HASHING and removed from staging.
func TestAcquireFileHashingFailure(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)

	t.Run("read error", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		var staged string
		store.sumFile = func(path string) (string, error) {
			staged = path
			return "", fmt.Errorf("%w: disk went away", hashutil.ErrIO)
		}

		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
		if result.Status != model.StatusFailedHashing {
			t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
		}
		if result.ErrorCategory != model.CategoryIO {
			t.Errorf("category = %s", result.ErrorCategory)
		}
		if result.ContentHash != "" || result.StoragePath != "" || result.ManifestPath != "" {
			t.Errorf("unexpected paths in %+v", result)
		}
		if filepath.Dir(staged) != store.StagingDir() {
			t.Errorf("hashed %q, expected a file in %q", staged, store.StagingDir())
		}
		assertStagingEmpty(t, store)
		if _, err := os.Stat(store.SourceDir("demo")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("data source directory should not exist, stat err = %v", err)
		}
	})

	t.Run("staged file vanished", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		store.sumFile = func(path string) (string, error) {
			if err := os.Remove(path); err != nil {
				t.Fatal(err)
			}
			return store.hasher.SumFile(path)
		}

		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
		if result.Status != model.StatusFailedHashing {
			t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
		}
		if result.ErrorCategory != model.CategoryNotFound {
			t.Errorf("category = %s", result.ErrorCategory)
		}
		assertStagingEmpty(t, store)
	})
}

// TestAcquireFileCancelled tests that cancelling mid-download cleans up.
func TestAcquireFileCancelled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = io.WriteString(w, strings.Repeat("a", 4096))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	result := store.AcquireFile(ctx, FileRequest{URL: server.URL + "/big.bin", DataSource: "demo"})
	if result.Status != model.StatusFailedDownload {
		t.Fatalf("status = %s", result.Status)
	}
	if result.ErrorCategory != model.CategoryCancelled {
		t.Errorf("category = %s (%s)", result.ErrorCategory, result.ErrorMessage)
	}
	assertStagingEmpty(t, store)
}

// TestAcquireFileManifestNamedDownload tests that a download whose name
// looks like a manifest does not replace the manifest of same-hash content.
func TestAcquireFileManifestNamedDownload(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	store := newTestStore(t)

	first := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
	if first.Status != model.StatusSuccess {
		t.Fatalf("status = %s: %s", first.Status, first.ErrorMessage)
	}
	second := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/copy/fixture.txt.manifest.json", DataSource: "demo"})
	if second.Status != model.StatusSuccess {
		t.Fatalf("status = %s: %s", second.Status, second.ErrorMessage)
	}
	if second.StoragePath == first.ManifestPath {
		t.Fatalf("download stored over manifest %q", first.ManifestPath)
	}
	if filepath.Base(second.StoragePath) != "fixture.txt.manifest.json_" {
		t.Errorf("StoragePath = %q", second.StoragePath)
	}

	entry, err := model.ReadFileManifest(first.ManifestPath)
	if err != nil {
		t.Fatalf("first manifest unreadable: %v", err)
	}
	if entry.SourceURL != server.URL+"/fixture.txt" {
		t.Errorf("first manifest source = %q", entry.SourceURL)
	}

	report, err := store.Verify(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() || report.FilesChecked != 2 {
		t.Errorf("verify: checked %d, problems %v", report.FilesChecked, report.Problems)
	}
}

// TestAcquireFileAlternateHash tests storage under a non-default algorithm.
func TestAcquireFileAlternateHash(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t)
	h, err := hashutil.NewHasher(hashutil.AlgorithmBLAKE2b)
	if err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t, WithHasher(h))

	result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/fixture.txt", DataSource: "demo"})
	if result.Status != model.StatusSuccess {
		t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
	}
	if result.ContentHash != h.Sum([]byte("0123456789")) {
		t.Errorf("hash = %q", result.ContentHash)
	}
	if result.HashAlgorithm != hashutil.AlgorithmBLAKE2b {
		t.Errorf("algorithm = %q", result.HashAlgorithm)
	}
}

// TestNewStore tests constructor validation.
func TestNewStore(t *testing.T) {
	t.Parallel()

	if _, err := NewStore("  "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	store, err := NewStore("relative/cas")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(store.Root()) {
		t.Errorf("root %q is not absolute", store.Root())
	}
	if store.client == nil || store.client.Timeout != transport.DefaultFileTimeout {
		t.Errorf("expected default client with %v timeout, got %+v", transport.DefaultFileTimeout, store.client)
	}
	if got := store.SourceDir("../../etc"); filepath.Dir(got) != store.Root() {
		t.Errorf("data source escaped root: %q", got)
	}
}
