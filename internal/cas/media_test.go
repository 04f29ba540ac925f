package cas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/ingestcas/internal/model"
)

// minimalEXIFJPEG returns a JPEG whose APP1 segment holds a big-endian TIFF
// block with a single IFD0 entry: Make = "Canon".
func minimalEXIFJPEG() []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, // byte order, magic
		0x00, 0x00, 0x00, 0x08, // IFD0 offset
		0x00, 0x01, // one entry
		0x01, 0x0F, // tag: Make
		0x00, 0x02, // type: ASCII
		0x00, 0x00, 0x00, 0x06, // count
		0x00, 0x00, 0x00, 0x1A, // value offset (26)
		0x00, 0x00, 0x00, 0x00, // no next IFD
		'C', 'a', 'n', 'o', 'n', 0x00,
	}
	app1Len := 2 + 6 + len(tiff)

	data := []byte{0xFF, 0xD8, 0xFF, 0xE1, byte(app1Len >> 8), byte(app1Len)}
	data = append(data, 'E', 'x', 'i', 'f', 0x00, 0x00)
	data = append(data, tiff...)
	return append(data, 0xFF, 0xD9)
}

// TestExifTags tests EXIF parsing of an in-memory image.
func TestExifTags(t *testing.T) {
	t.Parallel()

	tags := exifTags(minimalEXIFJPEG())
	if tags["Make"] != "Canon" {
		t.Errorf("tags = %v", tags)
	}

	if got := exifTags([]byte("not an image")); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

// TestIsMediaCandidate tests image detection by content type and extension.
func TestIsMediaCandidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path        string
		contentType string
		want        bool
	}{
		{"photo.bin", "image/jpeg", true},
		{"photo.bin", "IMAGE/TIFF; q=1", true},
		{"photo.JPG", "", true},
		{"scan.tiff", "application/octet-stream", true},
		{"image.png", "image/png", false},
		{"doc.pdf", "application/pdf", false},
	}
	for _, tt := range tests {
		if got := isMediaCandidate(tt.path, tt.contentType); got != tt.want {
			t.Errorf("isMediaCandidate(%q, %q) = %v, expected %v", tt.path, tt.contentType, got, tt.want)
		}
	}
}

// TestExtractMediaMetadata tests the file-level wrapper.
func TestExtractMediaMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	jpeg := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(jpeg, minimalEXIFJPEG(), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := extractMediaMetadata(jpeg, ""); got["Make"] != "Canon" {
		t.Errorf("got %v", got)
	}

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, minimalEXIFJPEG(), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := extractMediaMetadata(text, "text/plain"); got != nil {
		t.Errorf("non-image should be skipped, got %v", got)
	}

	if got := extractMediaMetadata(filepath.Join(dir, "missing.jpg"), "image/jpeg"); got != nil {
		t.Errorf("missing file should yield nil, got %v", got)
	}
}

// TestAcquireFileMediaMetadata tests that stored images get media metadata.
func TestAcquireFileMediaMetadata(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(minimalEXIFJPEG())
	}))
	t.Cleanup(server.Close)

	t.Run("enabled", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/camera.jpg", DataSource: "photos"})
		if result.Status != model.StatusSuccess {
			t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
		}
		entry, err := model.ReadFileManifest(result.ManifestPath)
		if err != nil {
			t.Fatal(err)
		}
		if entry.MediaMetadata["Make"] != "Canon" {
			t.Errorf("media_metadata = %v", entry.MediaMetadata)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, WithMediaMetadata(false))
		result := store.AcquireFile(context.Background(), FileRequest{URL: server.URL + "/camera.jpg", DataSource: "photos"})
		if result.Status != model.StatusSuccess {
			t.Fatalf("status = %s: %s", result.Status, result.ErrorMessage)
		}
		entry, err := model.ReadFileManifest(result.ManifestPath)
		if err != nil {
			t.Fatal(err)
		}
		if entry.MediaMetadata != nil {
			t.Errorf("media_metadata = %v, expected none", entry.MediaMetadata)
		}
	})
}
