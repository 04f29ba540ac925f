package cas

import (
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// maxMediaScanSize bounds the files inspected for EXIF data.
const maxMediaScanSize = 32 * 1024 * 1024

// mediaTags are the EXIF tags copied into manifests.
var mediaTags = map[string]struct{}{
	"Make":              {},
	"Model":             {},
	"Software":          {},
	"DateTime":          {},
	"DateTimeOriginal":  {},
	"DateTimeDigitized": {},
	"GPSLatitude":       {},
	"GPSLatitudeRef":    {},
	"GPSLongitude":      {},
	"GPSLongitudeRef":   {},
	"GPSAltitude":       {},
	"ImageWidth":        {},
	"ImageLength":       {},
	"Orientation":       {},
}

// isMediaCandidate reports whether a file may carry EXIF data, judged by
// content type or extension. Only JPEG, TIFF and HEIC are considered.
func isMediaCandidate(path, contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range []string{"image/jpeg", "image/jpg", "image/tiff", "image/heic", "image/heif"} {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tif", ".tiff", ".heic", ".heif":
		return true
	}
	return false
}

// extractMediaMetadata returns selected EXIF tags of the stored file, or
// nil when the file is not an image, carries no EXIF block or cannot be
// read. Metadata is optional, so failures are not reported.
func extractMediaMetadata(path, contentType string) map[string]string {
	if !isMediaCandidate(path, contentType) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxMediaScanSize {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the CAS root
	if err != nil {
		return nil
	}
	return exifTags(data)
}

// exifTags parses the EXIF block of data.
func exifTags(data []byte) map[string]string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	var out map[string]string
	for _, entry := range entries {
		if _, ok := mediaTags[entry.TagName]; !ok {
			continue
		}
		value := strings.TrimSpace(entry.Formatted)
		if value == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		// First IFD wins; the thumbnail IFD repeats some tags.
		if _, exists := out[entry.TagName]; !exists {
			out[entry.TagName] = value
		}
	}
	return out
}
