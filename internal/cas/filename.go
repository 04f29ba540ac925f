package cas

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
)

// looseFilenamePattern recovers a filename from Content-Disposition values
// that mime.ParseMediaType rejects, such as unquoted names with spaces.
var looseFilenamePattern = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)

// filenameFor picks the storage filename for a download: the
// Content-Disposition filename (filename* first, then filename), else the
// last URL path segment. The result is always sanitized and never ends in
// model.ManifestSuffix, so a download cannot take the place of a manifest.
func filenameFor(contentDisposition, rawURL string) string {
	name := filenameFromDisposition(contentDisposition)
	if name == "" {
		name = filenameFromURL(rawURL)
	}
	name = hashutil.SanitizeFilename(name, hashutil.DefaultFallbackName)
	if strings.HasSuffix(name, model.ManifestSuffix) {
		name += "_"
	}
	return name
}

// filenameFromDisposition extracts the filename parameter of a
// Content-Disposition header. mime.ParseMediaType decodes RFC 2231/5987
// "filename*" values into the "filename" key, so the extended form wins
// when both are present.
func filenameFromDisposition(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name := strings.TrimSpace(params["filename"]); name != "" {
			return name
		}
	}
	if m := looseFilenamePattern.FindStringSubmatch(header); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// filenameFromURL returns the unescaped last path segment of rawURL.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
