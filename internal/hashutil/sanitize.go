package hashutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultFallbackName is used when both the name and the caller's fallback
// sanitize to nothing.
const DefaultFallbackName = "downloaded_file"

// SanitizeFilename turns an untrusted name into a single safe path segment.
//
// The steps are:
//  1. NFC-normalize so that visually identical names map to the same bytes
//  2. keep only the last path element (both '/' and '\' count as separators)
//  3. replace runs of whitespace and - / \ & : , | with one underscore
//  4. drop everything that is not a letter, digit, '.', '_' or '-'
//  5. collapse repeated underscores and hyphens
//  6. trim leading and trailing '.', '_', '-' and spaces
//
// If nothing is left, fallback is returned (or DefaultFallbackName when the
// fallback is empty too). The function never fails, and the result never
// contains a separator and is never "." or "..".
func SanitizeFilename(name, fallback string) string {
	if fallback == "" {
		fallback = DefaultFallbackName
	}
	if name == "" {
		return fallback
	}

	name = norm.NFC.String(name)
	name = baseName(name)

	var b strings.Builder
	b.Grow(len(name))

	inSeparatorRun := false
	for _, r := range name {
		if isSeparatorRune(r) {
			if !inSeparatorRun {
				b.WriteRune('_')
				inSeparatorRun = true
			}
			continue
		}
		inSeparatorRun = false
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	s := collapseRepeats(b.String(), '_')
	s = collapseRepeats(s, '-')
	s = strings.Trim(s, "._- ")

	if s == "" {
		return fallback
	}
	return s
}

// baseName returns the last non-empty element of a slash or backslash
// separated path.
func baseName(name string) string {
	trimmed := strings.TrimRight(name, `/\`)
	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// isSeparatorRune reports whether r is mapped to an underscore.
func isSeparatorRune(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '-', '/', '\\', '&', ':', ',', '|':
		return true
	}
	return false
}

// collapseRepeats replaces runs of c with a single c.
func collapseRepeats(s string, c byte) string {
	double := string([]byte{c, c})
	for strings.Contains(s, double) {
		s = strings.ReplaceAll(s, double, string(c))
	}
	return s
}
