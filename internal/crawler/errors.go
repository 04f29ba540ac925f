package crawler

import "errors"

var (
	// ErrParse is returned when a page or its URL cannot be parsed.
	ErrParse = errors.New("failed to parse page")

	// ErrNoHTML is returned when a fetched page has an empty body.
	ErrNoHTML = errors.New("no HTML content")
)
