package report

import "errors"

var (
	// ErrNotReportable is returned for results that did not succeed or
	// carry nothing to show.
	ErrNotReportable = errors.New("result is not reportable")

	// ErrUnknownFormat is returned by ParseFormat for unsupported names.
	ErrUnknownFormat = errors.New("unknown report format")
)
