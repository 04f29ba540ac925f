package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSources is returned when a run is requested but no sources file
	// could be found.
	ErrNoSources = errors.New("no sources file found: use -c or create one with 'ingestcas init'")

	// ErrEmptyCASRoot is returned when the content-addressable store root is empty.
	ErrEmptyCASRoot = errors.New("invalid CAS root: must not be empty")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no work is ever started.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidRetry is returned when retry attempts are below one or a
	// backoff is negative.
	ErrInvalidRetry = errors.New("invalid retry policy: attempts must be at least 1 and backoff non-negative")

	// ErrUnknownHashAlgorithm is returned for an unsupported hash algorithm.
	ErrUnknownHashAlgorithm = errors.New("unknown hash algorithm")

	// ErrInvalidMaxBodySize is returned when a size limit is negative.
	// Use 0 to disable the file size limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxyAddress is returned when the proxy is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
