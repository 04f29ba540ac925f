package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/transport"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ingestcas"

	// DefaultFileTimeout covers a whole file download. Files can be large,
	// so it is longer than the page and API timeouts.
	DefaultFileTimeout = transport.DefaultFileTimeout

	// DefaultPageTimeout applies to each HTML fetch.
	DefaultPageTimeout = transport.DefaultTimeout

	// DefaultAPITimeout applies to each JSON API request.
	DefaultAPITimeout = transport.DefaultTimeout

	// DefaultBatchSize is the number of units processed concurrently.
	DefaultBatchSize = 4

	// DefaultRetryAttempts is the total number of attempts per unit.
	// One attempt means no retry.
	DefaultRetryAttempts = 1

	// DefaultRetryBackoff is the delay before the first retry. It doubles
	// for each further retry up to DefaultMaxRetryBackoff.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultMaxRetryBackoff caps the retry delay.
	DefaultMaxRetryBackoff = 30 * time.Second

	// DefaultMaxBodySize limits HTML and API response bodies.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies ingestcas in HTTP requests.
	DefaultUserAgent = transport.DefaultUserAgent

	// DefaultFlowName names runs started by `ingestcas run`.
	DefaultFlowName = "Ingestion Flow"
)

// Config holds all configuration options for ingestcas.
// This struct is populated from defaults, the sources file, the
// environment and CLI flags, and passed through the application via
// dependency injection rather than global state.
//
// Design decision: We use a single flat struct, like the CLI flags it
// mirrors. The sources themselves live in File.
type Config struct {
	// CASRoot is the root directory of the content-addressable store.
	CASRoot string

	// HashAlgorithm names the content hash; see hashutil.Algorithms.
	HashAlgorithm string

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveHistory records runs and results in the history database.
	SaveHistory bool

	// FileTimeout bounds one file download.
	FileTimeout time.Duration

	// PageTimeout bounds one HTML fetch.
	PageTimeout time.Duration

	// APITimeout bounds one API request.
	APITimeout time.Duration

	// BatchSize is the number of units processed concurrently.
	BatchSize int

	// RetryAttempts is the total number of attempts per unit (>= 1).
	RetryAttempts int

	// RetryBackoff is the delay before the first retry.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the exponential retry delay.
	MaxRetryBackoff time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxFileSize limits downloaded files in bytes. Zero means unlimited.
	MaxFileSize int64

	// MaxBodySize limits HTML and API response bodies in bytes.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// ReportDir receives one report artifact per result when set.
	ReportDir string

	// ReportFormat is "markdown" or "json".
	ReportFormat string

	// ConfigFilePath is the sources file in use, if any.
	ConfigFilePath string

	// Sources holds the sources file contents.
	Sources *File
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		CASRoot:         DefaultCASRoot(),
		HashAlgorithm:   hashutil.AlgorithmSHA256,
		DBDir:           XDGDataDir(),
		SaveHistory:     true,
		FileTimeout:     DefaultFileTimeout,
		PageTimeout:     DefaultPageTimeout,
		APITimeout:      DefaultAPITimeout,
		BatchSize:       DefaultBatchSize,
		RetryAttempts:   DefaultRetryAttempts,
		RetryBackoff:    DefaultRetryBackoff,
		MaxRetryBackoff: DefaultMaxRetryBackoff,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		ReportFormat:    "markdown",
	}
}

// XDGDataDir returns the XDG data directory for ingestcas.
// On Linux: ~/.local/share/ingestcas
// On macOS: ~/Library/Application Support/ingestcas
// On Windows: %LOCALAPPDATA%\ingestcas
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ingestcas.
// On Linux: ~/.config/ingestcas
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultCASRoot returns the default store root under the XDG data directory.
func DefaultCASRoot() string {
	return filepath.Join(XDGDataDir(), "cas")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if c.CASRoot == "" {
		return ErrEmptyCASRoot
	}

	if c.FileTimeout <= 0 || c.PageTimeout <= 0 || c.APITimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.RetryAttempts < 1 || c.RetryBackoff < 0 || c.MaxRetryBackoff < 0 {
		return ErrInvalidRetry
	}

	if _, err := hashutil.NewHasher(c.HashAlgorithm); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownHashAlgorithm, c.HashAlgorithm)
	}

	if c.MaxFileSize < 0 || c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress != "" && !transport.IsValidProxyAddress(c.ProxyAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.ProxyAddress)
	}

	return nil
}

// TransportOptions returns client options for requests bounded by timeout.
func (c *Config) TransportOptions(timeout time.Duration) transport.Options {
	opts := transport.Options{
		Timeout:      timeout,
		ProxyAddress: c.ProxyAddress,
		UserAgent:    c.UserAgent,
	}
	if c.Sources != nil {
		opts.Headers = c.Sources.Headers
	}
	return opts
}

// Hasher returns the configured hasher.
func (c *Config) Hasher() (*hashutil.Hasher, error) {
	h, err := hashutil.NewHasher(c.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashAlgorithm, c.HashAlgorithm)
	}
	return h, nil
}
