// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Sanitization of credentials found in configured request headers
//   - Redaction of passwords embedded in URLs and proxy addresses
//   - Configurable log levels with verbose mode support
//   - One structured line per ingestion result (LogFileResult and friends)
//
// Content hashes are long hexadecimal strings and would look like API keys
// to a naive pattern match; they are recognized and logged unchanged.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "authorization", "Bearer abc123", // logged as ***REDACTED***
//	    "proxy", "socks5://user:pw@127.0.0.1:9050", // password masked
//	)
//
//	slog.SetDefault(logger)
package log
