// Package log provides slog loggers that redact sensitive request data.
//
// Catalog files may carry session cookies or authorization headers for the
// source site. RedactingHandler masks the values of such attributes, including
// inside header maps and groups, before they reach the underlying handler.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("category scraped", "label", "Tea", "items", 42)
//	logger.Debug("request", "cookie", "session=abc") // cookie=***REDACTED***
package log
