// Package log provides logging with automatic sanitization of sensitive
// values, built on top of the standard slog package.
//
// Site configurations may carry custom request headers such as
// Authorization or Cookie for crawling authenticated staging sites.
// Those values must never end up in log output, even in verbose mode,
// because audit logs are commonly shared with clients or attached to
// tickets.
//
// The SecureHandler wraps any slog.Handler and masks:
//   - HTTP credential headers (Authorization, Cookie, X-Api-Key, ...)
//   - Secret values detected by pattern matching (JWTs, bearer tokens,
//     basic auth blobs, long API keys)
//   - Session identifiers
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // masked
//	    "url", "https://example.com",
//	)
//
//	slog.SetDefault(logger)
package log
