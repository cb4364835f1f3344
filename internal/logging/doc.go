// Package logging provides structured logging for the Grünbeck cloud client.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the library. It provides both general logging
// functions and specialized functions for cloud request and relay frame
// logging.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (request/response traces, relay frames)
//   - Info: Normal operations (login, device selection, stream lifecycle)
//   - Warn: Non-fatal issues (empty parameter updates, refresh fallbacks)
//   - Error: Fatal issues (rejected credentials, lost connections)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device selected",
//	    zap.String("device_id", "softliQ.D/..."),
//	    zap.String("series", "softliQ.D"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Cloud Request Logging:
//
//	logging.LogRequest("get_devices", "GET", url)
//	logging.LogResponse("get_devices", 200, len(body))
//
// Relay Frame Logging:
//
//	logging.LogStreamFrame("received", redactedPayload)
//	logging.LogStreamFrame("sent", redactedPayload)
//
// Payloads handed to LogStreamFrame must already be redacted: the relay
// carries bearer tokens and device serial numbers inline, and raw secrets
// must never reach a log line.
//
// # Configuration
//
// Initialize logging at program startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given, the GRUENBECK_LOG_LEVEL environment variable is
// consulted; if that is also unset the logger is silent. Library consumers
// that never initialize logging get no output at all.
//
// # Output Format
//
// Logs are written to stdout in console format (human-readable):
//
//	2025-11-25T10:30:45.123+0100  INFO  Device selected
//	  device_id=softliQ.D/...
//	  series=softliQ.D
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
