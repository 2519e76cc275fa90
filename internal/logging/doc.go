// Package logging provides structured logging for retools.
//
// This package wraps a zap logger with package-level convenience functions
// and a few retools-specific helpers for engine lifecycle, frame sources and
// individual frames.
//
// # Log Levels
//
//   - Debug: per-frame detail (frame dumps, drops, key derivation)
//   - Info: lifecycle changes, source connections, control commands
//   - Warn: recoverable issues (malformed frames, source reconnects)
//   - Error: failures that stop a source or the server
//
// # Configuration
//
// Logging is silent unless a level is given explicitly or through the
// RETOOLS_LOG_LEVEL environment variable. Interactive commands such as
// "retools monitor" print their own output and keep zap quiet by default:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogLifecycle("started", zap.Int("queue_size", 20))
//	logging.LogSource("nats", "subscribed", zap.String("subject", "can.>"))
//	logging.LogFrame("received", frame)
//
// # Thread Safety
//
// All functions are safe for concurrent use.
package logging
