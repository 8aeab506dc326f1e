package observability

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the observability package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
