// Package metrics provides Prometheus collectors for the remote audio backend.
package metrics

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the metrics package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry").Module("metrics")
}
