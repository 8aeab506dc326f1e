package config

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the config command logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
