package record

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the record command logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("record")
}
