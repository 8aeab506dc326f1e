package play

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the play command logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("play")
}
