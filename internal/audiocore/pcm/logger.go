package pcm

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the pcm module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audiocore").Module("pcm")
}
