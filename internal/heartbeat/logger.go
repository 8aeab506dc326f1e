package heartbeat

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the heartbeat module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("heartbeat")
}
