package peer

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the peer command logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("peer")
}
