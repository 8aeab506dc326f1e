package remote

import "github.com/tphakala/remoteaudio/internal/logger"

// GetLogger returns the remote backend logger. It is resolved on each call so
// it follows the central logger installed after package init.
func GetLogger() logger.Logger {
	return logger.Global().Module("audiocore").Module("remote")
}
