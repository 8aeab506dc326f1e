// Package httpserver serves the status API and Prometheus metrics of a running
// remoteaudio backend.
package httpserver

import (
	"time"

	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// GetLogger returns the httpserver package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("httpserver")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = "127.0.0.1:8090"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port to bind

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration // maximum time to wait for in-flight requests
}

// DefaultConfig returns a Config with the default timeouts.
func DefaultConfig() Config {
	return Config{
		Listen:          DefaultListen,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.WebServerSettings) Config {
	cfg := DefaultConfig()
	if settings.Listen != "" {
		cfg.Listen = settings.Listen
	}
	return cfg
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}
