package remote

import (
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/errors"
)

// ConfigFromSettings creates a backend Config from the application settings.
// Metrics, logger and stream hooks are left for the caller.
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := Config{}
	if settings.Heartbeat.Enabled {
		cfg.HeartbeatListen = settings.Heartbeat.Listen
		cfg.HeartbeatFreshness = settings.Heartbeat.Freshness
		cfg.PeerTTL = settings.Heartbeat.PeerTTL
		cfg.DiagnosticInterval = settings.Heartbeat.DiagnosticInterval
	}
	return cfg
}

// StreamConfigFromSettings resolves the configured format and layout names.
func StreamConfigFromSettings(settings *conf.AudioSettings, name string) (audiocore.StreamConfig, error) {
	format, ok := audiocore.ParseFormat(settings.Format)
	if !ok {
		return audiocore.StreamConfig{}, audiocore.NewError(audiocore.ErrInvalid, errors.CategoryConfiguration,
			"unknown sample format").
			Context("format", settings.Format).
			Build()
	}

	var layout audiocore.ChannelLayout
	if settings.Layout != "" {
		layout, ok = audiocore.LayoutByName(settings.Layout)
		if !ok {
			return audiocore.StreamConfig{}, audiocore.NewError(audiocore.ErrInvalid, errors.CategoryConfiguration,
				"unknown channel layout").
				Context("layout", settings.Layout).
				Build()
		}
	}

	return audiocore.StreamConfig{
		Name:            name,
		Format:          format,
		Layout:          layout,
		SampleRate:      settings.SampleRate,
		SoftwareLatency: time.Duration(settings.Latency * float64(time.Second)),
	}, nil
}
