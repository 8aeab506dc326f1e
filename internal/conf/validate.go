// conf/validate.go

package conf

import (
	"fmt"
	"strings"
	"time"
)

// Device bounds shared by both virtual devices.
const (
	MinSampleRate = 20
	MaxSampleRate = 192000
	MinLatency    = 0.01
	MaxLatency    = 4.0
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, err := range []error{
		validateAudioSettings(&settings.Audio),
		validateHeartbeatSettings(&settings.Heartbeat),
		validateWebServerSettings(&settings.WebServer),
	} {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(settings *AudioSettings) error {
	if settings.SampleRate < MinSampleRate || settings.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.samplerate %d outside [%d, %d]", settings.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if settings.Latency != 0 && (settings.Latency < MinLatency || settings.Latency > MaxLatency) {
		return fmt.Errorf("audio.latency %gs outside [%g, %g]", settings.Latency, MinLatency, MaxLatency)
	}
	if settings.Tone < 0 || settings.Tone > float64(settings.SampleRate)/2 {
		return fmt.Errorf("audio.tone %g Hz must be between 0 and the Nyquist frequency", settings.Tone)
	}
	if strings.TrimSpace(settings.Format) == "" {
		return fmt.Errorf("audio.format must be set")
	}
	return nil
}

func validateHeartbeatSettings(settings *HeartbeatSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, err := splitHostPort(settings.Listen); err != nil {
		return fmt.Errorf("heartbeat.listen %q: %w", settings.Listen, err)
	}
	if settings.Freshness <= 0 {
		return fmt.Errorf("heartbeat.freshness must be positive")
	}
	if settings.DiagnosticInterval < 0 {
		return fmt.Errorf("heartbeat.diagnosticinterval must not be negative")
	}
	if settings.PeerTTL < time.Second {
		return fmt.Errorf("heartbeat.peerttl must be at least 1s")
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	if port, err := splitHostPort(settings.Listen); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("webserver.listen %q is not a valid host:port", settings.Listen)
	}
	return nil
}
