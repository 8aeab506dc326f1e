package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validSettings() *Settings {
	return &Settings{
		Audio: AudioSettings{
			SampleRate: 48000,
			Format:     "s16le",
			Layout:     "Stereo",
			Tone:       440,
		},
		Heartbeat: HeartbeatSettings{
			Enabled:   true,
			Listen:    "127.0.0.1:8888",
			Freshness: 5 * time.Second,
			PeerTTL:   time.Minute,
		},
		WebServer: WebServerSettings{Listen: "127.0.0.1:8090"},
	}
}

func TestDefaultsUnmarshalAndValidate(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setDefaultConfig()

	settings, err := unmarshalSettings()
	require.NoError(t, err)

	assert.Equal(t, 48000, settings.Audio.SampleRate)
	assert.Equal(t, "float32le", settings.Audio.Format)
	assert.Equal(t, "127.0.0.1:8888", settings.Heartbeat.Listen)
	assert.Equal(t, 5*time.Second, settings.Heartbeat.Freshness)
	assert.Zero(t, settings.Heartbeat.DiagnosticInterval)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestEmbeddedConfigMatchesDefaults(t *testing.T) {
	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)

	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaultConfig()
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(bytes.NewReader(data)))

	settings, err := unmarshalSettings()
	require.NoError(t, err)
	assert.Equal(t, 48000, settings.Audio.SampleRate)
	assert.Equal(t, time.Minute, settings.Heartbeat.PeerTTL)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"rate too low", func(s *Settings) { s.Audio.SampleRate = 10 }, "audio.samplerate"},
		{"rate too high", func(s *Settings) { s.Audio.SampleRate = 200000 }, "audio.samplerate"},
		{"latency too small", func(s *Settings) { s.Audio.Latency = 0.001 }, "audio.latency"},
		{"latency default", func(s *Settings) { s.Audio.Latency = 0 }, ""},
		{"tone above nyquist", func(s *Settings) { s.Audio.Tone = 30000 }, "audio.tone"},
		{"bad heartbeat addr", func(s *Settings) { s.Heartbeat.Listen = "8888" }, "heartbeat.listen"},
		{"heartbeat disabled ignores addr", func(s *Settings) {
			s.Heartbeat.Enabled = false
			s.Heartbeat.Listen = ""
		}, ""},
		{"negative interval", func(s *Settings) { s.Heartbeat.DiagnosticInterval = -time.Second }, "diagnosticinterval"},
		{"bad web listen", func(s *Settings) {
			s.WebServer.Enabled = true
			s.WebServer.Listen = "localhost:99999"
		}, "webserver.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveYAMLConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	settings := validSettings()
	settings.Audio.Latency = 0.25

	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Settings
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, settings.Audio, decoded.Audio)
	assert.Equal(t, settings.Heartbeat.Listen, decoded.Heartbeat.Listen)
}
