package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/conf"
)

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{Heartbeat: conf.HeartbeatSettings{
		Enabled:            true,
		Listen:             "127.0.0.1:9999",
		Freshness:          2 * time.Second,
		DiagnosticInterval: 100 * time.Millisecond,
		PeerTTL:            time.Minute,
	}}
	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "127.0.0.1:9999", cfg.HeartbeatListen)
	assert.Equal(t, 2*time.Second, cfg.HeartbeatFreshness)
	assert.Equal(t, 100*time.Millisecond, cfg.DiagnosticInterval)
	assert.Equal(t, time.Minute, cfg.PeerTTL)

	settings.Heartbeat.Enabled = false
	assert.Empty(t, ConfigFromSettings(settings).HeartbeatListen)
}

func TestStreamConfigFromSettings(t *testing.T) {
	t.Parallel()

	sc, err := StreamConfigFromSettings(&conf.AudioSettings{
		SampleRate: 44100,
		Format:     "s16le",
		Layout:     "5.1",
		Latency:    0.25,
	}, "tone")
	require.NoError(t, err)
	assert.Equal(t, "tone", sc.Name)
	assert.Equal(t, audiocore.FormatS16LE, sc.Format)
	assert.Equal(t, 6, sc.Layout.ChannelCount())
	assert.Equal(t, 44100, sc.SampleRate)
	assert.Equal(t, 250*time.Millisecond, sc.SoftwareLatency)

	sc, err = StreamConfigFromSettings(&conf.AudioSettings{Format: "float32ne"}, "")
	require.NoError(t, err)
	assert.Zero(t, sc.Layout.ChannelCount(), "empty layout selects the device default at open")

	_, err = StreamConfigFromSettings(&conf.AudioSettings{Format: "s12le"}, "")
	require.ErrorIs(t, err, audiocore.ErrInvalid)
	_, err = StreamConfigFromSettings(&conf.AudioSettings{Format: "s16le", Layout: "Quadraphonic"}, "")
	require.ErrorIs(t, err, audiocore.ErrInvalid)
}
