package serve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/buildinfo"
	"github.com/tphakala/remoteaudio/internal/conf"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		Audio:     conf.AudioSettings{SampleRate: 48000, Format: "s16le", Layout: "Stereo", Latency: 0.05, Tone: 1000},
		WebServer: conf.WebServerSettings{Listen: "127.0.0.1:0"},
	}
}

func TestServeWithBackgroundStreams(t *testing.T) {
	t.Parallel()

	info := &buildinfo.Context{Version: "test"}
	err := Run(t.Context(), testSettings(), info, Options{Play: true, Record: true, Duration: 200 * time.Millisecond})
	require.NoError(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, Run(ctx, testSettings(), nil, Options{}))
}

func TestServeBindFailure(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.WebServer.Listen = "bad address"
	err := Run(t.Context(), settings, nil, Options{Duration: time.Second})
	require.Error(t, err)
}
