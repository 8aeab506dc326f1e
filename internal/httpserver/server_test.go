package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
	"github.com/tphakala/remoteaudio/internal/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *remote.Backend) {
	t.Helper()
	b := remote.New(remote.Config{Logger: quietLogger()})
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	opts = append([]ServerOption{WithLogger(quietLogger())}, opts...)
	return New(Config{Listen: "127.0.0.1:0"}, b, opts...), b
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "remote", body["backend"])
}

func TestListDevices(t *testing.T) {
	t.Parallel()

	s, b := newTestServer(t)
	rec := get(t, s, "/api/v1/devices")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Backend string `json:"backend"`
		Outputs []struct {
			ID            string `json:"id"`
			Aim           string `json:"aim"`
			CurrentFormat string `json:"current_format"`
		} `json:"outputs"`
		Inputs []struct {
			ID string `json:"id"`
		} `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "remote", resp.Backend)
	require.Len(t, resp.Outputs, 1)
	assert.Equal(t, remote.OutputDeviceID, resp.Outputs[0].ID)
	assert.Equal(t, "output", resp.Outputs[0].Aim)
	assert.NotEmpty(t, resp.Outputs[0].CurrentFormat)
	require.Len(t, resp.Inputs, 1)
	assert.Equal(t, remote.InputDeviceID, resp.Inputs[0].ID)

	// references taken by the handler are dropped again
	out, err := b.OutputDevice(0)
	require.NoError(t, err)
	defer out.Unref()
	assert.Equal(t, 2, out.RefCount())
}

func TestStreams(t *testing.T) {
	t.Parallel()

	s, b := newTestServer(t)
	out, err := b.OutputDevice(0)
	require.NoError(t, err)
	defer out.Unref()

	st, err := b.OpenOutStream(out, audiocore.OutStreamConfig{
		StreamConfig:  audiocore.StreamConfig{Name: "tone", SampleRate: 8000, SoftwareLatency: 100 * time.Millisecond},
		WriteCallback: func(audiocore.OutStream, int, int) {},
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, st.Destroy()) }()

	rec := get(t, s, "/api/v1/streams")
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []StreamInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, st.ID(), infos[0].ID)
	assert.Equal(t, "tone", infos[0].Name)
	assert.Equal(t, remote.OutputDeviceID, infos[0].Device)
	assert.Equal(t, 8000, infos[0].SampleRate)
	assert.False(t, infos[0].Stats.Running)

	rec = get(t, s, "/api/v1/streams/"+st.ID())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/api/v1/streams/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "stream not found", e.Error)
}

type fixedHeartbeat struct{}

func (fixedHeartbeat) Status(time.Time) heartbeat.Status {
	return heartbeat.Status{Listen: "127.0.0.1:8888", PeerAlive: true, Received: 3}
}

func TestHeartbeatStatus(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/v1/heartbeat").Code)

	s, _ = newTestServer(t, WithHeartbeat(fixedHeartbeat{}))
	rec := get(t, s, "/api/v1/heartbeat")
	require.Equal(t, http.StatusOK, rec.Code)
	var st heartbeat.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.PeerAlive)
	assert.Equal(t, uint64(3), st.Received)
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/metrics").Code, "no handler, no route")

	s, _ = newTestServer(t, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})))
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(DefaultShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeBindFailure(t *testing.T) {
	t.Parallel()

	b := remote.New(remote.Config{Logger: quietLogger()})
	defer func() { require.NoError(t, b.Close()) }()
	s := New(Config{Listen: "bad address"}, b, WithLogger(quietLogger()))
	require.Error(t, s.Serve(t.Context()))
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(&conf.WebServerSettings{Enabled: true, Listen: "0.0.0.0:9100"})
	assert.Equal(t, "0.0.0.0:9100", cfg.Listen)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)

	assert.Equal(t, DefaultListen, ConfigFromSettings(&conf.WebServerSettings{}).Listen)
}
