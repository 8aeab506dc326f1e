package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
)

type staticHeartbeat struct{}

func (staticHeartbeat) Status(time.Time) heartbeat.Status {
	return heartbeat.Status{PeerAlive: true, Received: 4}
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	require.NoError(t, m.AttachHeartbeat(staticHeartbeat{}))
	require.Error(t, m.AttachHeartbeat(staticHeartbeat{}), "second attach is rejected")

	m.Streams.StreamOpened("remote-out", audiocore.AimOutput)
	m.Streams.RecordUnderflow("remote-out")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `remoteaudio_streams_open{aim="output",device="remote-out"} 1`)
	assert.Contains(t, text, `remoteaudio_underflows_total{device="remote-out"} 1`)
	assert.Contains(t, text, "remoteaudio_heartbeat_peer_alive 1")
	assert.Contains(t, text, "remoteaudio_heartbeat_datagrams_received_total 4")
	assert.Contains(t, text, "go_goroutines")
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a, err := NewMetrics()
	require.NoError(t, err)
	b, err := NewMetrics()
	require.NoError(t, err)
	assert.NotSame(t, a.Registry(), b.Registry())
}
