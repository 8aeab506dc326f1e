package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
)

func TestStreamMetricsRecording(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewStreamMetrics(registry)
	require.NoError(t, err)

	m.StreamOpened("remote-out", audiocore.AimOutput)
	m.StreamOpened("remote-out", audiocore.AimOutput)
	m.StreamClosed("remote-out", audiocore.AimOutput)
	m.StreamOpened("remote-in", audiocore.AimInput)

	assert.InDelta(t, 1, testutil.ToFloat64(m.StreamsOpen.WithLabelValues("remote-out", "output")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.StreamsOpened.WithLabelValues("remote-out", "output")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StreamsOpen.WithLabelValues("remote-in", "input")), 0)

	m.RecordPeriod("remote-out", 2400)
	m.RecordPeriod("remote-out", 0)
	m.RecordUnderflow("remote-out")
	m.RecordOverflow("remote-in")
	m.RecordBufferLatency("remote-out", 50*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Periods.WithLabelValues("remote-out")), 0)
	assert.InDelta(t, 2400, testutil.ToFloat64(m.Frames.WithLabelValues("remote-out")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Underflows.WithLabelValues("remote-out")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Overflows.WithLabelValues("remote-in")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.BufferLatency))

	m.RecordDiagnostic(nil)
	m.RecordDiagnostic(nil)
	m.RecordDiagnostic(errors.New("write failed"))
	assert.InDelta(t, 2, testutil.ToFloat64(m.Diagnostics.WithLabelValues(ResultSent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Diagnostics.WithLabelValues(ResultFailed)), 0)
}

func TestStreamMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewStreamMetrics(registry)
	require.NoError(t, err)
	_, err = NewStreamMetrics(registry)
	require.Error(t, err)
}

type fixedStatus heartbeat.Status

func (f fixedStatus) Status(time.Time) heartbeat.Status { return heartbeat.Status(f) }

func TestHeartbeatMetricsCollect(t *testing.T) {
	t.Parallel()

	seen := time.Unix(1700000000, 500_000_000)
	src := fixedStatus{
		PeerAlive: true,
		LastSeen:  seen,
		Received:  7,
		Sent:      3,
		SendFails: 1,
		Peers:     []heartbeat.Peer{{Addr: "127.0.0.1:9000"}, {Addr: "127.0.0.1:9001"}},
	}

	registry := prometheus.NewRegistry()
	m, err := NewHeartbeatMetrics(registry, src)
	require.NoError(t, err)

	expected := `
# HELP remoteaudio_heartbeat_datagrams_received_total Total number of heartbeat datagrams received
# TYPE remoteaudio_heartbeat_datagrams_received_total counter
remoteaudio_heartbeat_datagrams_received_total 7
# HELP remoteaudio_heartbeat_known_peers Number of peers in the recent-peer table
# TYPE remoteaudio_heartbeat_known_peers gauge
remoteaudio_heartbeat_known_peers 2
# HELP remoteaudio_heartbeat_peer_alive 1 while a heartbeat peer was seen within the freshness window
# TYPE remoteaudio_heartbeat_peer_alive gauge
remoteaudio_heartbeat_peer_alive 1
# HELP remoteaudio_heartbeat_send_failures_total Total number of failed diagnostic writes
# TYPE remoteaudio_heartbeat_send_failures_total counter
remoteaudio_heartbeat_send_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"remoteaudio_heartbeat_datagrams_received_total",
		"remoteaudio_heartbeat_known_peers",
		"remoteaudio_heartbeat_peer_alive",
		"remoteaudio_heartbeat_send_failures_total",
	))
	assert.Equal(t, 6, testutil.CollectAndCount(m))
}

func TestHeartbeatMetricsWithoutPeer(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewHeartbeatMetrics(registry, fixedStatus{})
	require.NoError(t, err)

	expected := `
# HELP remoteaudio_heartbeat_last_seen_timestamp_seconds Unix time of the last heartbeat datagram, 0 if none
# TYPE remoteaudio_heartbeat_last_seen_timestamp_seconds gauge
remoteaudio_heartbeat_last_seen_timestamp_seconds 0
# HELP remoteaudio_heartbeat_peer_alive 1 while a heartbeat peer was seen within the freshness window
# TYPE remoteaudio_heartbeat_peer_alive gauge
remoteaudio_heartbeat_peer_alive 0
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"remoteaudio_heartbeat_last_seen_timestamp_seconds",
		"remoteaudio_heartbeat_peer_alive",
	))
}
