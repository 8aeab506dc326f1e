package heartbeat

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/remoteaudio/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
	)
}

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	m, err := Listen(Config{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestPeerAliveFreshnessWindow(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	now := time.Now()
	assert.False(t, m.PeerAlive(now), "no datagram received yet")
	assert.True(t, m.LastSeen().IsZero())

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
	m.record(addr, []byte("PING"), now)

	assert.True(t, m.PeerAlive(now))
	assert.True(t, m.PeerAlive(now.Add(DefaultFreshness-time.Millisecond)))
	assert.False(t, m.PeerAlive(now.Add(DefaultFreshness)), "freshness window is exclusive")
	assert.Equal(t, now.UnixNano(), m.LastSeen().UnixNano())
}

func TestSendDiagnosticWithoutPeer(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	require.ErrorIs(t, m.SendDiagnostic([]byte("Time: 0.000000")), ErrNoPeer)
}

func TestSendDiagnosticAfterCloseLogsDeadlineFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	m, err := Listen(Config{
		Listen: "127.0.0.1:0",
		Logger: logger.NewSlogLogger(&logs, logger.LogLevelDebug, time.UTC),
	})
	require.NoError(t, err)

	m.record(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}, []byte("PING"), time.Now())
	require.NoError(t, m.Close())

	require.Error(t, m.SendDiagnostic([]byte("Time: 0.050000")))
	assert.Equal(t, uint64(1), m.Status(time.Now()).SendFails)
	assert.Contains(t, logs.String(), "heartbeat write deadline not set")
}

func TestPeersTableOrder(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	now := time.Now()
	a := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40001}
	b := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40002}

	m.record(a, []byte("PING"), now)
	m.record(b, []byte("PING"), now.Add(time.Second))
	m.record(a, []byte("HELLO"), now.Add(2*time.Second))

	peers := m.Peers()
	require.Len(t, peers, 2)
	assert.Equal(t, a.String(), peers[0].Addr)
	assert.Equal(t, uint64(2), peers[0].Datagrams)
	assert.Equal(t, "HELLO", peers[0].LastMessage)
	assert.Equal(t, now.UnixNano(), peers[0].FirstSeen.UnixNano())
	assert.Equal(t, b.String(), peers[1].Addr)

	st := m.Status(now.Add(2 * time.Second))
	assert.True(t, st.PeerAlive)
	assert.Equal(t, a.String(), st.LastPeer)
	assert.Equal(t, uint64(3), st.Received)
}

func TestLoopbackDiagnosticRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)

	peer, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = peer.Close() }()

	_, err = peer.WriteTo([]byte(PingMessage), m.LocalAddr())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.PeerAlive(time.Now()) },
		2*time.Second, 10*time.Millisecond, "monitor should see the ping")
	assert.Equal(t, peer.LocalAddr().String(), m.Status(time.Now()).LastPeer)

	require.NoError(t, m.SendDiagnostic([]byte("Time: 0.050000")))

	buf := make([]byte, 64)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := peer.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "Time: 0.050000", string(buf[:n]))
	assert.Equal(t, uint64(1), m.Status(time.Now()).Sent)
}

func TestClientKeepsPeerAlive(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t)
	c, err := Dial(m.LocalAddr().String(), 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	received := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(msg []byte) {
			select {
			case received <- string(msg):
			default:
			}
		})
	}()

	require.Eventually(t, func() bool { return m.PeerAlive(time.Now()) },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.SendDiagnostic([]byte("Time: 1.000000")))
	select {
	case msg := <-received:
		assert.Equal(t, "Time: 1.000000", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not receive the diagnostic")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}

	peers := m.Peers()
	require.Len(t, peers, 1)
	assert.Equal(t, PingMessage, peers[0].LastMessage)
}

func TestListenRejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, err := Listen(Config{Listen: "not-an-address"})
	require.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m, err := Listen(Config{Listen: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
