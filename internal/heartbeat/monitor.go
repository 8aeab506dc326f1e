// Package heartbeat implements the UDP presence channel of the remote audio backend.
//
// A Monitor listens for datagrams from a peer. Any datagram marks the peer as
// seen; the playback engine only sends its diagnostic datagrams back while the
// peer was seen within the freshness window.
package heartbeat

import (
	"context"
	"net"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

const (
	DefaultListen    = "127.0.0.1:8888"
	DefaultFreshness = 5 * time.Second
	DefaultPeerTTL   = time.Minute

	// MaxDatagram is the largest datagram read; longer ones are truncated
	MaxDatagram = 512

	readTimeout  = 100 * time.Millisecond
	writeTimeout = 50 * time.Millisecond
)

// ErrNoPeer is returned by SendDiagnostic before any datagram was received.
var ErrNoPeer = errors.NewStd("no heartbeat peer seen")

// Config configures a Monitor.
type Config struct {
	Listen    string        // host:port to bind, DefaultListen when empty
	Freshness time.Duration // peer is alive if seen within this window
	PeerTTL   time.Duration // lifetime of entries in the recent-peer table
	Logger    logger.Logger
}

// Peer is an entry in the recent-peer table.
type Peer struct {
	Addr        string    `json:"addr"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Datagrams   uint64    `json:"datagrams"`
	LastMessage string    `json:"last_message"`
}

// Status is a snapshot of the monitor state.
type Status struct {
	Listen    string    `json:"listen"`
	PeerAlive bool      `json:"peer_alive"`
	LastSeen  time.Time `json:"last_seen,omitzero"`
	LastPeer  string    `json:"last_peer,omitempty"`
	Received  uint64    `json:"received"`
	Sent      uint64    `json:"sent"`
	SendFails uint64    `json:"send_failures"`
	Peers     []Peer    `json:"peers"`
}

type peerAddr struct {
	addr net.Addr
}

// Monitor receives heartbeat datagrams and sends diagnostics to the most recent peer.
type Monitor struct {
	conn      net.PacketConn
	freshness time.Duration
	log       logger.Logger

	lastSeen atomic.Int64 // unix nanoseconds, 0 before the first datagram
	peer     atomic.Pointer[peerAddr]

	peersMu sync.Mutex
	peers   *cache.Cache

	received  atomic.Uint64
	sent      atomic.Uint64
	sendFails atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Listen binds the UDP socket and starts the receive loop.
func Listen(cfg Config) (*Monitor, error) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if cfg.PeerTTL <= 0 {
		cfg.PeerTTL = DefaultPeerTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	conn, err := net.ListenPacket("udp", cfg.Listen)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryNetwork).
			Context("listen", cfg.Listen).
			Build()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		conn:      conn,
		freshness: cfg.Freshness,
		log:       cfg.Logger.With(logger.String("listen", conn.LocalAddr().String())),
		// no janitor goroutine; expired entries are purged on receive
		peers:  cache.New(cfg.PeerTTL, 0),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go m.processDatagrams()

	m.log.Info("heartbeat monitor listening")
	return m, nil
}

// LocalAddr returns the bound address.
func (m *Monitor) LocalAddr() net.Addr {
	return m.conn.LocalAddr()
}

// Close stops the receive loop and closes the socket.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.cancel()
		err = m.conn.Close()
		<-m.done
		m.log.Info("heartbeat monitor stopped",
			logger.Uint64("received", m.received.Load()),
			logger.Uint64("sent", m.sent.Load()))
	})
	return err
}

// PeerAlive reports whether a datagram arrived within the freshness window before now.
func (m *Monitor) PeerAlive(now time.Time) bool {
	seen := m.lastSeen.Load()
	if seen == 0 {
		return false
	}
	return now.Sub(time.Unix(0, seen)) < m.freshness
}

// LastSeen returns the arrival time of the most recent datagram.
func (m *Monitor) LastSeen() time.Time {
	seen := m.lastSeen.Load()
	if seen == 0 {
		return time.Time{}
	}
	return time.Unix(0, seen)
}

// SendDiagnostic sends msg to the most recent peer. It never blocks longer
// than a short write deadline.
func (m *Monitor) SendDiagnostic(msg []byte) error {
	p := m.peer.Load()
	if p == nil {
		return ErrNoPeer
	}
	if err := m.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		m.log.Debug("heartbeat write deadline not set", logger.Error(err))
	}
	if _, err := m.conn.WriteTo(msg, p.addr); err != nil {
		m.sendFails.Add(1)
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Context("peer", p.addr.String()).
			Build()
	}
	m.sent.Add(1)
	return nil
}

// Status returns a snapshot of the monitor state as of now.
func (m *Monitor) Status(now time.Time) Status {
	st := Status{
		Listen:    m.conn.LocalAddr().String(),
		PeerAlive: m.PeerAlive(now),
		LastSeen:  m.LastSeen(),
		Received:  m.received.Load(),
		Sent:      m.sent.Load(),
		SendFails: m.sendFails.Load(),
		Peers:     m.Peers(),
	}
	if p := m.peer.Load(); p != nil {
		st.LastPeer = p.addr.String()
	}
	return st
}

// Peers lists peers seen within the peer TTL, most recent first.
func (m *Monitor) Peers() []Peer {
	items := m.peers.Items()
	peers := make([]Peer, 0, len(items))
	for _, item := range items {
		if p, ok := item.Object.(Peer); ok {
			peers = append(peers, p)
		}
	}
	slices.SortFunc(peers, func(a, b Peer) int {
		if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
			return c
		}
		return strings.Compare(a.Addr, b.Addr)
	})
	return peers
}

func (m *Monitor) processDatagrams() {
	defer close(m.done)
	buf := make([]byte, MaxDatagram)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if err := m.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			m.log.Debug("heartbeat read deadline not set", logger.Error(err))
		}
		n, addr, err := m.conn.ReadFrom(buf)
		if err != nil {
			if !m.handleReadError(err) {
				return
			}
			continue
		}
		m.record(addr, buf[:n], time.Now())
	}
}

// handleReadError reports whether the receive loop should continue.
func (m *Monitor) handleReadError(err error) bool {
	if m.ctx.Err() != nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	m.log.Warn("heartbeat read failed", logger.Error(err))
	return true
}

// record marks addr as seen at now.
func (m *Monitor) record(addr net.Addr, payload []byte, now time.Time) {
	m.lastSeen.Store(now.UnixNano())
	m.peer.Store(&peerAddr{addr: addr})
	total := m.received.Add(1)

	key := addr.String()
	m.peersMu.Lock()
	p := Peer{Addr: key, FirstSeen: now}
	if v, ok := m.peers.Get(key); ok {
		p = v.(Peer)
	} else {
		m.peers.DeleteExpired()
		m.log.Info("heartbeat peer seen", logger.String("peer", key))
	}
	p.LastSeen = now
	p.Datagrams++
	p.LastMessage = string(payload)
	m.peers.Set(key, p, cache.DefaultExpiration)
	m.peersMu.Unlock()

	m.log.Trace("heartbeat received",
		logger.String("peer", key),
		logger.Int("bytes", len(payload)),
		logger.Uint64("total", total))
}
