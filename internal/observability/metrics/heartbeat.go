package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/remoteaudio/internal/heartbeat"
)

// HeartbeatSource reports the state of the heartbeat receiver.
type HeartbeatSource interface {
	Status(now time.Time) heartbeat.Status
}

// HeartbeatMetrics exports the heartbeat receiver state. Values are read from
// the source on every scrape.
type HeartbeatMetrics struct {
	src HeartbeatSource
	now func() time.Time

	peerAlive  *prometheus.Desc
	lastSeen   *prometheus.Desc
	received   *prometheus.Desc
	sent       *prometheus.Desc
	sendFails  *prometheus.Desc
	knownPeers *prometheus.Desc
}

// NewHeartbeatMetrics creates the heartbeat collector for src and registers it
// with registry.
func NewHeartbeatMetrics(registry prometheus.Registerer, src HeartbeatSource) (*HeartbeatMetrics, error) {
	m := &HeartbeatMetrics{
		src: src,
		now: time.Now,
		peerAlive: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "peer_alive"),
			"1 while a heartbeat peer was seen within the freshness window",
			nil, nil),
		lastSeen: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "last_seen_timestamp_seconds"),
			"Unix time of the last heartbeat datagram, 0 if none",
			nil, nil),
		received: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "datagrams_received_total"),
			"Total number of heartbeat datagrams received",
			nil, nil),
		sent: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "diagnostics_sent_total"),
			"Total number of diagnostic datagrams written to the peer",
			nil, nil),
		sendFails: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "send_failures_total"),
			"Total number of failed diagnostic writes",
			nil, nil),
		knownPeers: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "heartbeat", "known_peers"),
			"Number of peers in the recent-peer table",
			nil, nil),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register heartbeat metrics: %w", err)
	}
	return m, nil
}

// Describe implements the prometheus.Collector interface.
func (m *HeartbeatMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.peerAlive
	ch <- m.lastSeen
	ch <- m.received
	ch <- m.sent
	ch <- m.sendFails
	ch <- m.knownPeers
}

// Collect implements the prometheus.Collector interface.
func (m *HeartbeatMetrics) Collect(ch chan<- prometheus.Metric) {
	st := m.src.Status(m.now())

	alive := 0.0
	if st.PeerAlive {
		alive = 1
	}
	lastSeen := 0.0
	if !st.LastSeen.IsZero() {
		lastSeen = float64(st.LastSeen.UnixNano()) / float64(time.Second)
	}

	ch <- prometheus.MustNewConstMetric(m.peerAlive, prometheus.GaugeValue, alive)
	ch <- prometheus.MustNewConstMetric(m.lastSeen, prometheus.GaugeValue, lastSeen)
	ch <- prometheus.MustNewConstMetric(m.received, prometheus.CounterValue, float64(st.Received))
	ch <- prometheus.MustNewConstMetric(m.sent, prometheus.CounterValue, float64(st.Sent))
	ch <- prometheus.MustNewConstMetric(m.sendFails, prometheus.CounterValue, float64(st.SendFails))
	ch <- prometheus.MustNewConstMetric(m.knownPeers, prometheus.GaugeValue, float64(len(st.Peers)))
}
