package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// StreamMetrics contains the Prometheus metrics of the stream engines. It
// satisfies the remote backend's MetricsRecorder.
type StreamMetrics struct {
	StreamsOpen   *prometheus.GaugeVec
	StreamsOpened *prometheus.CounterVec
	Periods       *prometheus.CounterVec
	Frames        *prometheus.CounterVec
	Underflows    *prometheus.CounterVec
	Overflows     *prometheus.CounterVec
	BufferLatency *prometheus.HistogramVec
	Diagnostics   *prometheus.CounterVec
	collectors    []prometheus.Collector
}

// NewStreamMetrics creates the stream metrics and registers them with registry.
func NewStreamMetrics(registry prometheus.Registerer) (*StreamMetrics, error) {
	m := &StreamMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register stream metrics: %w", err)
	}
	return m, nil
}

func (m *StreamMetrics) initMetrics() {
	m.StreamsOpen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "streams_open",
		Help:      "Number of open streams per device",
	}, []string{LabelDevice, LabelAim})

	m.StreamsOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "streams_opened_total",
		Help:      "Total number of streams opened per device",
	}, []string{LabelDevice, LabelAim})

	m.Periods = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "periods_total",
		Help:      "Total number of engine periods elapsed",
	}, []string{LabelDevice})

	m.Frames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "frames_total",
		Help:      "Total number of frames moved through the ring buffer by the engine",
	}, []string{LabelDevice})

	m.Underflows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "underflows_total",
		Help:      "Total number of playback underflows",
	}, []string{LabelDevice})

	m.Overflows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "overflows_total",
		Help:      "Total number of capture overflows",
	}, []string{LabelDevice})

	m.BufferLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "buffer_latency_seconds",
		Help:      "Buffered audio at the end of each period in seconds",
		Buckets:   prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
	}, []string{LabelDevice})

	m.Diagnostics = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "diagnostics_total",
		Help:      "Total number of diagnostic datagrams by result",
	}, []string{LabelResult})

	m.collectors = []prometheus.Collector{
		m.StreamsOpen,
		m.StreamsOpened,
		m.Periods,
		m.Frames,
		m.Underflows,
		m.Overflows,
		m.BufferLatency,
		m.Diagnostics,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *StreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *StreamMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// StreamOpened records a stream opened on device.
func (m *StreamMetrics) StreamOpened(device string, aim audiocore.Aim) {
	m.StreamsOpen.WithLabelValues(device, aim.String()).Inc()
	m.StreamsOpened.WithLabelValues(device, aim.String()).Inc()
}

// StreamClosed records a stream destroyed on device.
func (m *StreamMetrics) StreamClosed(device string, aim audiocore.Aim) {
	m.StreamsOpen.WithLabelValues(device, aim.String()).Dec()
}

// RecordPeriod records one elapsed period that moved frames through the buffer.
func (m *StreamMetrics) RecordPeriod(device string, frames int) {
	m.Periods.WithLabelValues(device).Inc()
	if frames > 0 {
		m.Frames.WithLabelValues(device).Add(float64(frames))
	}
}

// RecordUnderflow records a playback underflow.
func (m *StreamMetrics) RecordUnderflow(device string) {
	m.Underflows.WithLabelValues(device).Inc()
}

// RecordOverflow records a capture overflow.
func (m *StreamMetrics) RecordOverflow(device string) {
	m.Overflows.WithLabelValues(device).Inc()
}

// RecordBufferLatency observes the buffered duration after a period.
func (m *StreamMetrics) RecordBufferLatency(device string, latency time.Duration) {
	m.BufferLatency.WithLabelValues(device).Observe(latency.Seconds())
}

// RecordDiagnostic counts a diagnostic datagram send.
func (m *StreamMetrics) RecordDiagnostic(err error) {
	if err != nil {
		m.Diagnostics.WithLabelValues(ResultFailed).Inc()
		return
	}
	m.Diagnostics.WithLabelValues(ResultSent).Inc()
}
