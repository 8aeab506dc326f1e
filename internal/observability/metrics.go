// Package observability provides the Prometheus registry and metric collectors
// of remoteaudio.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/remoteaudio/internal/logger"
	"github.com/tphakala/remoteaudio/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Streams   *metrics.StreamMetrics
	Heartbeat *metrics.HeartbeatMetrics
}

// NewMetrics creates a new instance of Metrics with its own registry, the
// stream collectors and the Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	streamMetrics, err := metrics.NewStreamMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Streams:  streamMetrics,
	}, nil
}

// AttachHeartbeat exports the state of a heartbeat receiver. It can be called
// once; the backend owns the receiver and may have none when disabled.
func (m *Metrics) AttachHeartbeat(src metrics.HeartbeatSource) error {
	if m.Heartbeat != nil {
		return fmt.Errorf("heartbeat metrics already attached")
	}
	hb, err := metrics.NewHeartbeatMetrics(m.registry, src)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat metrics: %w", err)
	}
	m.Heartbeat = hb
	return nil
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promLogger routes promhttp errors to the telemetry logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	GetLogger().Error("metrics handler error", logger.String("error", fmt.Sprint(v...)))
}
