// Package remote implements a virtual audio backend with one playback and one
// capture device. Streams run a goroutine that consumes or produces frames at
// the nominal sample rate, as a sound card would, and signal the client through
// callbacks. An optional UDP heartbeat peer receives timing diagnostics from
// playback streams.
package remote

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/ringbuf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Beacon is the presence channel consulted by playback streams. PeerAlive and
// SendDiagnostic are called from stream goroutines and must not block.
type Beacon interface {
	PeerAlive(now time.Time) bool
	SendDiagnostic(msg []byte) error
}

// Config configures a Backend. The zero value is a backend without heartbeat.
type Config struct {
	// Beacon is used as is when set; HeartbeatListen is ignored.
	Beacon Beacon

	// HeartbeatListen starts an owned heartbeat monitor on this address when
	// Beacon is nil. A bind failure is logged and the backend runs without one.
	HeartbeatListen    string
	HeartbeatFreshness time.Duration
	PeerTTL            time.Duration

	// DiagnosticInterval is the minimum spacing of diagnostic datagrams per
	// stream. Zero sends one per playback period.
	DiagnosticInterval time.Duration

	Metrics MetricsRecorder
	Logger  logger.Logger

	// OnDevicesChange is invoked by FlushEvents when the device set changed.
	OnDevicesChange func()

	// PlaybackTap returns a sink for the bytes a playback stream consumes.
	PlaybackTap func(audiocore.StreamConfig) func([]byte)

	// CaptureSource returns a generator for the bytes a capture stream
	// produces. Silence when nil.
	CaptureSource func(audiocore.StreamConfig) func([]byte)
}

// Backend is the remote audio backend.
type Backend struct {
	cfg     Config
	log     logger.Logger
	metrics MetricsRecorder
	beacon  Beacon
	monitor *heartbeat.Monitor // owned when started from HeartbeatListen

	outputs []*audiocore.Device
	inputs  []*audiocore.Device

	mu      sync.Mutex
	streams map[string]audiocore.Stream
	closed  bool

	devicesChanged atomic.Bool
	wakeup         chan struct{}
}

var _ audiocore.Backend = (*Backend)(nil)

// New creates the backend and its two devices.
func New(cfg Config) *Backend {
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopRecorder{}
	}

	b := &Backend{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		beacon:  cfg.Beacon,
		streams: make(map[string]audiocore.Stream),
		wakeup:  make(chan struct{}, 1),
	}

	if b.beacon == nil && cfg.HeartbeatListen != "" {
		m, err := heartbeat.Listen(heartbeat.Config{
			Listen:    cfg.HeartbeatListen,
			Freshness: cfg.HeartbeatFreshness,
			PeerTTL:   cfg.PeerTTL,
		})
		if err != nil {
			b.log.Warn("heartbeat unavailable, diagnostics disabled",
				logger.String("listen", cfg.HeartbeatListen),
				logger.Error(err))
		} else {
			b.monitor = m
			b.beacon = m
		}
	}

	release := func(d *audiocore.Device) {
		b.log.Debug("device released", logger.String("device", d.ID))
	}
	b.outputs = []*audiocore.Device{newVirtualDevice(OutputDeviceID, OutputDeviceName, audiocore.AimOutput, release)}
	b.inputs = []*audiocore.Device{newVirtualDevice(InputDeviceID, InputDeviceName, audiocore.AimInput, release)}
	b.devicesChanged.Store(true)

	b.log.Info("remote backend ready",
		logger.Bool("heartbeat", b.beacon != nil),
		logger.Duration("diagnostic_interval", cfg.DiagnosticInterval))
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string { return BackendName }

// Heartbeat returns the owned heartbeat monitor, nil when none was started.
func (b *Backend) Heartbeat() *heartbeat.Monitor { return b.monitor }

func (b *Backend) OutputDeviceCount() int { return len(b.outputs) }
func (b *Backend) InputDeviceCount() int  { return len(b.inputs) }

func (b *Backend) DefaultOutputDeviceIndex() int { return 0 }
func (b *Backend) DefaultInputDeviceIndex() int  { return 0 }

// OutputDevice returns a referenced output device.
func (b *Backend) OutputDevice(index int) (*audiocore.Device, error) {
	return b.device(b.outputs, index, audiocore.AimOutput)
}

// InputDevice returns a referenced input device.
func (b *Backend) InputDevice(index int) (*audiocore.Device, error) {
	return b.device(b.inputs, index, audiocore.AimInput)
}

func (b *Backend) device(list []*audiocore.Device, index int, aim audiocore.Aim) (*audiocore.Device, error) {
	if b.isClosed() {
		return nil, audiocore.ErrBackendClosed
	}
	if index < 0 || index >= len(list) {
		return nil, audiocore.NewError(audiocore.ErrDeviceNotFound, errors.CategoryNotFound, "device index out of range").
			Context("aim", aim.String()).
			Context("index", index).
			Build()
	}
	return list[index].Ref(), nil
}

// OpenOutStream opens a playback stream on dev. The stream is idle until Start.
func (b *Backend) OpenOutStream(dev *audiocore.Device, cfg audiocore.OutStreamConfig) (audiocore.OutStream, error) {
	if cfg.WriteCallback == nil {
		return nil, audiocore.NewError(audiocore.ErrInvalid, errors.CategoryValidation, "write callback is required").Build()
	}
	sc, err := b.prepare(dev, audiocore.AimOutput, cfg.StreamConfig)
	if err != nil {
		return nil, err
	}

	bpf := sc.BytesPerFrame()
	period := sc.SoftwareLatency / 2
	ring, err := ringbuf.New(max(int(framesIn(sc.SoftwareLatency, sc.SampleRate))*bpf, bpf), bpf)
	if err != nil {
		return nil, audiocore.NewError(audiocore.ErrNoMem, errors.CategoryResource, err.Error()).Build()
	}
	// the ring is page rounded; report the latency it actually holds
	sc.SoftwareLatency = durationOf(ring.CapacityFrames(), sc.SampleRate)

	p := &playbackStream{
		stream:      newStream(b, dev.Ref(), sc, ring, period, uuid.NewString()),
		writeCB:     cfg.WriteCallback,
		underflowCB: cfg.UnderflowCallback,
		errorCB:     cfg.ErrorCallback,
		beacon:      b.beacon,
		diag:        make([]byte, 0, 32),
	}
	if b.cfg.PlaybackTap != nil {
		p.tap = b.cfg.PlaybackTap(sc)
	}
	if b.cfg.DiagnosticInterval > 0 {
		p.limiter = rate.NewLimiter(rate.Every(b.cfg.DiagnosticInterval), 1)
	}
	if p.errorCB != nil {
		p.onError = func(err error) { p.errorCB(outCallbackView{p}, err) }
	}

	if err := b.register(p); err != nil {
		dev.Unref()
		return nil, err
	}
	b.metrics.StreamOpened(dev.ID, audiocore.AimOutput)
	p.log.Debug("playback stream opened",
		logger.Duration("latency", sc.SoftwareLatency),
		logger.Int("buffer_frames", ring.CapacityFrames()))
	return p, nil
}

// OpenInStream opens a capture stream on dev. The stream is idle until Start.
func (b *Backend) OpenInStream(dev *audiocore.Device, cfg audiocore.InStreamConfig) (audiocore.InStream, error) {
	if cfg.ReadCallback == nil {
		return nil, audiocore.NewError(audiocore.ErrInvalid, errors.CategoryValidation, "read callback is required").Build()
	}
	sc, err := b.prepare(dev, audiocore.AimInput, cfg.StreamConfig)
	if err != nil {
		return nil, err
	}

	bpf := sc.BytesPerFrame()
	period := sc.SoftwareLatency
	ring, err := ringbuf.New(max(4*int(framesIn(period, sc.SampleRate))*bpf, bpf), bpf)
	if err != nil {
		return nil, audiocore.NewError(audiocore.ErrNoMem, errors.CategoryResource, err.Error()).Build()
	}

	c := &captureStream{
		stream:     newStream(b, dev.Ref(), sc, ring, period, uuid.NewString()),
		readCB:     cfg.ReadCallback,
		overflowCB: cfg.OverflowCallback,
		errorCB:    cfg.ErrorCallback,
	}
	if b.cfg.CaptureSource != nil {
		c.source = b.cfg.CaptureSource(sc)
	}
	if c.errorCB != nil {
		c.onError = func(err error) { c.errorCB(inCallbackView{c}, err) }
	}

	if err := b.register(c); err != nil {
		dev.Unref()
		return nil, err
	}
	b.metrics.StreamOpened(dev.ID, audiocore.AimInput)
	c.log.Debug("capture stream opened",
		logger.Duration("latency", sc.SoftwareLatency),
		logger.Int("buffer_frames", ring.CapacityFrames()))
	return c, nil
}

// prepare fills defaults and validates stream parameters against dev.
func (b *Backend) prepare(dev *audiocore.Device, aim audiocore.Aim, sc audiocore.StreamConfig) (audiocore.StreamConfig, error) {
	if b.isClosed() {
		return sc, audiocore.ErrBackendClosed
	}
	if dev == nil || dev.Backend != BackendName || dev.Aim != aim || !b.owns(dev) {
		return sc, audiocore.NewError(audiocore.ErrInvalid, errors.CategoryValidation, "device does not belong to this backend").
			Context("aim", aim.String()).
			Build()
	}

	if sc.Name == "" {
		sc.Name = aim.String()
	}
	if sc.Format == audiocore.FormatInvalid {
		sc.Format = dev.CurrentFormat
	}
	if sc.Layout.ChannelCount() == 0 {
		sc.Layout = dev.CurrentLayout
	}
	if sc.SampleRate == 0 {
		sc.SampleRate = dev.SampleRateCurrent
	}
	if sc.SoftwareLatency <= 0 {
		sc.SoftwareLatency = openLatency
	}
	sc.SoftwareLatency = dev.ClampLatency(sc.SoftwareLatency)

	switch {
	case !dev.SupportsFormat(sc.Format):
		return sc, audiocore.NewError(audiocore.ErrIncompatibleDevice, errors.CategoryValidation, "unsupported format").
			Context("format", sc.Format.String()).Build()
	case !dev.SupportsLayout(sc.Layout):
		return sc, audiocore.NewError(audiocore.ErrIncompatibleDevice, errors.CategoryValidation, "unsupported layout").
			Context("layout", sc.Layout.Name).Build()
	case !dev.SupportsSampleRate(sc.SampleRate):
		return sc, audiocore.NewError(audiocore.ErrIncompatibleDevice, errors.CategoryValidation, "unsupported sample rate").
			Context("sample_rate", sc.SampleRate).Build()
	}
	return sc, nil
}

func (b *Backend) owns(dev *audiocore.Device) bool {
	return slices.Contains(b.outputs, dev) || slices.Contains(b.inputs, dev)
}

func (b *Backend) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) register(s audiocore.Stream) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return audiocore.ErrBackendClosed
	}
	b.streams[s.ID()] = s
	return nil
}

func (b *Backend) unregister(id string) {
	b.mu.Lock()
	delete(b.streams, id)
	b.mu.Unlock()
}

// Streams lists open streams ordered by device and ID.
func (b *Backend) Streams() []audiocore.Stream {
	b.mu.Lock()
	out := make([]audiocore.Stream, 0, len(b.streams))
	for _, s := range b.streams {
		out = append(out, s)
	}
	b.mu.Unlock()

	slices.SortFunc(out, func(x, y audiocore.Stream) int {
		return cmp.Or(
			strings.Compare(x.Device().ID, y.Device().ID),
			strings.Compare(x.ID(), y.ID()))
	})
	return out
}

// FlushEvents invokes OnDevicesChange once if the device set changed since the last flush.
func (b *Backend) FlushEvents() {
	if b.devicesChanged.Swap(false) && b.cfg.OnDevicesChange != nil {
		b.cfg.OnDevicesChange()
	}
}

// WaitEvents flushes events and blocks until Wakeup or ctx is done.
func (b *Backend) WaitEvents(ctx context.Context) error {
	b.FlushEvents()
	select {
	case <-b.wakeup:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wakeup releases a pending or the next WaitEvents call.
func (b *Backend) Wakeup() {
	select {
	case b.wakeup <- struct{}{}:
	default:
	}
}

// ForceDeviceScan is a no-op; the device set is static.
func (b *Backend) ForceDeviceScan() {}

// Close destroys every open stream, stops an owned heartbeat monitor and
// drops the backend's device references.
func (b *Backend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	open := make([]audiocore.Stream, 0, len(b.streams))
	for _, s := range b.streams {
		open = append(open, s)
	}
	b.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Destroy(); err != nil && !errors.Is(err, audiocore.ErrStreamDestroyed) {
			errs = append(errs, err)
		}
	}
	if b.monitor != nil {
		if err := b.monitor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range slices.Concat(b.outputs, b.inputs) {
		d.Unref()
	}
	b.Wakeup()

	b.log.Info("remote backend closed", logger.Int("streams_destroyed", len(open)))
	return errors.Join(errs...)
}
