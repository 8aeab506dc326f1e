package remote

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/ringbuf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// streamState is the lifecycle of a stream goroutine.
type streamState int32

const (
	stateOpen      streamState = iota // opened, goroutine not started
	stateRunning                      // goroutine running
	stateStopped                      // goroutine exited after a callback failure
	stateAborting                     // destroy requested, goroutine exiting
	stateDestroyed                    // goroutine joined, resources released
)

// stream holds the engine state shared by playback and capture.
type stream struct {
	id      string
	backend *Backend
	device  *audiocore.Device
	cfg     audiocore.StreamConfig
	ring    *ringbuf.Ring
	period  time.Duration
	bpf     int
	bps     int
	log     logger.Logger
	metrics MetricsRecorder

	state  atomic.Int32
	paused atomic.Bool
	wake   chan struct{} // cap 1, breaks the period wait
	done   chan struct{} // closed when the goroutine exits

	// lease state, guarded by leaseMu
	leaseMu     sync.Mutex
	framesLeft  int
	leaseFrames int
	leaseActive bool
	staging     []byte
	areas       []audiocore.ChannelArea

	periods    atomic.Uint64
	frames     atomic.Uint64
	underflows atomic.Uint64
	overflows  atomic.Uint64

	onError func(error)
}

func newStream(b *Backend, dev *audiocore.Device, cfg audiocore.StreamConfig, ring *ringbuf.Ring, period time.Duration, id string) stream {
	return stream{
		id:      id,
		backend: b,
		device:  dev,
		cfg:     cfg,
		ring:    ring,
		period:  period,
		bpf:     cfg.BytesPerFrame(),
		bps:     cfg.BytesPerSample(),
		log:     b.log.With(logger.String("stream_id", id), logger.String("device", dev.ID)),
		metrics: b.metrics,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		staging: make([]byte, ring.CapacityFrames()*cfg.BytesPerFrame()),
		areas:   make([]audiocore.ChannelArea, cfg.Layout.ChannelCount()),
	}
}

// ID returns the stream identifier.
func (s *stream) ID() string { return s.id }

// Device returns the device the stream was opened on.
func (s *stream) Device() *audiocore.Device { return s.device }

// Config returns the effective stream parameters.
func (s *stream) Config() audiocore.StreamConfig { return s.cfg }

// BufferFrameCount returns the ring capacity in frames.
func (s *stream) BufferFrameCount() int { return s.ring.CapacityFrames() }

// PeriodDuration returns the engine period.
func (s *stream) PeriodDuration() time.Duration { return s.period }

func (s *stream) loadState() streamState { return streamState(s.state.Load()) }

func (s *stream) gone() bool { return s.loadState() >= stateAborting }

// signal wakes the stream goroutine without blocking.
func (s *stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// sleep blocks for d or until signalled.
func (s *stream) sleep(timer *time.Timer, d time.Duration) {
	if d <= 0 {
		return
	}
	timer.Reset(d)
	select {
	case <-timer.C:
	case <-s.wake:
		timer.Stop()
	}
}

func (s *stream) start(run func()) error {
	if !s.state.CompareAndSwap(int32(stateOpen), int32(stateRunning)) {
		switch s.loadState() {
		case stateRunning:
			return audiocore.NewError(audiocore.ErrStreamStarted, errors.CategoryState, "start").
				Context("stream_id", s.id).
				Build()
		case stateStopped:
			return audiocore.NewError(audiocore.ErrStreamStopped, errors.CategoryState, "start").
				Context("stream_id", s.id).
				Build()
		}
		return audiocore.ErrStreamDestroyed
	}

	s.log.Info("stream started",
		logger.Int("sample_rate", s.cfg.SampleRate),
		logger.String("format", s.cfg.Format.String()),
		logger.Int("channels", s.cfg.Layout.ChannelCount()),
		logger.Duration("period", s.period),
		logger.Int("buffer_frames", s.ring.CapacityFrames()))

	go func() {
		defer close(s.done)
		run()
		if s.state.CompareAndSwap(int32(stateRunning), int32(stateStopped)) {
			s.log.Warn("stream engine stopped")
		}
	}()
	return nil
}

// destroy stops and joins the goroutine, then releases the stream.
func (s *stream) destroy(aim audiocore.Aim) error {
	for {
		switch st := s.loadState(); st {
		case stateOpen:
			if s.state.CompareAndSwap(int32(st), int32(stateDestroyed)) {
				s.release(aim)
				return nil
			}
		case stateRunning:
			if s.state.CompareAndSwap(int32(st), int32(stateAborting)) {
				s.signal()
				<-s.done
				s.state.Store(int32(stateDestroyed))
				s.release(aim)
				return nil
			}
		case stateStopped:
			if s.state.CompareAndSwap(int32(st), int32(stateDestroyed)) {
				<-s.done
				s.release(aim)
				return nil
			}
		default:
			return audiocore.ErrStreamDestroyed
		}
	}
}

func (s *stream) release(aim audiocore.Aim) {
	s.backend.unregister(s.id)
	s.metrics.StreamClosed(s.device.ID, aim)
	s.device.Unref()
	s.log.Info("stream destroyed",
		logger.Uint64("periods", s.periods.Load()),
		logger.Uint64("frames", s.frames.Load()))
}

// Pause suspends or resumes period processing.
func (s *stream) Pause(pause bool) error {
	if s.gone() {
		return audiocore.ErrStreamDestroyed
	}
	if s.paused.Swap(pause) != pause {
		s.log.Debug("pause changed", logger.Bool("paused", pause))
		s.signal()
	}
	return nil
}

// Latency returns the time until the buffered frames are exhausted at the nominal rate.
func (s *stream) Latency() (time.Duration, error) {
	if s.gone() {
		return 0, audiocore.ErrStreamDestroyed
	}
	return durationOf(s.ring.FillFrames(), s.cfg.SampleRate), nil
}

// Stats returns stream counters.
func (s *stream) Stats() audiocore.StreamStats {
	return audiocore.StreamStats{
		Periods:    s.periods.Load(),
		Frames:     s.frames.Load(),
		Underflows: s.underflows.Load(),
		Overflows:  s.overflows.Load(),
		Running:    s.loadState() == stateRunning,
		Paused:     s.paused.Load(),
	}
}

// setFramesLeft publishes the frames offered for the next lease.
func (s *stream) setFramesLeft(frames int) {
	s.leaseMu.Lock()
	s.framesLeft = frames
	s.leaseMu.Unlock()
}

// beginLease validates a lease request; leaseMu must be held.
func (s *stream) beginLease(frameCount int) error {
	if s.gone() {
		return audiocore.ErrStreamDestroyed
	}
	if s.leaseActive {
		return audiocore.NewError(audiocore.ErrInvalid, errors.CategoryState, "lease already active").
			Context("stream_id", s.id).
			Build()
	}
	if frameCount < 0 || frameCount > s.framesLeft {
		return audiocore.NewError(audiocore.ErrInvalid, errors.CategoryValidation,
			fmt.Sprintf("requested %d frames, %d offered", frameCount, s.framesLeft)).
			Context("stream_id", s.id).
			Build()
	}
	return nil
}

// leaseAreas points one area per channel into the staging buffer; leaseMu must be held.
func (s *stream) leaseAreas(frameCount int) []audiocore.ChannelArea {
	s.leaseActive = true
	s.leaseFrames = frameCount
	end := frameCount * s.bpf
	for ch := range s.areas {
		start := ch * s.bps
		s.areas[ch] = audiocore.ChannelArea{Ptr: s.staging[start:max(end, start)], Step: s.bpf}
	}
	return s.areas
}

// endLease closes the lease and charges it against framesLeft; leaseMu must be held.
func (s *stream) endLease() (int, error) {
	if s.gone() {
		return 0, audiocore.ErrStreamDestroyed
	}
	if !s.leaseActive {
		return 0, audiocore.ErrNoLease
	}
	n := s.leaseFrames
	s.leaseActive = false
	s.leaseFrames = 0
	s.framesLeft = max(0, s.framesLeft-n)
	return n, nil
}

// invoke runs a client callback, converting a panic into a stream error.
func (s *stream) invoke(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err := errors.Newf("stream callback panicked: %v", r).
				Component(audiocore.ComponentAudioCore).
				Category(errors.CategoryAudio).
				Context("stream_id", s.id).
				Build()
			s.log.Error("stream callback panicked, stopping stream", logger.Error(err))
			if s.onError != nil {
				s.onError(err)
			}
		}
	}()
	fn()
	return true
}
