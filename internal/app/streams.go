package app

import (
	"context"
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/pcm"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Result summarizes a finished stream.
type Result struct {
	Config  audiocore.StreamConfig
	Stats   audiocore.StreamStats
	Elapsed time.Duration
}

// SourceFunc creates the playback source once the effective stream
// configuration is known.
type SourceFunc func(audiocore.StreamConfig) (pcm.Source, error)

// SinkFunc creates the capture sink once the effective stream configuration
// is known.
type SinkFunc func(audiocore.StreamConfig) (pcm.Sink, error)

// Play opens a playback stream on the default output device and feeds it from
// the source newSource returns until ctx is done or d elapsed. d <= 0 plays
// until ctx is done. A stream error ends playback early and is returned.
func (a *App) Play(ctx context.Context, newSource SourceFunc, sc audiocore.StreamConfig, d time.Duration) (Result, error) {
	dev, err := a.Backend.OutputDevice(a.Backend.DefaultOutputDeviceIndex())
	if err != nil {
		return Result{}, err
	}
	defer dev.Unref()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// set before Start, read only by the stream goroutine
	var w *pcm.Writer
	s, err := a.Backend.OpenOutStream(dev, audiocore.OutStreamConfig{
		StreamConfig: sc,
		WriteCallback: func(s audiocore.OutStream, minFrames, maxFrames int) {
			w.Callback(s, minFrames, maxFrames)
		},
		UnderflowCallback: func(s audiocore.OutStream) {
			a.log.Debug("playback underflow", logger.String("stream_id", s.ID()))
		},
		ErrorCallback: func(_ audiocore.OutStream, err error) { cancel(err) },
	})
	if err != nil {
		return Result{}, err
	}

	src, err := newSource(s.Config())
	if err != nil {
		_ = s.Destroy()
		return Result{Config: s.Config()}, err
	}
	w = pcm.NewWriter(src, func(err error) { cancel(err) })
	return a.runStream(ctx, s, d)
}

// Record opens a capture stream on the default input device and drains it
// into the sink newSink returns until ctx is done or d elapsed.
func (a *App) Record(ctx context.Context, newSink SinkFunc, sc audiocore.StreamConfig, d time.Duration) (Result, error) {
	dev, err := a.Backend.InputDevice(a.Backend.DefaultInputDeviceIndex())
	if err != nil {
		return Result{}, err
	}
	defer dev.Unref()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var r *pcm.Reader
	s, err := a.Backend.OpenInStream(dev, audiocore.InStreamConfig{
		StreamConfig: sc,
		ReadCallback: func(s audiocore.InStream, minFrames, maxFrames int) {
			r.Callback(s, minFrames, maxFrames)
		},
		OverflowCallback: func(s audiocore.InStream) {
			a.log.Warn("capture overflow", logger.String("stream_id", s.ID()))
		},
		ErrorCallback: func(_ audiocore.InStream, err error) { cancel(err) },
	})
	if err != nil {
		return Result{}, err
	}

	sink, err := newSink(s.Config())
	if err != nil {
		_ = s.Destroy()
		return Result{Config: s.Config()}, err
	}
	r = pcm.NewReader(sink, func(err error) { cancel(err) })
	return a.runStream(ctx, s, d)
}

// Source wraps a fixed source as a SourceFunc.
func Source(src pcm.Source) SourceFunc {
	return func(audiocore.StreamConfig) (pcm.Source, error) { return src, nil }
}

// Sink wraps a fixed sink as a SinkFunc.
func Sink(sink pcm.Sink) SinkFunc {
	return func(audiocore.StreamConfig) (pcm.Sink, error) { return sink, nil }
}

// runStream starts s, waits and destroys it.
func (a *App) runStream(ctx context.Context, s audiocore.Stream, d time.Duration) (Result, error) {
	res := Result{Config: s.Config()}
	if err := s.Start(); err != nil {
		_ = s.Destroy()
		return res, err
	}

	log := a.log.With(logger.String("stream_id", s.ID()), logger.String("device", s.Device().ID))
	log.Info("stream started",
		logger.String("format", res.Config.Format.String()),
		logger.String("layout", res.Config.Layout.Name),
		logger.Int("sample_rate", res.Config.SampleRate),
		logger.Duration("latency", res.Config.SoftwareLatency),
		logger.Duration("period", periodOf(s)))

	start := time.Now()
	waitFor(ctx, d)
	res.Elapsed = time.Since(start)

	destroyErr := s.Destroy()
	res.Stats = s.Stats()
	log.Info("stream stopped",
		logger.Uint64("periods", res.Stats.Periods),
		logger.Uint64("frames", res.Stats.Frames),
		logger.Uint64("underflows", res.Stats.Underflows),
		logger.Uint64("overflows", res.Stats.Overflows))

	if cause := context.Cause(ctx); cause != nil && cause != ctx.Err() {
		return res, cause
	}
	return res, destroyErr
}

func periodOf(s audiocore.Stream) time.Duration {
	if p, ok := s.(interface{ PeriodDuration() time.Duration }); ok {
		return p.PeriodDuration()
	}
	return 0
}
