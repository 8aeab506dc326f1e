// Package app wires the remote backend, metrics and the status server for the
// command line tools.
package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/pcm"
	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/conf"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/httpserver"
	"github.com/tphakala/remoteaudio/internal/logger"
	"github.com/tphakala/remoteaudio/internal/observability"
)

// App owns a backend and the services around it.
type App struct {
	Settings *conf.Settings
	Backend  *remote.Backend
	Metrics  *observability.Metrics

	server *httpserver.Server
	log    logger.Logger
}

// Option configures an App.
type Option func(*options)

type options struct {
	tap    func(audiocore.StreamConfig) pcm.Sink
	source func(audiocore.StreamConfig) pcm.Source
	log    logger.Logger
	server bool
}

// WithPlaybackTap receives the frames every playback stream consumes.
// fn may return nil to leave a stream untapped.
func WithPlaybackTap(fn func(audiocore.StreamConfig) pcm.Sink) Option {
	return func(o *options) { o.tap = fn }
}

// WithCaptureSource produces the frames capture streams record. Capture
// streams record silence without one.
func WithCaptureSource(fn func(audiocore.StreamConfig) pcm.Source) Option {
	return func(o *options) { o.source = fn }
}

// WithLogger sets the logger of the app and its backend.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithStatusServer forces the status server on regardless of settings.
func WithStatusServer() Option {
	return func(o *options) { o.server = true }
}

// New creates the backend described by settings. The status server is
// created when enabled in settings but only listens during Run.
func New(settings *conf.Settings, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = GetLogger()
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryResource).Build()
	}

	cfg := remote.ConfigFromSettings(settings)
	cfg.Metrics = m.Streams
	cfg.Logger = o.log.Module("remote")
	if o.tap != nil {
		cfg.PlaybackTap = func(sc audiocore.StreamConfig) func([]byte) {
			if sink := o.tap(sc); sink != nil {
				return sink.Consume
			}
			return nil
		}
	}
	if o.source != nil {
		cfg.CaptureSource = func(sc audiocore.StreamConfig) func([]byte) {
			if src := o.source(sc); src != nil {
				return src.Fill
			}
			return nil
		}
	}
	cfg.OnDevicesChange = func() {
		o.log.Debug("device set changed")
	}

	a := &App{
		Settings: settings,
		Backend:  remote.New(cfg),
		Metrics:  m,
		log:      o.log,
	}

	if mon := a.Backend.Heartbeat(); mon != nil {
		if err := m.AttachHeartbeat(mon); err != nil {
			_ = a.Backend.Close()
			return nil, errors.New(err).Category(errors.CategoryResource).Build()
		}
	}

	if settings.WebServer.Enabled || o.server {
		var serverOpts []httpserver.ServerOption
		serverOpts = append(serverOpts,
			httpserver.WithMetrics(m.Handler()),
			httpserver.WithLogger(o.log.Module("httpserver")))
		if mon := a.Backend.Heartbeat(); mon != nil {
			serverOpts = append(serverOpts, httpserver.WithHeartbeat(mon))
		}
		a.server = httpserver.New(httpserver.ConfigFromSettings(&settings.WebServer), a.Backend, serverOpts...)
	}

	return a, nil
}

// Server returns the status server, nil when disabled.
func (a *App) Server() *httpserver.Server {
	return a.server
}

// Run runs work alongside the status server and the backend event loop. It
// returns when work returns or ctx is canceled, and closes the backend.
func (a *App) Run(ctx context.Context, work func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(gctx)

	if a.server != nil {
		g.Go(func() error {
			return a.server.Serve(ctx)
		})
	}

	g.Go(func() error {
		a.eventLoop(ctx)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		if work == nil {
			<-ctx.Done()
			return nil
		}
		return work(ctx)
	})

	err := g.Wait()
	cancel()
	return errors.Join(err, a.Backend.Close())
}

// eventLoop dispatches backend events until ctx is done.
func (a *App) eventLoop(ctx context.Context) {
	a.Backend.FlushEvents()
	for a.Backend.WaitEvents(ctx) == nil {
		a.Backend.FlushEvents()
	}
}

// Close releases the backend without running.
func (a *App) Close() error {
	return a.Backend.Close()
}

// waitFor blocks until ctx is done or d elapsed; d <= 0 waits for ctx only.
func waitFor(ctx context.Context, d time.Duration) {
	if d <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
