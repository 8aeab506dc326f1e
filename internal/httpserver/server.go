package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/heartbeat"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// HeartbeatSource reports the state of the heartbeat receiver.
type HeartbeatSource interface {
	Status(now time.Time) heartbeat.Status
}

// Server is the status HTTP server.
type Server struct {
	echo      *echo.Echo
	config    Config
	log       logger.Logger
	backend   audiocore.Backend
	heartbeat HeartbeatSource
	metrics   http.Handler
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithHeartbeat exposes the heartbeat receiver state at /api/v1/heartbeat.
func WithHeartbeat(src HeartbeatSource) ServerOption {
	return func(s *Server) {
		s.heartbeat = src
	}
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the server logger.
func WithLogger(log logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a server for backend. It does not bind until Serve is called.
func New(cfg Config, backend audiocore.Backend, opts ...ServerOption) *Server {
	cfg.applyDefaults()

	s := &Server{
		config:    cfg,
		backend:   backend,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = cfg.ReadTimeout
	s.echo.Server.WriteTimeout = cfg.WriteTimeout
	s.echo.Server.IdleTimeout = cfg.IdleTimeout
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Use(echomw.Recover())
	s.echo.Use(newRequestLogger(s.log))

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := s.echo.Group("/api/v1")
	api.GET("/devices", s.listDevices)
	api.GET("/streams", s.listStreams)
	api.GET("/streams/:id", s.getStream)
	api.GET("/heartbeat", s.heartbeatStatus)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound address, or nil before Serve has bound.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// Serve binds the configured address and serves until ctx is canceled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Context("listen", s.config.Listen).
			Build()
	}
	s.echo.Listener = ln

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server starting", logger.String("address", ln.Addr().String()))
		serveErr <- s.echo.Start(s.config.Listen)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.New(err).Category(errors.CategoryNetwork).Build()
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", logger.Error(err))
		return errors.New(err).Category(errors.CategoryNetwork).Build()
	}
	<-serveErr
	return nil
}

// errorHandler renders errors as JSON.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if err := c.JSON(code, ErrorResponse{Error: msg}); err != nil {
		s.log.Warn("failed to write error response", logger.Error(err))
	}
}
