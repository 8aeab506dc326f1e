package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DevicesResponse lists the devices of the backend.
type DevicesResponse struct {
	Backend string              `json:"backend"`
	Outputs []*audiocore.Device `json:"outputs"`
	Inputs  []*audiocore.Device `json:"inputs"`
}

// StreamInfo describes an open stream.
type StreamInfo struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Device          string                `json:"device"`
	Aim             audiocore.Aim         `json:"aim"`
	Format          audiocore.Format      `json:"format"`
	Layout          string                `json:"layout"`
	SampleRate      int                   `json:"sample_rate"`
	SoftwareLatency float64               `json:"software_latency_seconds"`
	Latency         float64               `json:"latency_seconds"`
	Stats           audiocore.StreamStats `json:"stats"`
}

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"backend":        s.backend.Name(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

func (s *Server) listDevices(c echo.Context) error {
	resp := DevicesResponse{
		Backend: s.backend.Name(),
		Outputs: make([]*audiocore.Device, 0, s.backend.OutputDeviceCount()),
		Inputs:  make([]*audiocore.Device, 0, s.backend.InputDeviceCount()),
	}

	var held []*audiocore.Device
	defer func() {
		for _, d := range held {
			d.Unref()
		}
	}()

	for i := range s.backend.OutputDeviceCount() {
		d, err := s.backend.OutputDevice(i)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		held = append(held, d)
		resp.Outputs = append(resp.Outputs, d)
	}
	for i := range s.backend.InputDeviceCount() {
		d, err := s.backend.InputDevice(i)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		held = append(held, d)
		resp.Inputs = append(resp.Inputs, d)
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listStreams(c echo.Context) error {
	streams := s.backend.Streams()
	infos := make([]StreamInfo, 0, len(streams))
	for _, st := range streams {
		infos = append(infos, streamInfo(st))
	}
	return c.JSON(http.StatusOK, infos)
}

func (s *Server) getStream(c echo.Context) error {
	id := c.Param("id")
	for _, st := range s.backend.Streams() {
		if st.ID() == id {
			return c.JSON(http.StatusOK, streamInfo(st))
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "stream not found")
}

func (s *Server) heartbeatStatus(c echo.Context) error {
	if s.heartbeat == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "heartbeat receiver disabled")
	}
	return c.JSON(http.StatusOK, s.heartbeat.Status(time.Now()))
}

func streamInfo(st audiocore.Stream) StreamInfo {
	cfg := st.Config()
	info := StreamInfo{
		ID:              st.ID(),
		Name:            cfg.Name,
		Device:          st.Device().ID,
		Aim:             st.Device().Aim,
		Format:          cfg.Format,
		Layout:          cfg.Layout.Name,
		SampleRate:      cfg.SampleRate,
		SoftwareLatency: cfg.SoftwareLatency.Seconds(),
		Stats:           st.Stats(),
	}
	// a stream destroyed between listing and here reports no latency
	if latency, err := st.Latency(); err == nil {
		info.Latency = latency.Seconds()
	}
	return info
}
