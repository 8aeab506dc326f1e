package audiocore

import (
	"context"
	"time"
)

// StreamConfig holds the parameters shared by output and input streams.
type StreamConfig struct {
	Name       string        // stream name, informational
	Format     Format        // sample format; must be one of the device formats
	Layout     ChannelLayout // channel layout; must be one of the device layouts
	SampleRate int           // frames per second

	// SoftwareLatency is the requested buffering. Zero selects a device
	// dependent default clamped into the device bounds. After open it holds
	// the effective value.
	SoftwareLatency time.Duration
}

// BytesPerSample returns the sample size of the configured format.
func (c StreamConfig) BytesPerSample() int {
	return c.Format.BytesPerSample()
}

// BytesPerFrame returns bytes per sample times the channel count.
func (c StreamConfig) BytesPerFrame() int {
	return c.Format.BytesPerSample() * c.Layout.ChannelCount()
}

// OutStreamConfig configures a playback stream.
type OutStreamConfig struct {
	StreamConfig

	// WriteCallback is invoked from the stream goroutine when the client should
	// write. maxFrames is the free space offered; the client writes with
	// BeginWrite/EndWrite, either inside the callback or before the next period.
	WriteCallback func(s OutStream, minFrames, maxFrames int)

	// UnderflowCallback is invoked once per detected underflow.
	UnderflowCallback func(s OutStream)

	// ErrorCallback is invoked for unrecoverable stream errors.
	ErrorCallback func(s OutStream, err error)
}

// InStreamConfig configures a capture stream.
type InStreamConfig struct {
	StreamConfig

	// ReadCallback is invoked from the stream goroutine when filled frames are
	// available. The client reads with BeginRead/EndRead.
	ReadCallback func(s InStream, minFrames, maxFrames int)

	// OverflowCallback is invoked once per detected overflow.
	OverflowCallback func(s InStream)

	// ErrorCallback is invoked for unrecoverable stream errors.
	ErrorCallback func(s InStream, err error)
}

// ChannelArea is a view into one channel of a buffer lease. Sample i of the
// channel starts at Ptr[i*Step].
type ChannelArea struct {
	Ptr  []byte
	Step int
}

// Sample returns the bytes starting at frame i of the channel.
func (a ChannelArea) Sample(i int) []byte {
	return a.Ptr[i*a.Step:]
}

// Stream is the lifecycle shared by output and input streams.
type Stream interface {
	// ID uniquely identifies the stream within the process
	ID() string

	// Device returns the device the stream was opened on
	Device() *Device

	// Config returns the effective stream parameters
	Config() StreamConfig

	// Start spawns the stream goroutine. Starting a running stream returns ErrStreamStarted.
	Start() error

	// Pause suspends or resumes period processing. Resuming realigns the period phase.
	Pause(pause bool) error

	// Latency returns the time until the currently buffered frames are exhausted.
	Latency() (time.Duration, error)

	// Stats returns stream counters
	Stats() StreamStats

	// Destroy stops the stream goroutine, waits for it to exit and releases the
	// stream. It must not be called from the stream's own callbacks.
	Destroy() error
}

// OutStream is a playback stream.
type OutStream interface {
	Stream

	// BeginWrite leases frameCount frames of buffer space. Requesting more than
	// the frames currently offered fails with ErrInvalid.
	BeginWrite(frameCount int) ([]ChannelArea, error)

	// EndWrite commits the leased frames.
	EndWrite() error

	// ClearBuffer requests the buffer be emptied at the next period boundary.
	ClearBuffer() error
}

// InStream is a capture stream.
type InStream interface {
	Stream

	// BeginRead leases frameCount filled frames. Requesting more than the frames
	// currently offered fails with ErrInvalid.
	BeginRead(frameCount int) ([]ChannelArea, error)

	// EndRead releases the leased frames.
	EndRead() error
}

// StreamStats are cumulative stream counters.
type StreamStats struct {
	Periods    uint64 `json:"periods"`
	Frames     uint64 `json:"frames"` // frames played or captured by the engine
	Underflows uint64 `json:"underflows"`
	Overflows  uint64 `json:"overflows"`
	Running    bool   `json:"running"`
	Paused     bool   `json:"paused"`
}

// Backend exposes a device set and opens streams on it.
type Backend interface {
	// Name identifies the backend, e.g. "remote"
	Name() string

	// OutputDeviceCount and InputDeviceCount return the number of devices per aim
	OutputDeviceCount() int
	InputDeviceCount() int

	// OutputDevice and InputDevice return a referenced device; release it with Unref
	OutputDevice(index int) (*Device, error)
	InputDevice(index int) (*Device, error)

	DefaultOutputDeviceIndex() int
	DefaultInputDeviceIndex() int

	OpenOutStream(dev *Device, cfg OutStreamConfig) (OutStream, error)
	OpenInStream(dev *Device, cfg InStreamConfig) (InStream, error)

	// Streams lists the open streams
	Streams() []Stream

	// FlushEvents delivers pending device change notifications
	FlushEvents()

	// WaitEvents flushes events then blocks until Wakeup or ctx is done
	WaitEvents(ctx context.Context) error

	// Wakeup releases a goroutine blocked in WaitEvents
	Wakeup()

	// ForceDeviceScan requests a device rescan
	ForceDeviceScan()

	// Close destroys every open stream and releases the backend devices
	Close() error
}
