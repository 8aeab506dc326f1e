package audiocore

import (
	"github.com/tphakala/remoteaudio/internal/errors"
)

// Component identifier for audiocore errors
const ComponentAudioCore = "audiocore"

// Sentinel errors returned by backends and streams. Callers match them with errors.Is;
// backends wrap them with the enhanced error builder to add context.
var (
	// ErrInvalid is returned for invalid arguments, e.g. a lease larger than the frames offered
	ErrInvalid = errors.NewStd("invalid argument")

	// ErrNoMem is returned when stream resources cannot be allocated
	ErrNoMem = errors.NewStd("out of memory")

	// ErrIncompatibleDevice is returned when a format, layout or rate is not supported by the device
	ErrIncompatibleDevice = errors.NewStd("device does not support the requested stream parameters")

	// ErrStreamStarted is returned by Start on a stream whose engine is already running
	ErrStreamStarted = errors.NewStd("stream already started")

	// ErrStreamStopped is returned by Start on a stream whose engine stopped after a callback failure
	ErrStreamStopped = errors.NewStd("stream stopped")

	// ErrStreamDestroyed is returned by any operation on a destroyed stream
	ErrStreamDestroyed = errors.NewStd("stream destroyed")

	// ErrReentrantDestroy is returned by Destroy when called from one of the stream's own callbacks
	ErrReentrantDestroy = errors.NewStd("stream destroyed from its own callback")

	// ErrNoLease is returned by EndWrite/EndRead without a matching begin call
	ErrNoLease = errors.NewStd("no active buffer lease")

	// ErrBackendClosed is returned by backend operations after Close
	ErrBackendClosed = errors.NewStd("backend closed")

	// ErrDeviceNotFound is returned for an out of range device index
	ErrDeviceNotFound = errors.NewStd("device not found")
)

// NewError wraps a sentinel with component, category and context for telemetry.
func NewError(sentinel error, category errors.ErrorCategory, msg string) *errors.ErrorBuilder {
	return errors.Newf("%s: %w", msg, sentinel).
		Component(ComponentAudioCore).
		Category(category)
}
