package remote

import (
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// MetricsRecorder receives stream engine events. Implementations must be safe
// for concurrent use; they are called from stream goroutines.
type MetricsRecorder interface {
	StreamOpened(device string, aim audiocore.Aim)
	StreamClosed(device string, aim audiocore.Aim)
	RecordPeriod(device string, frames int)
	RecordUnderflow(device string)
	RecordOverflow(device string)
	RecordBufferLatency(device string, latency time.Duration)

	// RecordDiagnostic records a diagnostic datagram send; err is nil on success
	RecordDiagnostic(err error)
}

type noopRecorder struct{}

func (noopRecorder) StreamOpened(string, audiocore.Aim)        {}
func (noopRecorder) StreamClosed(string, audiocore.Aim)        {}
func (noopRecorder) RecordPeriod(string, int)                  {}
func (noopRecorder) RecordUnderflow(string)                    {}
func (noopRecorder) RecordOverflow(string)                     {}
func (noopRecorder) RecordBufferLatency(string, time.Duration) {}
func (noopRecorder) RecordDiagnostic(error)                    {}
