// Package metrics provides constants used across metric definitions.
package metrics

// Metric namespace and label names.
const (
	// Namespace prefixes every metric exported by remoteaudio.
	Namespace = "remoteaudio"

	// LabelDevice is the virtual device id label.
	LabelDevice = "device"
	// LabelAim is the stream direction label, "output" or "input".
	LabelAim = "aim"
	// LabelResult is the diagnostic send outcome label.
	LabelResult = "result"

	// ResultSent labels a diagnostic datagram written to the peer.
	ResultSent = "sent"
	// ResultFailed labels a diagnostic datagram that could not be written.
	ResultFailed = "failed"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10ms is the starting bucket for buffer latency histograms (10ms to ~5s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
)
