// Package audiocore defines the device and stream model shared by audio backends.
//
// A Backend exposes a static set of Devices and opens OutStreams (playback) and
// InStreams (capture) on them. Every open stream is driven by its own goroutine,
// which wakes once per period and talks to the client through callbacks:
//
//	OutStreamConfig.WriteCallback  -> client calls BeginWrite / EndWrite
//	InStreamConfig.ReadCallback    -> client calls BeginRead / EndRead
//
// Underflow and overflow are not errors. They are reported through
// UnderflowCallback and OverflowCallback and the stream resynchronizes itself.
//
// # Concurrency
//
// Callbacks for one stream are never invoked concurrently. Lease calls may be
// made from inside a callback or from another goroutine between periods.
// Streams of different devices are independent.
//
// # Errors
//
// Contract violations are returned as errors rather than panics:
//
//   - Start on a running stream returns ErrStreamStarted
//   - Destroy from the stream's own callback returns ErrReentrantDestroy
//   - any call after Destroy returns ErrStreamDestroyed
//   - a lease request larger than the frames offered returns ErrInvalid
package audiocore
