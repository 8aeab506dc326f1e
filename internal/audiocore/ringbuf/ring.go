// Package ringbuf provides the frame oriented ring buffer used by stream engines.
//
// It wraps github.com/smallnest/ringbuffer, whose internal mutex makes cursor and
// content updates visible across goroutines, and adds frame accounting on top of
// its byte interface. Capacity is rounded up to a whole number of pages.
package ringbuf

import (
	"fmt"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/remoteaudio/internal/errors"
)

// PageSize is the allocation granularity of ring capacity.
const PageSize = 4096

// Ring is a fixed capacity byte ring addressed in whole frames. A single
// producer and a single consumer may use it concurrently. AdvanceRead and
// AdvanceWrite share one scratch buffer and must be called from the same goroutine.
type Ring struct {
	rb            *ringbuffer.RingBuffer
	bytesPerFrame int
	capacity      int
	scratch       []byte
}

// New allocates a ring able to hold at least minBytes. The actual capacity is
// minBytes rounded up to a multiple of PageSize.
func New(minBytes, bytesPerFrame int) (*Ring, error) {
	if bytesPerFrame <= 0 {
		return nil, errors.Newf("ring buffer frame size must be positive, got %d", bytesPerFrame).
			Category(errors.CategoryValidation).
			Build()
	}
	if minBytes <= 0 {
		return nil, errors.Newf("ring buffer size must be positive, got %d", minBytes).
			Category(errors.CategoryValidation).
			Build()
	}

	capacity := ((minBytes + PageSize - 1) / PageSize) * PageSize
	if capacity < bytesPerFrame {
		capacity = ((bytesPerFrame + PageSize - 1) / PageSize) * PageSize
	}

	rb, err := allocate(capacity)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryResource).
			Context("capacity_bytes", capacity).
			Build()
	}

	return &Ring{
		rb:            rb,
		bytesPerFrame: bytesPerFrame,
		capacity:      capacity,
		scratch:       make([]byte, capacity),
	}, nil
}

// allocate converts an allocation panic into an error.
func allocate(capacity int) (rb *ringbuffer.RingBuffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocate %d byte ring: %v", capacity, r)
		}
	}()
	return ringbuffer.New(capacity), nil
}

// CapacityBytes returns the allocated size in bytes.
func (r *Ring) CapacityBytes() int { return r.capacity }

// CapacityFrames returns how many whole frames the ring holds.
func (r *Ring) CapacityFrames() int { return r.capacity / r.bytesPerFrame }

// BytesPerFrame returns the frame size the ring was created with.
func (r *Ring) BytesPerFrame() int { return r.bytesPerFrame }

// FillFrames returns the number of frames written and not yet read.
func (r *Ring) FillFrames() int { return r.rb.Length() / r.bytesPerFrame }

// FreeFrames returns the number of frames that can be written.
func (r *Ring) FreeFrames() int { return r.CapacityFrames() - r.FillFrames() }

// Write appends whole frames. Writing more than FreeFrames fails without
// modifying the ring.
func (r *Ring) Write(p []byte) error {
	if len(p)%r.bytesPerFrame != 0 {
		return errors.Newf("write of %d bytes is not a whole number of %d byte frames", len(p), r.bytesPerFrame).
			Category(errors.CategoryValidation).
			Build()
	}
	if len(p) == 0 {
		return nil
	}
	if frames := len(p) / r.bytesPerFrame; frames > r.FreeFrames() {
		return errors.Newf("write of %d frames exceeds %d free", frames, r.FreeFrames()).
			Category(errors.CategoryBuffer).
			Build()
	}
	n, err := r.rb.Write(p)
	if err != nil {
		return errors.New(err).Category(errors.CategoryBuffer).Context("written", n).Build()
	}
	return nil
}

// Read removes up to len(p)/BytesPerFrame whole frames into p and returns the frame count.
func (r *Ring) Read(p []byte) int {
	want := min(len(p)/r.bytesPerFrame, r.FillFrames())
	if want == 0 {
		return 0
	}
	n, err := r.rb.Read(p[:want*r.bytesPerFrame])
	if err != nil && n == 0 {
		return 0
	}
	return n / r.bytesPerFrame
}

// AdvanceRead consumes up to frames filled frames, handing the consumed bytes to
// sink when it is not nil, and returns the number of frames consumed.
func (r *Ring) AdvanceRead(frames int, sink func([]byte)) int {
	frames = min(frames, r.FillFrames())
	if frames <= 0 {
		return 0
	}
	got := r.Read(r.scratch[:frames*r.bytesPerFrame])
	if sink != nil && got > 0 {
		sink(r.scratch[:got*r.bytesPerFrame])
	}
	return got
}

// AdvanceWrite produces up to frames frames of free space, filled by source when
// it is not nil and zeroed otherwise, and returns the number of frames produced.
// A short write returns the frames that did fit along with the error.
func (r *Ring) AdvanceWrite(frames int, source func([]byte)) (int, error) {
	frames = min(frames, r.FreeFrames())
	if frames <= 0 {
		return 0, nil
	}
	buf := r.scratch[:frames*r.bytesPerFrame]
	if source != nil {
		source(buf)
	} else {
		clear(buf)
	}
	n, err := r.rb.Write(buf)
	if err != nil {
		return n / r.bytesPerFrame, errors.New(err).
			Category(errors.CategoryBuffer).
			Context("requested_frames", frames).
			Context("written", n).
			Build()
	}
	return n / r.bytesPerFrame, nil
}

// Clear discards all buffered frames.
func (r *Ring) Clear() {
	r.rb.Reset()
}
