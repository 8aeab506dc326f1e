// Package pcm provides software sample sources and sinks for stream engines and
// the command line tools. Sources and sinks work on interleaved frames encoded
// in a stream's sample format.
package pcm

import (
	"math"
	"sync/atomic"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// Source produces interleaved frames.
type Source interface {
	// Fill overwrites p, a whole number of frames, with the next frames
	Fill(p []byte)
}

// Sink consumes interleaved frames.
type Sink interface {
	// Consume receives a whole number of frames; p is only valid during the call
	Consume(p []byte)
}

// silence fills with the encoded zero level of the format.
type silence struct {
	frame []byte
}

// Silence returns a source of digital silence. Unsigned formats are filled with
// their mid-scale value, not zero bytes.
func Silence(cfg audiocore.StreamConfig) Source {
	frame := make([]byte, cfg.BytesPerFrame())
	bps := cfg.BytesPerSample()
	for off := 0; off+bps <= len(frame); off += bps {
		cfg.Format.EncodeSample(frame[off:], 0)
	}
	return &silence{frame: frame}
}

func (s *silence) Fill(p []byte) {
	if len(s.frame) == 0 {
		return
	}
	for off := 0; off < len(p); off += len(s.frame) {
		copy(p[off:], s.frame)
	}
}

// Tone is a sine wave source written identically to every channel.
type Tone struct {
	cfg       audiocore.StreamConfig
	amplitude float64
	step      float64 // phase increment per frame, radians
	phase     float64
}

// NewTone returns a sine source at freq Hz. amplitude is clipped to [0, 1].
func NewTone(cfg audiocore.StreamConfig, freq, amplitude float64) *Tone {
	return &Tone{
		cfg:       cfg,
		amplitude: max(0, min(1, amplitude)),
		step:      2 * math.Pi * freq / float64(cfg.SampleRate),
	}
}

// Fill writes the next len(p)/BytesPerFrame frames of the tone.
func (t *Tone) Fill(p []byte) {
	bpf := t.cfg.BytesPerFrame()
	bps := t.cfg.BytesPerSample()
	if bpf == 0 {
		return
	}
	for off := 0; off+bpf <= len(p); off += bpf {
		v := t.amplitude * math.Sin(t.phase)
		for ch := off; ch < off+bpf; ch += bps {
			t.cfg.Format.EncodeSample(p[ch:], v)
		}
		t.phase += t.step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}

// Counter is a sink that discards frames and counts them.
type Counter struct {
	bytesPerFrame int
	frames        atomic.Uint64
	peak          atomic.Uint64 // math.Float64bits of the largest absolute sample
	format        audiocore.Format
	bps           int
}

// Discard returns a sink that drops everything it receives and counts frames
// and the peak level.
func Discard(cfg audiocore.StreamConfig) *Counter {
	return &Counter{
		bytesPerFrame: cfg.BytesPerFrame(),
		format:        cfg.Format,
		bps:           cfg.BytesPerSample(),
	}
}

func (c *Counter) Consume(p []byte) {
	if c.bytesPerFrame == 0 {
		return
	}
	c.frames.Add(uint64(len(p) / c.bytesPerFrame))

	peak := math.Float64frombits(c.peak.Load())
	for off := 0; off+c.bps <= len(p); off += c.bps {
		peak = max(peak, math.Abs(c.format.DecodeSample(p[off:])))
	}
	c.peak.Store(math.Float64bits(peak))
}

// Frames returns the number of frames consumed.
func (c *Counter) Frames() uint64 { return c.frames.Load() }

// Peak returns the largest absolute normalized sample seen.
func (c *Counter) Peak() float64 { return math.Float64frombits(c.peak.Load()) }

type tee []Sink

// Tee returns a sink that passes frames to every sink in order. Nil sinks
// are skipped.
func Tee(sinks ...Sink) Sink {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}

func (t tee) Consume(p []byte) {
	for _, s := range t {
		s.Consume(p)
	}
}
