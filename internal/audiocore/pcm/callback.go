package pcm

import (
	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// Writer feeds a Source into a playback stream. Its Callback fills all the
// space the stream offers on every period.
type Writer struct {
	src     Source
	onError func(error)
	scratch []byte
}

// NewWriter returns a Writer for src. onError receives lease errors; when nil
// they are logged.
func NewWriter(src Source, onError func(error)) *Writer {
	return &Writer{src: src, onError: onError}
}

// Callback is an OutStreamConfig.WriteCallback.
func (w *Writer) Callback(s audiocore.OutStream, _, maxFrames int) {
	if maxFrames <= 0 {
		return
	}
	cfg := s.Config()
	areas, err := s.BeginWrite(maxFrames)
	if err != nil {
		w.fail(err)
		return
	}

	w.scratch = grow(w.scratch, maxFrames*cfg.BytesPerFrame())
	w.src.Fill(w.scratch)
	scatter(areas, w.scratch, maxFrames, cfg.BytesPerFrame(), cfg.BytesPerSample())

	if err := s.EndWrite(); err != nil {
		w.fail(err)
	}
}

func (w *Writer) fail(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	GetLogger().Warn("playback write failed", logger.Error(err))
}

// Reader drains a capture stream into a Sink.
type Reader struct {
	sink    Sink
	onError func(error)
	scratch []byte
}

// NewReader returns a Reader for sink. onError receives lease errors; when nil
// they are logged.
func NewReader(sink Sink, onError func(error)) *Reader {
	return &Reader{sink: sink, onError: onError}
}

// Callback is an InStreamConfig.ReadCallback.
func (r *Reader) Callback(s audiocore.InStream, _, maxFrames int) {
	if maxFrames <= 0 {
		return
	}
	cfg := s.Config()
	areas, err := s.BeginRead(maxFrames)
	if err != nil {
		r.fail(err)
		return
	}

	r.scratch = grow(r.scratch, maxFrames*cfg.BytesPerFrame())
	gather(r.scratch, areas, maxFrames, cfg.BytesPerFrame(), cfg.BytesPerSample())

	if err := s.EndRead(); err != nil {
		r.fail(err)
		return
	}
	r.sink.Consume(r.scratch)
}

func (r *Reader) fail(err error) {
	if r.onError != nil {
		r.onError(err)
		return
	}
	GetLogger().Warn("capture read failed", logger.Error(err))
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}

// scatter copies interleaved frames from src into per-channel areas.
func scatter(areas []audiocore.ChannelArea, src []byte, frames, bpf, bps int) {
	for i := range frames {
		frame := src[i*bpf:]
		for ch, area := range areas {
			copy(area.Sample(i)[:bps], frame[ch*bps:ch*bps+bps])
		}
	}
}

// gather copies per-channel areas into interleaved frames in dst.
func gather(dst []byte, areas []audiocore.ChannelArea, frames, bpf, bps int) {
	for i := range frames {
		frame := dst[i*bpf:]
		for ch, area := range areas {
			copy(frame[ch*bps:ch*bps+bps], area.Sample(i)[:bps])
		}
	}
}
