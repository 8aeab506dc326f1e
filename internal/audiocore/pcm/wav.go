package pcm

import (
	"math"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/errors"
	"github.com/tphakala/remoteaudio/internal/logger"
)

// WAVSource loops the samples of a WAV file. Channels are mapped by index;
// stream channels beyond the file's channel count repeat the last file channel.
type WAVSource struct {
	cfg      audiocore.StreamConfig
	samples  []float64 // interleaved, normalized
	channels int
	frames   int
	pos      int // next frame
}

// OpenWAV decodes the whole file at path. A sample rate different from the
// stream's is played as is, at the stream rate.
func OpenWAV(path string, cfg audiocore.StreamConfig) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer func() { _ = file.Close() }()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("invalid WAV file format").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels == 0 || bitDepth == 0 || len(buf.Data) < channels {
		return nil, errors.Newf("WAV file has no samples").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	if int(decoder.SampleRate) != cfg.SampleRate {
		GetLogger().Warn("WAV sample rate differs from stream rate, playing without resampling",
			logger.String("path", path),
			logger.Int("file_rate", int(decoder.SampleRate)),
			logger.Int("stream_rate", cfg.SampleRate))
	}

	frames := len(buf.Data) / channels
	divisor := float64(int64(1) << (bitDepth - 1))
	samples := make([]float64, frames*channels)
	for i := range samples {
		v := float64(buf.Data[i])
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = v / divisor
	}

	return &WAVSource{
		cfg:      cfg,
		samples:  samples,
		channels: channels,
		frames:   frames,
	}, nil
}

// Frames returns the number of frames in one loop of the file.
func (w *WAVSource) Frames() int { return w.frames }

// Fill writes the next frames, wrapping to the start of the file.
func (w *WAVSource) Fill(p []byte) {
	bpf := w.cfg.BytesPerFrame()
	bps := w.cfg.BytesPerSample()
	if bpf == 0 {
		return
	}
	for off := 0; off+bpf <= len(p); off += bpf {
		frame := w.samples[w.pos*w.channels : (w.pos+1)*w.channels]
		for ch := range w.cfg.Layout.ChannelCount() {
			w.cfg.Format.EncodeSample(p[off+ch*bps:], frame[min(ch, w.channels-1)])
		}
		w.pos++
		if w.pos == w.frames {
			w.pos = 0
		}
	}
}

// WAVSink writes consumed frames to a WAV file as integer PCM.
type WAVSink struct {
	cfg      audiocore.StreamConfig
	file     *os.File
	enc      *wav.Encoder
	bitDepth int

	mu     sync.Mutex
	buf    *audio.IntBuffer
	frames int
	err    error
	closed bool
}

// CreateWAV creates path and writes a WAV header for cfg. Float and 32-bit
// formats are stored as 32-bit integers, 24-bit formats as 24-bit and the rest
// as 16-bit.
func CreateWAV(path string, cfg audiocore.StreamConfig) (*WAVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	bitDepth := 16
	switch {
	case cfg.Format.IsFloat() || cfg.Format.BitDepth() == 32:
		bitDepth = 32
	case cfg.Format.BitDepth() == 24:
		bitDepth = 24
	}

	channels := cfg.Layout.ChannelCount()
	return &WAVSink{
		cfg:      cfg,
		file:     file,
		enc:      wav.NewEncoder(file, cfg.SampleRate, bitDepth, channels, 1),
		bitDepth: bitDepth,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: cfg.SampleRate, NumChannels: channels},
			SourceBitDepth: bitDepth,
		},
	}, nil
}

// Consume appends frames to the file. The first write error is kept and
// returned by Close; later frames are dropped.
func (s *WAVSink) Consume(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil || s.closed {
		return
	}

	bps := s.cfg.BytesPerSample()
	scale := float64(int64(1)<<(s.bitDepth-1) - 1)
	data := s.buf.Data[:0]
	for off := 0; off+bps <= len(p); off += bps {
		data = append(data, int(math.Round(s.cfg.Format.DecodeSample(p[off:])*scale)))
	}
	s.buf.Data = data

	if err := s.enc.Write(s.buf); err != nil {
		s.err = errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", s.file.Name()).
			Build()
		return
	}
	s.frames += len(data) / max(1, s.cfg.Layout.ChannelCount())
}

// Frames returns the number of frames written.
func (s *WAVSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close finalizes the header and closes the file.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.err
	}
	s.closed = true

	errs := []error{s.err}
	if err := s.enc.Close(); err != nil {
		errs = append(errs, errors.New(err).Category(errors.CategoryFileIO).Build())
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, errors.New(err).Category(errors.CategoryFileIO).Build())
	}
	return errors.Join(errs...)
}
