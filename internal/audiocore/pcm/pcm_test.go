package pcm

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

func streamConfig(t *testing.T, format audiocore.Format, layout string, rate int) audiocore.StreamConfig {
	t.Helper()
	l, ok := audiocore.LayoutByName(layout)
	require.True(t, ok, layout)
	return audiocore.StreamConfig{Format: format, Layout: l, SampleRate: rate}
}

func TestSilenceUsesFormatZeroLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format audiocore.Format
		want   []byte
	}{
		{audiocore.FormatU8, []byte{0x80, 0x80}},
		{audiocore.FormatS8, []byte{0, 0}},
		{audiocore.FormatU16LE, []byte{0x00, 0x80, 0x00, 0x80}},
		{audiocore.FormatS16BE, []byte{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			t.Parallel()
			cfg := streamConfig(t, tt.format, "Stereo", 48000)
			p := make([]byte, 3*cfg.BytesPerFrame())
			for i := range p {
				p[i] = 0xaa
			}
			Silence(cfg).Fill(p)
			for off := 0; off < len(p); off += cfg.BytesPerFrame() {
				assert.Equal(t, tt.want, p[off:off+cfg.BytesPerFrame()])
			}
		})
	}
}

func TestToneShape(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatFloat32LE, "Stereo", 48000)
	tone := NewTone(cfg, 1000, 0.5)

	// 48 frames is one full cycle at 1 kHz
	p := make([]byte, 48*cfg.BytesPerFrame())
	tone.Fill(p)

	sample := func(frame, ch int) float64 {
		return cfg.Format.DecodeSample(p[frame*cfg.BytesPerFrame()+ch*cfg.BytesPerSample():])
	}
	assert.InDelta(t, 0, sample(0, 0), 1e-6)
	assert.InDelta(t, 0.5, sample(12, 0), 1e-6, "quarter cycle peaks")
	assert.InDelta(t, -0.5, sample(36, 1), 1e-6)
	for i := range 48 {
		assert.InDelta(t, sample(i, 0), sample(i, 1), 1e-9, "channels carry the same signal")
	}

	// phase continues across calls
	next := make([]byte, cfg.BytesPerFrame())
	tone.Fill(next)
	assert.InDelta(t, 0, cfg.Format.DecodeSample(next), 1e-5)
}

func TestDiscardCountsFramesAndPeak(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatS16LE, "Mono", 8000)
	p := make([]byte, 10*cfg.BytesPerFrame())
	cfg.Format.EncodeSample(p[6:], -0.75)

	c := Discard(cfg)
	c.Consume(p)
	c.Consume(p[:4])

	assert.Equal(t, uint64(12), c.Frames())
	assert.InDelta(t, 0.75, c.Peak(), 1e-4)
}

func TestWAVSinkAndLoopingSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	cfg := streamConfig(t, audiocore.FormatS16LE, "Stereo", 8000)

	sink, err := CreateWAV(path, cfg)
	require.NoError(t, err)

	frames := make([]byte, 100*cfg.BytesPerFrame())
	NewTone(cfg, 400, 0.8).Fill(frames)
	sink.Consume(frames[:60*cfg.BytesPerFrame()])
	sink.Consume(frames[60*cfg.BytesPerFrame():])
	assert.Equal(t, 100, sink.Frames())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	src, err := OpenWAV(path, cfg)
	require.NoError(t, err)
	require.Equal(t, 100, src.Frames())

	// one and a half loops
	out := make([]byte, 150*cfg.BytesPerFrame())
	src.Fill(out)

	tolerance := 2.0 / math.MaxInt16
	for i := range 150 {
		want := cfg.Format.DecodeSample(frames[(i%100)*cfg.BytesPerFrame():])
		got := cfg.Format.DecodeSample(out[i*cfg.BytesPerFrame():])
		require.InDelta(t, want, got, tolerance, "frame %d", i)
	}
}

func TestWAVSourceMapsChannels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mono.wav")
	mono := streamConfig(t, audiocore.FormatS16LE, "Mono", 8000)
	sink, err := CreateWAV(path, mono)
	require.NoError(t, err)

	p := make([]byte, 4*mono.BytesPerFrame())
	for i := range 4 {
		mono.Format.EncodeSample(p[i*2:], float64(i)/4)
	}
	sink.Consume(p)
	require.NoError(t, sink.Close())

	stereo := streamConfig(t, audiocore.FormatFloat32LE, "Stereo", 8000)
	src, err := OpenWAV(path, stereo)
	require.NoError(t, err)

	out := make([]byte, 4*stereo.BytesPerFrame())
	src.Fill(out)
	for i := range 4 {
		left := stereo.Format.DecodeSample(out[i*8:])
		right := stereo.Format.DecodeSample(out[i*8+4:])
		assert.InDelta(t, float64(i)/4, left, 1e-3)
		assert.InDelta(t, left, right, 1e-9, "mono file feeds both channels")
	}
}

func TestOpenWAVRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	_, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav"), audiocore.StreamConfig{})
	require.Error(t, err)

	_, err = CreateWAV(filepath.Join(t.TempDir(), "no", "such", "dir.wav"), audiocore.StreamConfig{})
	require.Error(t, err)
}

func TestTeeFeedsEverySink(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatU8, "Mono", 8000)
	a, b := Discard(cfg), Discard(cfg)
	Tee(a, nil, b).Consume(make([]byte, 5))
	assert.Equal(t, uint64(5), a.Frames())
	assert.Equal(t, uint64(5), b.Frames())
}
