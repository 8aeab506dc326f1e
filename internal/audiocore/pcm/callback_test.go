package pcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// planarOut is an output stream whose channel areas point into one buffer per
// channel, so the test sees exactly what went through the areas.
type planarOut struct {
	audiocore.OutStream
	cfg      audiocore.StreamConfig
	planes   [][]byte
	ended    int
	beginErr error
}

func newPlanarOut(cfg audiocore.StreamConfig, frames int) *planarOut {
	p := &planarOut{cfg: cfg}
	for range cfg.Layout.ChannelCount() {
		p.planes = append(p.planes, make([]byte, frames*cfg.BytesPerSample()))
	}
	return p
}

func (p *planarOut) Config() audiocore.StreamConfig { return p.cfg }

func (p *planarOut) BeginWrite(int) ([]audiocore.ChannelArea, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	areas := make([]audiocore.ChannelArea, len(p.planes))
	for ch, plane := range p.planes {
		areas[ch] = audiocore.ChannelArea{Ptr: plane, Step: p.cfg.BytesPerSample()}
	}
	return areas, nil
}

func (p *planarOut) EndWrite() error {
	p.ended++
	return nil
}

type planarIn struct {
	audiocore.InStream
	cfg    audiocore.StreamConfig
	planes [][]byte
	ended  int
}

func (p *planarIn) Config() audiocore.StreamConfig { return p.cfg }

func (p *planarIn) BeginRead(int) ([]audiocore.ChannelArea, error) {
	areas := make([]audiocore.ChannelArea, len(p.planes))
	for ch, plane := range p.planes {
		areas[ch] = audiocore.ChannelArea{Ptr: plane, Step: p.cfg.BytesPerSample()}
	}
	return areas, nil
}

func (p *planarIn) EndRead() error {
	p.ended++
	return nil
}

type collect struct{ data []byte }

func (c *collect) Consume(p []byte) { c.data = append(c.data, p...) }

func TestWriterScattersFramesToChannels(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatS16LE, "Stereo", 8000)
	out := newPlanarOut(cfg, 4)

	// left gets the tone, right is silent: a source writing distinct channels
	src := sourceFunc(func(p []byte) {
		for i := 0; i < len(p); i += cfg.BytesPerFrame() {
			p[i], p[i+1] = byte(i/4+1), 0
			p[i+2], p[i+3] = 0xee, 0xff
		}
	})

	NewWriter(src, nil).Callback(out, 0, 4)
	assert.Equal(t, 1, out.ended)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0, 4, 0}, out.planes[0])
	assert.Equal(t, []byte{0xee, 0xff, 0xee, 0xff, 0xee, 0xff, 0xee, 0xff}, out.planes[1])
}

func TestWriterReportsLeaseErrors(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatS16LE, "Mono", 8000)
	out := newPlanarOut(cfg, 4)
	out.beginErr = audiocore.ErrInvalid

	var got error
	w := NewWriter(Silence(cfg), func(err error) { got = err })
	w.Callback(out, 0, 4)
	require.ErrorIs(t, got, audiocore.ErrInvalid)
	assert.Zero(t, out.ended)

	// nothing offered, nothing leased
	got = nil
	w.Callback(out, 0, 0)
	assert.NoError(t, got)
}

func TestReaderGathersChannels(t *testing.T) {
	t.Parallel()

	cfg := streamConfig(t, audiocore.FormatS8, "Stereo", 8000)
	in := &planarIn{cfg: cfg, planes: [][]byte{{1, 2, 3}, {0x7f, 9, 8}}}

	var sink collect
	NewReader(&sink, nil).Callback(in, 0, 3)
	assert.Equal(t, 1, in.ended)
	assert.Equal(t, []byte{1, 0x7f, 2, 9, 3, 8}, sink.data)
}

type sourceFunc func(p []byte)

func (f sourceFunc) Fill(p []byte) { f(p) }
