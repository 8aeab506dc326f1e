package audiocore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesPerSample(t *testing.T) {
	t.Parallel()

	want := map[Format]int{
		FormatS8: 1, FormatU8: 1,
		FormatS16LE: 2, FormatU16BE: 2,
		FormatS24LE: 4, FormatU24BE: 4,
		FormatS24PackedLE: 3, FormatU24PackedBE: 3,
		FormatS32LE: 4, FormatU32BE: 4,
		FormatFloat32LE: 4, FormatFloat64BE: 8,
	}
	for f, n := range want {
		assert.Equal(t, n, f.BytesPerSample(), f.String())
	}
	assert.Len(t, formatTable, 22)
}

func TestSampleEncoding(t *testing.T) {
	t.Parallel()

	for f := range formatTable {
		t.Run(f.String(), func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, f.BytesPerSample())
			tolerance := 2.0 / float64(int64(1)<<(f.BitDepth()-1))
			if f.IsFloat() {
				tolerance = 1e-6
			}
			for _, v := range []float64{-1, -0.5, 0, 0.25, 1} {
				f.EncodeSample(buf, v)
				assert.InDelta(t, v, f.DecodeSample(buf), tolerance, "value %v", v)
			}
		})
	}
}

func TestSampleByteLayout(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4)
	FormatS16LE.EncodeSample(buf, 1)
	assert.Equal(t, []byte{0xff, 0x7f}, buf[:2])

	FormatS16BE.EncodeSample(buf, 1)
	assert.Equal(t, []byte{0x7f, 0xff}, buf[:2])

	FormatU8.EncodeSample(buf, 0)
	assert.Equal(t, byte(0x80), buf[0])

	FormatS24PackedLE.EncodeSample(buf, -1)
	assert.Equal(t, []byte{0x01, 0x00, 0x80}, buf[:3])

	// clipping
	FormatS16LE.EncodeSample(buf, 3)
	assert.Equal(t, []byte{0xff, 0x7f}, buf[:2])
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, ok := ParseFormat("S16LE")
	require.True(t, ok)
	assert.Equal(t, FormatS16LE, f)

	f, ok = ParseFormat("float32ne")
	require.True(t, ok)
	assert.Equal(t, NativeEndian(FormatFloat32LE, FormatFloat32BE), f)

	f, ok = ParseFormat("u24packedfe")
	require.True(t, ok)
	assert.Equal(t, ForeignEndian(FormatU24PackedLE, FormatU24PackedBE), f)

	_, ok = ParseFormat("s12le")
	assert.False(t, ok)
}

func TestFormatAndAimText(t *testing.T) {
	t.Parallel()

	var got struct {
		Format Format `json:"format"`
		Aim    Aim    `json:"aim"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"format":"s24packedbe","aim":"output"}`), &got))
	assert.Equal(t, FormatS24PackedBE, got.Format)
	assert.Equal(t, AimOutput, got.Aim)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"`+FormatS24PackedBE.String()+`","aim":"output"}`, string(data))

	require.ErrorIs(t, json.Unmarshal([]byte(`{"format":"s12le"}`), &got), ErrInvalid)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"aim":"sideways"}`), &got), ErrInvalid)
}

func TestBuiltinLayouts(t *testing.T) {
	t.Parallel()

	layouts := BuiltinLayouts()
	require.NotEmpty(t, layouts)
	seen := make(map[string]bool)
	for _, l := range layouts {
		assert.False(t, seen[l.Name], "duplicate layout %s", l.Name)
		seen[l.Name] = true
		assert.Positive(t, l.ChannelCount())
	}

	stereo, ok := LayoutByName("stereo")
	require.True(t, ok)
	assert.Equal(t, []ChannelID{ChannelFrontLeft, ChannelFrontRight}, stereo.Channels)

	mono, ok := DefaultLayout(1)
	require.True(t, ok)
	assert.Equal(t, "Mono", mono.Name)

	_, ok = DefaultLayout(32)
	assert.False(t, ok)
}

func TestDeviceRefCount(t *testing.T) {
	t.Parallel()

	released := 0
	d := NewDevice(&Device{ID: "x"}, func(*Device) { released++ })
	d.Ref()
	assert.Equal(t, 2, d.RefCount())

	assert.False(t, d.Unref())
	assert.Zero(t, released)
	assert.True(t, d.Unref())
	assert.Equal(t, 1, released)
}

func TestDeviceCapabilities(t *testing.T) {
	t.Parallel()

	d := &Device{
		Formats:            []Format{FormatS16LE},
		Layouts:            []ChannelLayout{{Name: "Stereo", Channels: []ChannelID{ChannelFrontLeft, ChannelFrontRight}}},
		SampleRates:        []SampleRateRange{{Min: 20, Max: 192000}},
		SoftwareLatencyMin: 10 * time.Millisecond,
		SoftwareLatencyMax: 4 * time.Second,
	}

	assert.True(t, d.SupportsFormat(FormatS16LE))
	assert.False(t, d.SupportsFormat(FormatS16BE))
	assert.True(t, d.SupportsLayout(ChannelLayout{Channels: []ChannelID{ChannelFrontLeft, ChannelFrontRight}}))
	assert.False(t, d.SupportsLayout(ChannelLayout{Channels: []ChannelID{ChannelFrontCenter}}))
	assert.True(t, d.SupportsSampleRate(20))
	assert.False(t, d.SupportsSampleRate(192001))
	assert.Equal(t, 10*time.Millisecond, d.ClampLatency(time.Millisecond))
	assert.Equal(t, 4*time.Second, d.ClampLatency(time.Minute))

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"formats":["s16le"]`)
}
