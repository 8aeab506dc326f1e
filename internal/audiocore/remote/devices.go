package remote

import (
	"time"

	"github.com/tphakala/remoteaudio/internal/audiocore"
)

// Device identity and capabilities of the two virtual devices.
const (
	BackendName = "remote"

	OutputDeviceID   = "remote-out"
	OutputDeviceName = "Remote Output Device"
	InputDeviceID    = "remote-in"
	InputDeviceName  = "Remote Input Device"

	MinSampleRate     = 20
	MaxSampleRate     = 192000
	DefaultSampleRate = 48000

	MinSoftwareLatency     = 10 * time.Millisecond
	MaxSoftwareLatency     = 4 * time.Second
	DefaultSoftwareLatency = 100 * time.Millisecond

	// openLatency is requested when a stream asks for the device default
	openLatency = time.Second
)

// deviceFormats lists native byte order before foreign for every multi-byte format.
func deviceFormats() []audiocore.Format {
	pairs := [][2]audiocore.Format{
		{audiocore.FormatFloat32LE, audiocore.FormatFloat32BE},
		{audiocore.FormatS32LE, audiocore.FormatS32BE},
		{audiocore.FormatU32LE, audiocore.FormatU32BE},
		{audiocore.FormatS24LE, audiocore.FormatS24BE},
		{audiocore.FormatU24LE, audiocore.FormatU24BE},
		{audiocore.FormatS24PackedLE, audiocore.FormatS24PackedBE},
		{audiocore.FormatU24PackedLE, audiocore.FormatU24PackedBE},
		{audiocore.FormatFloat64LE, audiocore.FormatFloat64BE},
		{audiocore.FormatS16LE, audiocore.FormatS16BE},
		{audiocore.FormatU16LE, audiocore.FormatU16BE},
	}
	formats := make([]audiocore.Format, 0, 2*len(pairs)+2)
	for _, p := range pairs {
		formats = append(formats,
			audiocore.NativeEndian(p[0], p[1]),
			audiocore.ForeignEndian(p[0], p[1]))
	}
	return append(formats, audiocore.FormatS8, audiocore.FormatU8)
}

func newVirtualDevice(id, name string, aim audiocore.Aim, onRelease func(*audiocore.Device)) *audiocore.Device {
	stereo, _ := audiocore.LayoutByName("Stereo")
	return audiocore.NewDevice(&audiocore.Device{
		ID:                     id,
		Name:                   name,
		Aim:                    aim,
		Backend:                BackendName,
		Formats:                deviceFormats(),
		CurrentFormat:          audiocore.NativeEndian(audiocore.FormatFloat32LE, audiocore.FormatFloat32BE),
		Layouts:                audiocore.BuiltinLayouts(),
		CurrentLayout:          stereo,
		SampleRates:            []audiocore.SampleRateRange{{Min: MinSampleRate, Max: MaxSampleRate}},
		SampleRateCurrent:      DefaultSampleRate,
		SoftwareLatencyMin:     MinSoftwareLatency,
		SoftwareLatencyMax:     MaxSoftwareLatency,
		SoftwareLatencyCurrent: DefaultSoftwareLatency,
	}, onRelease)
}
