package audiocore

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/tphakala/remoteaudio/internal/errors"
)

// Aim is the direction of a device.
type Aim int

const (
	AimInput Aim = iota
	AimOutput
)

func (a Aim) String() string {
	if a == AimOutput {
		return "output"
	}
	return "input"
}

// SampleRateRange is an inclusive range of supported sample rates.
type SampleRateRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Device is a static device descriptor. It is immutable after the backend
// creates it and lives until its reference count drops to zero.
type Device struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Aim     Aim    `json:"aim" yaml:"aim"`
	Backend string `json:"backend" yaml:"backend"`

	Formats       []Format `json:"formats" yaml:"formats"`
	CurrentFormat Format   `json:"current_format" yaml:"current_format"`

	Layouts       []ChannelLayout `json:"layouts" yaml:"layouts"`
	CurrentLayout ChannelLayout   `json:"current_layout" yaml:"current_layout"`

	SampleRates       []SampleRateRange `json:"sample_rates" yaml:"sample_rates"`
	SampleRateCurrent int               `json:"sample_rate_current" yaml:"sample_rate_current"`

	SoftwareLatencyMin     time.Duration `json:"software_latency_min" yaml:"software_latency_min"`
	SoftwareLatencyMax     time.Duration `json:"software_latency_max" yaml:"software_latency_max"`
	SoftwareLatencyCurrent time.Duration `json:"software_latency_current" yaml:"software_latency_current"`

	refCount  atomic.Int32
	onRelease func(*Device)
}

// NewDevice returns a device with one reference held by the caller. onRelease
// runs once when the last reference is dropped.
func NewDevice(d *Device, onRelease func(*Device)) *Device {
	d.refCount.Store(1)
	d.onRelease = onRelease
	return d
}

// Ref adds a reference.
func (d *Device) Ref() *Device {
	d.refCount.Add(1)
	return d
}

// Unref drops a reference and reports whether it was the last one.
func (d *Device) Unref() bool {
	n := d.refCount.Add(-1)
	if n < 0 {
		panic("audiocore: device reference count below zero")
	}
	if n == 0 {
		if d.onRelease != nil {
			d.onRelease(d)
		}
		return true
	}
	return false
}

// RefCount returns the current reference count.
func (d *Device) RefCount() int {
	return int(d.refCount.Load())
}

// SupportsFormat reports whether f is in the device format list.
func (d *Device) SupportsFormat(f Format) bool {
	return slices.Contains(d.Formats, f)
}

// SupportsLayout reports whether the device offers a layout with the same channel order.
func (d *Device) SupportsLayout(l ChannelLayout) bool {
	return slices.ContainsFunc(d.Layouts, l.Equal)
}

// SupportsSampleRate reports whether rate falls inside one of the device ranges.
func (d *Device) SupportsSampleRate(rate int) bool {
	for _, r := range d.SampleRates {
		if rate >= r.Min && rate <= r.Max {
			return true
		}
	}
	return false
}

// ClampLatency clamps latency into the device bounds.
func (d *Device) ClampLatency(latency time.Duration) time.Duration {
	return max(d.SoftwareLatencyMin, min(latency, d.SoftwareLatencyMax))
}

// MarshalText encodes the aim as "input" or "output".
func (a Aim) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes "input" or "output".
func (a *Aim) UnmarshalText(text []byte) error {
	switch string(text) {
	case "input":
		*a = AimInput
	case "output":
		*a = AimOutput
	default:
		return NewError(ErrInvalid, errors.CategoryValidation, "unknown aim "+string(text)).Build()
	}
	return nil
}
