package audiocore

import "strings"

// ChannelID identifies a speaker position.
type ChannelID int

const (
	ChannelInvalid ChannelID = iota
	ChannelFrontLeft
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftCenter
	ChannelFrontRightCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight
)

var channelNames = map[ChannelID]string{
	ChannelFrontLeft:        "Front Left",
	ChannelFrontRight:       "Front Right",
	ChannelFrontCenter:      "Front Center",
	ChannelLFE:              "LFE",
	ChannelBackLeft:         "Back Left",
	ChannelBackRight:        "Back Right",
	ChannelFrontLeftCenter:  "Front Left Center",
	ChannelFrontRightCenter: "Front Right Center",
	ChannelBackCenter:       "Back Center",
	ChannelSideLeft:         "Side Left",
	ChannelSideRight:        "Side Right",
}

func (c ChannelID) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return "Invalid"
}

// ChannelLayout is a named, ordered set of channels.
type ChannelLayout struct {
	Name     string      `json:"name" yaml:"name"`
	Channels []ChannelID `json:"channels" yaml:"channels"`
}

// ChannelCount returns the number of channels in the layout.
func (l ChannelLayout) ChannelCount() int {
	return len(l.Channels)
}

// Equal compares channel order, ignoring the name.
func (l ChannelLayout) Equal(other ChannelLayout) bool {
	if len(l.Channels) != len(other.Channels) {
		return false
	}
	for i := range l.Channels {
		if l.Channels[i] != other.Channels[i] {
			return false
		}
	}
	return true
}

const (
	fl  = ChannelFrontLeft
	fr  = ChannelFrontRight
	fc  = ChannelFrontCenter
	lfe = ChannelLFE
	bl  = ChannelBackLeft
	br  = ChannelBackRight
	flc = ChannelFrontLeftCenter
	frc = ChannelFrontRightCenter
	bc  = ChannelBackCenter
	sl  = ChannelSideLeft
	sr  = ChannelSideRight
)

var builtinLayouts = []ChannelLayout{
	{"Mono", []ChannelID{fc}},
	{"Stereo", []ChannelID{fl, fr}},
	{"2.1", []ChannelID{fl, fr, lfe}},
	{"3.0", []ChannelID{fl, fr, fc}},
	{"3.0 (back)", []ChannelID{fl, fr, bc}},
	{"3.1", []ChannelID{fl, fr, fc, lfe}},
	{"4.0", []ChannelID{fl, fr, fc, bc}},
	{"Quad", []ChannelID{fl, fr, bl, br}},
	{"Quad (side)", []ChannelID{fl, fr, sl, sr}},
	{"4.1", []ChannelID{fl, fr, fc, bc, lfe}},
	{"5.0 (back)", []ChannelID{fl, fr, fc, bl, br}},
	{"5.0 (side)", []ChannelID{fl, fr, fc, sl, sr}},
	{"5.1", []ChannelID{fl, fr, fc, sl, sr, lfe}},
	{"5.1 (back)", []ChannelID{fl, fr, fc, bl, br, lfe}},
	{"6.0 (side)", []ChannelID{fl, fr, fc, sl, sr, bc}},
	{"6.0 (front)", []ChannelID{fl, fr, sl, sr, flc, frc}},
	{"Hexagonal", []ChannelID{fl, fr, fc, bl, br, bc}},
	{"6.1", []ChannelID{fl, fr, fc, sl, sr, bc, lfe}},
	{"6.1 (back)", []ChannelID{fl, fr, fc, bl, br, bc, lfe}},
	{"6.1 (front)", []ChannelID{fl, fr, sl, sr, flc, frc, lfe}},
	{"7.0", []ChannelID{fl, fr, fc, sl, sr, bl, br}},
	{"7.0 (front)", []ChannelID{fl, fr, fc, sl, sr, flc, frc}},
	{"7.1", []ChannelID{fl, fr, fc, sl, sr, bl, br, lfe}},
	{"7.1 (wide)", []ChannelID{fl, fr, fc, sl, sr, flc, frc, lfe}},
	{"7.1 (wide) (back)", []ChannelID{fl, fr, fc, bl, br, flc, frc, lfe}},
	{"Octagonal", []ChannelID{fl, fr, fc, sl, sr, bl, br, bc}},
}

// BuiltinLayouts returns a copy of every builtin channel layout.
func BuiltinLayouts() []ChannelLayout {
	out := make([]ChannelLayout, len(builtinLayouts))
	copy(out, builtinLayouts)
	return out
}

// LayoutByName finds a builtin layout, case-insensitively.
func LayoutByName(name string) (ChannelLayout, bool) {
	for _, l := range builtinLayouts {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return ChannelLayout{}, false
}

// DefaultLayout returns the builtin layout used for a channel count.
func DefaultLayout(channels int) (ChannelLayout, bool) {
	for _, l := range builtinLayouts {
		if l.ChannelCount() == channels {
			return l, true
		}
	}
	return ChannelLayout{}, false
}

// MarshalText encodes the channel by name.
func (c ChannelID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
