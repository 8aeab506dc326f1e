package audiocore

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/tphakala/remoteaudio/internal/errors"
)

// Format is a PCM sample format.
type Format int

const (
	FormatInvalid Format = iota
	FormatS8
	FormatU8
	FormatS16LE
	FormatS16BE
	FormatU16LE
	FormatU16BE
	FormatS24LE // 24-bit sample in the low bytes of a 32-bit container
	FormatS24BE
	FormatU24LE
	FormatU24BE
	FormatS24PackedLE // 24-bit sample in 3 bytes
	FormatS24PackedBE
	FormatU24PackedLE
	FormatU24PackedBE
	FormatS32LE
	FormatS32BE
	FormatU32LE
	FormatU32BE
	FormatFloat32LE // [-1.0, 1.0]
	FormatFloat32BE
	FormatFloat64LE
	FormatFloat64BE
)

type formatInfo struct {
	name     string
	bytes    int // storage bytes per sample
	bits     int // significant bits
	signed   bool
	float    bool
	bigEnd   bool
	byteless bool // single byte, no byte order
}

var formatTable = map[Format]formatInfo{
	FormatS8:          {name: "s8", bytes: 1, bits: 8, signed: true, byteless: true},
	FormatU8:          {name: "u8", bytes: 1, bits: 8, byteless: true},
	FormatS16LE:       {name: "s16le", bytes: 2, bits: 16, signed: true},
	FormatS16BE:       {name: "s16be", bytes: 2, bits: 16, signed: true, bigEnd: true},
	FormatU16LE:       {name: "u16le", bytes: 2, bits: 16},
	FormatU16BE:       {name: "u16be", bytes: 2, bits: 16, bigEnd: true},
	FormatS24LE:       {name: "s24le", bytes: 4, bits: 24, signed: true},
	FormatS24BE:       {name: "s24be", bytes: 4, bits: 24, signed: true, bigEnd: true},
	FormatU24LE:       {name: "u24le", bytes: 4, bits: 24},
	FormatU24BE:       {name: "u24be", bytes: 4, bits: 24, bigEnd: true},
	FormatS24PackedLE: {name: "s24packedle", bytes: 3, bits: 24, signed: true},
	FormatS24PackedBE: {name: "s24packedbe", bytes: 3, bits: 24, signed: true, bigEnd: true},
	FormatU24PackedLE: {name: "u24packedle", bytes: 3, bits: 24},
	FormatU24PackedBE: {name: "u24packedbe", bytes: 3, bits: 24, bigEnd: true},
	FormatS32LE:       {name: "s32le", bytes: 4, bits: 32, signed: true},
	FormatS32BE:       {name: "s32be", bytes: 4, bits: 32, signed: true, bigEnd: true},
	FormatU32LE:       {name: "u32le", bytes: 4, bits: 32},
	FormatU32BE:       {name: "u32be", bytes: 4, bits: 32, bigEnd: true},
	FormatFloat32LE:   {name: "float32le", bytes: 4, bits: 32, signed: true, float: true},
	FormatFloat32BE:   {name: "float32be", bytes: 4, bits: 32, signed: true, float: true, bigEnd: true},
	FormatFloat64LE:   {name: "float64le", bytes: 8, bits: 64, signed: true, float: true},
	FormatFloat64BE:   {name: "float64be", bytes: 8, bits: 64, signed: true, float: true, bigEnd: true},
}

// hostLittleEndian reports the byte order of the running machine.
var hostLittleEndian = func() bool {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}()

// NativeEndian returns the native-endian variant of a little/big endian format pair.
func NativeEndian(le, be Format) Format {
	if hostLittleEndian {
		return le
	}
	return be
}

// ForeignEndian returns the foreign-endian variant of a little/big endian format pair.
func ForeignEndian(le, be Format) Format {
	if hostLittleEndian {
		return be
	}
	return le
}

// String returns the short format name, e.g. "s16le".
func (f Format) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return "invalid"
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

// BytesPerSample is the storage size of one sample. Unpacked 24-bit formats use 4 bytes.
func (f Format) BytesPerSample() int {
	return formatTable[f].bytes
}

// BitDepth is the number of significant bits per sample.
func (f Format) BitDepth() int {
	return formatTable[f].bits
}

// IsFloat reports whether samples are IEEE floats.
func (f Format) IsFloat() bool {
	return formatTable[f].float
}

// IsSigned reports whether integer samples are two's complement.
func (f Format) IsSigned() bool {
	return formatTable[f].signed
}

// ByteOrder returns the byte order of multi-byte samples.
func (f Format) ByteOrder() binary.ByteOrder {
	if formatTable[f].bigEnd {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ParseFormat resolves a format name. Besides the names returned by String it
// accepts "ne"/"fe" suffixes for the host's native and foreign byte order.
func ParseFormat(name string) (Format, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(name, "ne"):
		le, okLE := lookupFormat(strings.TrimSuffix(name, "ne") + "le")
		be, okBE := lookupFormat(strings.TrimSuffix(name, "ne") + "be")
		return NativeEndian(le, be), okLE && okBE
	case strings.HasSuffix(name, "fe"):
		le, okLE := lookupFormat(strings.TrimSuffix(name, "fe") + "le")
		be, okBE := lookupFormat(strings.TrimSuffix(name, "fe") + "be")
		return ForeignEndian(le, be), okLE && okBE
	}
	return lookupFormat(name)
}

func lookupFormat(name string) (Format, bool) {
	for f, info := range formatTable {
		if info.name == name {
			return f, true
		}
	}
	return FormatInvalid, false
}

// EncodeSample stores v, a normalized sample in [-1, 1], into dst[:f.BytesPerSample()].
// Out of range values are clipped.
func (f Format) EncodeSample(dst []byte, v float64) {
	info := formatTable[f]
	v = max(-1, min(1, v))

	if info.float {
		order := f.ByteOrder()
		if info.bytes == 4 {
			order.PutUint32(dst, math.Float32bits(float32(v)))
		} else {
			order.PutUint64(dst, math.Float64bits(v))
		}
		return
	}

	full := int64(1) << (info.bits - 1)
	i := int64(math.Round(v * float64(full-1)))
	u := uint64(i)
	if !info.signed {
		u = uint64(i + full)
	}
	putInt(dst, u, info)
}

// DecodeSample reads one sample from src and returns it normalized to [-1, 1].
func (f Format) DecodeSample(src []byte) float64 {
	info := formatTable[f]

	if info.float {
		order := f.ByteOrder()
		if info.bytes == 4 {
			return float64(math.Float32frombits(order.Uint32(src)))
		}
		return math.Float64frombits(order.Uint64(src))
	}

	full := int64(1) << (info.bits - 1)
	u := getInt(src, info)
	var i int64
	if info.signed {
		// sign extend from bits
		shift := 64 - info.bits
		i = int64(u<<shift) >> shift
	} else {
		i = int64(u) - full
	}
	return float64(i) / float64(full-1)
}

func putInt(dst []byte, u uint64, info formatInfo) {
	if info.byteless {
		dst[0] = byte(u)
		return
	}
	n := info.bytes
	for i := range n {
		b := byte(u >> (8 * i))
		if info.bigEnd {
			dst[n-1-i] = b
		} else {
			dst[i] = b
		}
	}
}

func getInt(src []byte, info formatInfo) uint64 {
	if info.byteless {
		return uint64(src[0])
	}
	n := info.bytes
	var u uint64
	for i := range n {
		var b byte
		if info.bigEnd {
			b = src[n-1-i]
		} else {
			b = src[i]
		}
		u |= uint64(b) << (8 * i)
	}
	// unpacked 24-bit samples ignore the padding byte
	if info.bits < 64 {
		u &= (uint64(1) << info.bits) - 1
	}
	return u
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a format name accepted by ParseFormat.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, ok := ParseFormat(string(text))
	if !ok {
		return NewError(ErrInvalid, errors.CategoryValidation, "unknown sample format "+string(text)).Build()
	}
	*f = parsed
	return nil
}
