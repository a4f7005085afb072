package audiopipeline

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

// Channel identifies a single canonical speaker position. Values are
// bit positions into a ChannelSet, in the canonical ordering used by the
// original Ayane implementation: FL, FR, FC, LFE, BL, BR, FLc, FRc, BC,
// SL, SR.
type Channel uint

const (
	ChannelFrontLeft Channel = iota
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLowFrequency
	ChannelBackLeft
	ChannelBackRight
	ChannelFrontLeftOfCenter
	ChannelFrontRightOfCenter
	ChannelBackCenter
	ChannelSideLeft
	ChannelSideRight

	channelCount // sentinel, not a real channel
)

var channelNames = [channelCount]string{
	"FL", "FR", "FC", "LFE", "BL", "BR", "FLc", "FRc", "BC", "SL", "SR",
}

func (c Channel) String() string {
	if c >= channelCount {
		return fmt.Sprintf("Channel(%d)", uint(c))
	}
	return channelNames[c]
}

// ChannelSet is a bitmask over the 11 canonical channel positions.
type ChannelSet uint32

// NewChannelSet builds a set from individual channels.
func NewChannelSet(channels ...Channel) ChannelSet {
	var s ChannelSet
	for _, c := range channels {
		s |= ChannelSet(1) << uint(c)
	}
	return s
}

// Common layouts, named the way the teacher names format presets.
var (
	ChannelSetMono   = NewChannelSet(ChannelFrontCenter)
	ChannelSetStereo = NewChannelSet(ChannelFrontLeft, ChannelFrontRight)
	ChannelSet5Point1 = NewChannelSet(
		ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter,
		ChannelLowFrequency, ChannelBackLeft, ChannelBackRight,
	)
)

// Count returns the number of channels present (popcount).
func (s ChannelSet) Count() int {
	return bits.OnesCount32(uint32(s))
}

// Has reports whether the given channel is present in the set.
func (s ChannelSet) Has(c Channel) bool {
	return s&(ChannelSet(1)<<uint(c)) != 0
}

// IndexOf returns the interleaved sample-slot index of c within the set:
// the number of lower positions also present, i.e. the population count
// of the bits below c intersected with the set. Behavior is undefined if
// c is not present in s.
func (s ChannelSet) IndexOf(c Channel) int {
	mask := ChannelSet(1)<<uint(c) - 1
	return bits.OnesCount32(uint32(s & mask))
}

// Channels returns the set's members in canonical (bit index) order.
func (s ChannelSet) Channels() []Channel {
	out := make([]Channel, 0, s.Count())
	for c := Channel(0); c < channelCount; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s ChannelSet) String() string {
	channels := s.Channels()
	out := "["
	for i, c := range channels {
		if i > 0 {
			out += ","
		}
		out += c.String()
	}
	return out + "]"
}

// SampleFormat identifies the scalar sample type a Buffer is backed by.
type SampleFormat int

const (
	SampleFormatUint8 SampleFormat = iota
	SampleFormatInt16
	SampleFormatInt24
	SampleFormatInt32
	SampleFormatFloat32
	SampleFormatFloat64
)

// Stride returns the in-memory size in bytes of one sample of this
// format as stored in a Buffer's backing array. SampleFormatInt24 lives
// in a 4-byte, sign-extended slot (see readInt32FullScale/
// writeInt32FullScale below); its packed wire size is 3 bytes, given by
// PackedSize.
func (sf SampleFormat) Stride() int {
	switch sf {
	case SampleFormatUint8:
		return 1
	case SampleFormatInt16:
		return 2
	case SampleFormatInt24, SampleFormatInt32, SampleFormatFloat32:
		return 4
	case SampleFormatFloat64:
		return 8
	default:
		return 0
	}
}

// PackedSize returns the number of bytes one sample of this format
// occupies when packed tightly, as an external codec or device backend
// would lay it out (e.g. a 24-bit WAV stream packs 3 bytes per sample,
// not the 4-byte aligned slot a Buffer stores it in).
func (sf SampleFormat) PackedSize() int {
	if sf == SampleFormatInt24 {
		return 3
	}
	return sf.Stride()
}

// BitWidth returns the number of significant bits in one sample of this
// format.
func (sf SampleFormat) BitWidth() int {
	switch sf {
	case SampleFormatUint8:
		return 8
	case SampleFormatInt16:
		return 16
	case SampleFormatInt24:
		return 24
	case SampleFormatInt32, SampleFormatFloat32:
		return 32
	case SampleFormatFloat64:
		return 64
	default:
		return 0
	}
}

func (sf SampleFormat) isInteger() bool {
	switch sf {
	case SampleFormatUint8, SampleFormatInt16, SampleFormatInt24, SampleFormatInt32:
		return true
	default:
		return false
	}
}

func (sf SampleFormat) String() string {
	switch sf {
	case SampleFormatUint8:
		return "u8"
	case SampleFormatInt16:
		return "i16"
	case SampleFormatInt24:
		return "i24"
	case SampleFormatInt32:
		return "i32"
	case SampleFormatFloat32:
		return "f32"
	case SampleFormatFloat64:
		return "f64"
	default:
		return "invalid"
	}
}

// readInt32FullScale reads one sample of format sf from data (its first
// sf.Stride() bytes) and widens it to a full-scale int32 via an
// arithmetic left shift, so any two integer formats can be compared or
// converted on a common scale without touching floating point.
func readInt32FullScale(data []byte, sf SampleFormat) int32 {
	switch sf {
	case SampleFormatUint8:
		return (int32(data[0]) - 128) << 24
	case SampleFormatInt16:
		v := int32(int16(binary.LittleEndian.Uint16(data)))
		return v << 16
	case SampleFormatInt24:
		// Stored pre-sign-extended into a 4-byte slot; only the top 24
		// bits of scale are meaningful, so widen by the remaining 8.
		v := int32(binary.LittleEndian.Uint32(data))
		return v << 8
	case SampleFormatInt32:
		return int32(binary.LittleEndian.Uint32(data))
	default:
		return 0
	}
}

// writeInt32FullScale narrows a full-scale int32 into one sample of
// format sf via an arithmetic right shift and writes it to dst.
func writeInt32FullScale(v int32, sf SampleFormat, dst []byte) {
	switch sf {
	case SampleFormatUint8:
		dst[0] = byte((v >> 24) + 128)
	case SampleFormatInt16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v>>16)))
	case SampleFormatInt24:
		binary.LittleEndian.PutUint32(dst, uint32(v>>8))
	case SampleFormatInt32:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	}
}

// saturateRoundEven rounds v to the nearest integer, ties to even, then
// clamps it to [min, max].
func saturateRoundEven(v, min, max float64) float64 {
	v = math.RoundToEven(v)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// sampleToFloat64 decodes one sample of format sf from data onto the
// canonical [-1, 1] full-scale range.
func sampleToFloat64(data []byte, sf SampleFormat) float64 {
	switch sf {
	case SampleFormatFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data)))
	case SampleFormatFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data))
	default:
		return float64(readInt32FullScale(data, sf)) / float64(math.MaxInt32)
	}
}

// float64ToSample encodes v (a [-1, 1] full-scale value) as one sample
// of format sf into dst, saturating and rounding half to even when sf is
// an integer format.
func float64ToSample(v float64, sf SampleFormat, dst []byte) {
	switch sf {
	case SampleFormatFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case SampleFormatFloat64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	default:
		scaled := saturateRoundEven(v*float64(math.MaxInt32), math.MinInt32, math.MaxInt32)
		writeInt32FullScale(int32(scaled), sf, dst)
	}
}

// ConvertSample converts the single sample encoded as from at src into a
// sample encoded as to, written to dst. Converting between two integer
// formats widens or narrows via an arithmetic shift on a common
// full-scale int32; any conversion touching a floating-point format
// round-trips through a full-scale float64, saturating and rounding half
// to even on the way into an integer format. Converting a format to
// itself is a byte copy.
func ConvertSample(dst, src []byte, to, from SampleFormat) {
	if from == to {
		copy(dst[:to.Stride()], src[:from.Stride()])
		return
	}
	if from.isInteger() && to.isInteger() {
		writeInt32FullScale(readInt32FullScale(src, from), to, dst)
		return
	}
	float64ToSample(sampleToFloat64(src, from), to, dst)
}

// ConvertBuffer converts every sample in src (len(src)/from.Stride()
// samples, each from.Stride() bytes) from format from to format to,
// writing to.Stride() bytes per sample into dst. dst must be at least
// (len(src)/from.Stride())*to.Stride() bytes.
func ConvertBuffer(dst, src []byte, to, from SampleFormat) {
	srcStride := from.Stride()
	dstStride := to.Stride()
	if srcStride == 0 || dstStride == 0 {
		return
	}
	n := len(src) / srcStride
	for i := 0; i < n; i++ {
		ConvertSample(dst[i*dstStride:], src[i*srcStride:], to, from)
	}
}

// BufferFormat describes the channel layout and sample rate of a stream
// of audio. Equality and ordering follow §3 of the spec: equality is
// (channels, sample_rate); ordering is by sample_rate then channel_count.
type BufferFormat struct {
	channels   ChannelSet
	sampleRate uint32
}

// NewBufferFormat constructs a format. A zero channel set or zero sample
// rate is invalid; callers should check IsValid before using the result.
func NewBufferFormat(channels ChannelSet, sampleRate uint32) BufferFormat {
	return BufferFormat{channels: channels, sampleRate: sampleRate}
}

func (f BufferFormat) Channels() ChannelSet { return f.channels }
func (f BufferFormat) SampleRate() uint32   { return f.sampleRate }
func (f BufferFormat) ChannelCount() int    { return f.channels.Count() }

// IsValid reports whether the format has at least one channel and a
// nonzero sample rate.
func (f BufferFormat) IsValid() bool {
	return f.channels != 0 && f.sampleRate != 0
}

// Equal implements the equality contract: (channels, sample_rate).
func (f BufferFormat) Equal(other BufferFormat) bool {
	return f.channels == other.channels && f.sampleRate == other.sampleRate
}

// Less implements the ordering contract: sample_rate, then channel_count.
func (f BufferFormat) Less(other BufferFormat) bool {
	if f.sampleRate != other.sampleRate {
		return f.sampleRate < other.sampleRate
	}
	return f.ChannelCount() < other.ChannelCount()
}

func (f BufferFormat) String() string {
	return fmt.Sprintf("%s@%dHz", f.channels, f.sampleRate)
}
