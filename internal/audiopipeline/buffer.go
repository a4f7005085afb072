package audiopipeline

import (
	"time"
)

// BufferLength expresses a buffer's length either as a frame count or a
// duration. Conversions are lazy: FrameCount/Duration only touch the
// sample rate when the stored unit differs from the one requested.
type BufferLength struct {
	isTime bool
	frames uint32
	secs   float64
}

// Frames constructs a frame-denominated length.
func Frames(n uint32) BufferLength {
	return BufferLength{isTime: false, frames: n}
}

// Time constructs a duration-denominated length.
func Time(seconds float64) BufferLength {
	return BufferLength{isTime: true, secs: seconds}
}

// FrameCount returns the length in frames at the given sample rate. If
// the length was constructed via Frames, rate is ignored.
func (l BufferLength) FrameCount(rate uint32) uint32 {
	if !l.isTime {
		return l.frames
	}
	return uint32(l.secs * float64(rate))
}

// Duration returns the length as a time.Duration at the given sample
// rate. If the length was constructed via Time, rate is ignored.
func (l BufferLength) Duration(rate uint32) time.Duration {
	if l.isTime {
		return time.Duration(l.secs * float64(time.Second))
	}
	if rate == 0 {
		return 0
	}
	return time.Duration(float64(l.frames) / float64(rate) * float64(time.Second))
}

// BufferFlags is a bitmask of out-of-band conditions carried alongside a
// Buffer's PCM payload.
type BufferFlags uint32

const (
	// FlagEndOfStream marks the final buffer of a stream; consumers
	// should treat the producer as exhausted after observing it.
	FlagEndOfStream BufferFlags = 1 << iota
	// FlagDiscontinuity marks a buffer that does not follow contiguously
	// from the previous one (e.g. after a seek or a dropped frame).
	FlagDiscontinuity
)

// Buffer owns an aligned PCM backing store for frames × channels samples
// of a single sample type, plus cursors tracking how much of the backing
// store has been written and read. A Buffer is always obtained from a
// BufferPool (see pool.go) via a ManagedBuffer handle; Buffer itself
// never returns to a pool — ManagedBuffer.Release does that.
type Buffer struct {
	format     BufferFormat
	sampleFmt  SampleFormat
	length     BufferLength
	timestamp  time.Duration
	flags      BufferFlags

	// data holds frames*channels*sampleFmt.Stride() bytes, interleaved
	// by channel within each frame.
	data []byte

	capacityFrames uint32
	writeIndex     uint32
	readIndex      uint32
}

func newBuffer(format BufferFormat, sampleFmt SampleFormat, capacityFrames uint32) *Buffer {
	size := int(capacityFrames) * format.ChannelCount() * sampleFmt.Stride()
	return &Buffer{
		format:         format,
		sampleFmt:      sampleFmt,
		capacityFrames: capacityFrames,
		data:           make([]byte, size),
	}
}

func (b *Buffer) Format() BufferFormat       { return b.format }
func (b *Buffer) SampleFormat() SampleFormat { return b.sampleFmt }
func (b *Buffer) Length() BufferLength       { return b.length }
func (b *Buffer) Timestamp() time.Duration   { return b.timestamp }
func (b *Buffer) Flags() BufferFlags         { return b.flags }
func (b *Buffer) SetTimestamp(t time.Duration) { b.timestamp = t }
func (b *Buffer) SetFlags(f BufferFlags)     { b.flags = f }
func (b *Buffer) HasFlag(f BufferFlags) bool { return b.flags&f != 0 }

// CapacityFrames returns the number of frames the backing store can
// hold, independent of how many have been written.
func (b *Buffer) CapacityFrames() uint32 { return b.capacityFrames }

// WriteIndex and ReadIndex expose the cursor invariant 0 <= read <=
// write <= capacity, in frames.
func (b *Buffer) WriteIndex() uint32 { return b.writeIndex }
func (b *Buffer) ReadIndex() uint32  { return b.readIndex }

// SetWriteIndex advances the write cursor, e.g. after a producer fills
// n frames. Clamped to capacity.
func (b *Buffer) SetWriteIndex(frames uint32) {
	if frames > b.capacityFrames {
		frames = b.capacityFrames
	}
	b.writeIndex = frames
	if b.readIndex > b.writeIndex {
		b.readIndex = b.writeIndex
	}
}

// SetReadIndex advances the read cursor. Clamped to [0, writeIndex].
func (b *Buffer) SetReadIndex(frames uint32) {
	if frames > b.writeIndex {
		frames = b.writeIndex
	}
	b.readIndex = frames
}

// Bytes exposes the raw backing store for direct I/O (decoders, device
// callbacks). Callers must respect the frame/channel/stride layout.
func (b *Buffer) Bytes() []byte { return b.data }

// Reset clears cursors and flags so the buffer can be reused without
// reallocating, as done by BufferPool.Acquire when it hands out a
// recycled buffer (see pool.go).
func (b *Buffer) Reset() {
	b.writeIndex = 0
	b.readIndex = 0
	b.flags = 0
	b.timestamp = 0
	b.length = BufferLength{}
}

// Copy replaces dst's contents with src's iff formats match, returning
// false (and leaving dst unmodified) otherwise.
func (dst *Buffer) Copy(src *Buffer) bool {
	if !dst.format.Equal(src.format) || dst.sampleFmt != src.sampleFmt {
		return false
	}
	n := copy(dst.data, src.data)
	_ = n
	dst.length = src.length
	dst.timestamp = src.timestamp
	dst.flags = src.flags
	dst.writeIndex = src.writeIndex
	dst.readIndex = src.readIndex
	return true
}

// RawBuffer is a borrowed, non-owning view over externally supplied
// storage (interleaved or planar), used to bridge platform backends —
// which own their own output buffer — into the pipeline without an
// extra copy beyond whatever format conversion is required.
type RawBuffer struct {
	Format    BufferFormat
	SampleFmt SampleFormat
	Planar    bool
	// Planes holds one []byte per channel if Planar, or a single
	// interleaved []byte in Planes[0] otherwise.
	Planes    [][]byte
	// ChannelOrder tags each plane (or, for interleaved storage, each
	// interleaved slot) with its canonical Channel.
	ChannelOrder []Channel

	writeIndex uint32
	readIndex  uint32
}

func (r *RawBuffer) WriteIndex() uint32 { return r.writeIndex }
func (r *RawBuffer) ReadIndex() uint32  { return r.readIndex }
func (r *RawBuffer) SetWriteIndex(f uint32) { r.writeIndex = f }
func (r *RawBuffer) SetReadIndex(f uint32)  { r.readIndex = f }
