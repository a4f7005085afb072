package audiopipeline

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSetIndexOf(t *testing.T) {
	set := NewChannelSet(ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter)
	assert.Equal(t, 0, set.IndexOf(ChannelFrontLeft))
	assert.Equal(t, 1, set.IndexOf(ChannelFrontRight))
	assert.Equal(t, 2, set.IndexOf(ChannelFrontCenter))
	assert.Equal(t, 3, set.Count())
}

func TestChannelSetCanonicalOrdering(t *testing.T) {
	// BackLeft inserted before FrontRight by call order, but canonical
	// ordering must follow bit index, not insertion order.
	set := NewChannelSet(ChannelBackLeft, ChannelFrontRight)
	channels := set.Channels()
	require.Len(t, channels, 2)
	assert.Equal(t, ChannelFrontRight, channels[0])
	assert.Equal(t, ChannelBackLeft, channels[1])
}

func TestBufferFormatValidity(t *testing.T) {
	valid := NewBufferFormat(ChannelSetStereo, 48000)
	assert.True(t, valid.IsValid())

	zeroChannels := NewBufferFormat(0, 48000)
	assert.False(t, zeroChannels.IsValid())

	zeroRate := NewBufferFormat(ChannelSetStereo, 0)
	assert.False(t, zeroRate.IsValid())
}

func TestBufferFormatEquality(t *testing.T) {
	a := NewBufferFormat(ChannelSetStereo, 48000)
	b := NewBufferFormat(ChannelSetStereo, 48000)
	c := NewBufferFormat(ChannelSetMono, 48000)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestBufferFormatOrdering(t *testing.T) {
	lowRate := NewBufferFormat(ChannelSetStereo, 44100)
	highRate := NewBufferFormat(ChannelSetMono, 48000)
	assert.True(t, lowRate.Less(highRate))

	fewerChannels := NewBufferFormat(ChannelSetMono, 48000)
	moreChannels := NewBufferFormat(ChannelSet5Point1, 48000)
	assert.True(t, fewerChannels.Less(moreChannels))
}

func TestSampleFormatStride(t *testing.T) {
	assert.Equal(t, 1, SampleFormatUint8.Stride())
	assert.Equal(t, 2, SampleFormatInt16.Stride())
	assert.Equal(t, 4, SampleFormatInt24.Stride(), "24-bit samples live in a 4-byte sign-extended slot")
	assert.Equal(t, 4, SampleFormatInt32.Stride())
	assert.Equal(t, 4, SampleFormatFloat32.Stride())
	assert.Equal(t, 8, SampleFormatFloat64.Stride())
}

func TestSampleFormatPackedSizeAndBitWidth(t *testing.T) {
	assert.Equal(t, 3, SampleFormatInt24.PackedSize(), "24-bit samples pack to 3 bytes on the wire")
	assert.Equal(t, 24, SampleFormatInt24.BitWidth())
	assert.Equal(t, 8, SampleFormatUint8.BitWidth())
	assert.Equal(t, 64, SampleFormatFloat64.BitWidth())
}

func TestConvertSampleInt16ToInt32RoundTrip(t *testing.T) {
	src := make([]byte, SampleFormatInt16.Stride())
	binary.LittleEndian.PutUint16(src, uint16(int16(12345)))

	wide := make([]byte, SampleFormatInt32.Stride())
	ConvertSample(wide, src, SampleFormatInt32, SampleFormatInt16)

	narrow := make([]byte, SampleFormatInt16.Stride())
	ConvertSample(narrow, wide, SampleFormatInt16, SampleFormatInt32)

	assert.Equal(t, int16(12345), int16(binary.LittleEndian.Uint16(narrow)))
}

func TestConvertSampleFloat32SaturatesOutOfRangeInt16(t *testing.T) {
	src := make([]byte, SampleFormatFloat32.Stride())
	binary.LittleEndian.PutUint32(src, math.Float32bits(2.0))

	dst := make([]byte, SampleFormatInt16.Stride())
	ConvertSample(dst, src, SampleFormatInt16, SampleFormatFloat32)

	assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(dst)))
}

func TestConvertSampleUint8RoundTripsThroughCenter(t *testing.T) {
	src := []byte{128} // digital silence for offset-binary u8
	dst := make([]byte, SampleFormatFloat32.Stride())
	ConvertSample(dst, src, SampleFormatFloat32, SampleFormatUint8)
	assert.InDelta(t, 0.0, float64(math.Float32frombits(binary.LittleEndian.Uint32(dst))), 1e-6)
}

func TestConvertBufferConvertsEverySample(t *testing.T) {
	frames := 4
	src := make([]byte, frames*SampleFormatInt16.Stride())
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(src[i*2:], uint16(int16(1000*(i+1))))
	}

	dst := make([]byte, frames*SampleFormatInt32.Stride())
	ConvertBuffer(dst, src, SampleFormatInt32, SampleFormatInt16)

	for i := 0; i < frames; i++ {
		back := make([]byte, 2)
		ConvertSample(back, dst[i*4:], SampleFormatInt16, SampleFormatInt32)
		assert.Equal(t, int16(1000*(i+1)), int16(binary.LittleEndian.Uint16(back)))
	}
}
