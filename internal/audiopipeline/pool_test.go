package audiopipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBufferPoolAcquireNeverBlocksAndAllocatesOnExhaustion(t *testing.T) {
	format := NewBufferFormat(ChannelSetStereo, 48000)
	pool := NewBufferPool("test", SampleFormatFloat32, format, Frames(128), 1)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.TotalAllocated)

	first := pool.Acquire()
	require.NotNil(t, first)

	// Pool was exhausted by the first acquire; a second must allocate
	// rather than block or fail.
	second := pool.Acquire()
	require.NotNil(t, second)

	stats = pool.Stats()
	assert.Equal(t, int64(2), stats.TotalAllocated)

	first.Release()
	second.Release()
}

func TestBufferPoolReleaseReturnsToFreeStack(t *testing.T) {
	format := NewBufferFormat(ChannelSetStereo, 48000)
	pool := NewBufferPool("test", SampleFormatFloat32, format, Frames(128), 0)

	buf := pool.Acquire()
	buf.Release()

	stats := pool.Stats()
	assert.Equal(t, 1, stats.FreeListDepth)
	assert.Equal(t, int64(0), stats.Outstanding)
}

func TestBufferPoolReleaseIsIdempotent(t *testing.T) {
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 1)
	buf := pool.Acquire()

	buf.Release()
	buf.Release() // must not double-free / double-return the slot

	assert.Equal(t, 1, pool.Stats().FreeListDepth)
}

func TestBufferPoolDroppedPoolDiscardsLateReleases(t *testing.T) {
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 0)
	buf := pool.Acquire()

	pool.Close()
	buf.Release() // must not resurrect or panic on the closed pool

	assert.Equal(t, 0, pool.Stats().FreeListDepth)
}

func TestBufferPoolSetTemplateAffectsOnlyFutureAcquisitions(t *testing.T) {
	monoFormat := NewBufferFormat(ChannelSetMono, 48000)
	pool := NewBufferPool("test", SampleFormatFloat32, monoFormat, Frames(128), 1)

	inFlight := pool.Acquire()
	assert.Equal(t, monoFormat, inFlight.Buffer().Format())

	stereoFormat := NewBufferFormat(ChannelSetStereo, 48000)
	pool.SetTemplate(SampleFormatFloat32, stereoFormat, Frames(128))

	next := pool.Acquire()
	assert.Equal(t, stereoFormat, next.Buffer().Format())

	inFlight.Release()
	next.Release()
}
