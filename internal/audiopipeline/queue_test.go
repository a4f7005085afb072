package audiopipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeManagedBuffer(pool *BufferPool) *ManagedBuffer {
	return pool.Acquire()
}

func TestBufferQueueEmptyAndFullTransitions(t *testing.T) {
	q := NewBufferQueue(2)
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 4)

	assert.True(t, q.Empty())
	assert.False(t, q.Full())

	require.True(t, q.Push(makeManagedBuffer(pool)))
	assert.False(t, q.Empty())
	assert.False(t, q.Full())

	require.True(t, q.Push(makeManagedBuffer(pool)))
	assert.True(t, q.Full())

	// Capacity reached; pushing further must fail rather than overwrite.
	assert.False(t, q.Push(makeManagedBuffer(pool)))
}

func TestBufferQueueFIFOOrder(t *testing.T) {
	q := NewBufferQueue(4)
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 4)

	first := makeManagedBuffer(pool)
	second := makeManagedBuffer(pool)

	q.Push(first)
	q.Push(second)

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, first, got)

	got, ok = q.Pop()
	require.True(t, ok)
	assert.Same(t, second, got)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestBufferQueueHeadTailCountersNeverWrapModIndexesIntoCapacity(t *testing.T) {
	const capacity = 3
	q := NewBufferQueue(capacity)
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), capacity)

	// Push/pop many more times than capacity; the underlying head/tail
	// counters are monotonic and never wrap, only the storage index does.
	for i := 0; i < capacity*100; i++ {
		buf := makeManagedBuffer(pool)
		require.True(t, q.Push(buf))
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Same(t, buf, got)
	}

	assert.True(t, q.Empty())
	assert.Equal(t, capacity, q.Capacity())
}

func TestBufferQueueClearReleasesOutstandingBuffers(t *testing.T) {
	q := NewBufferQueue(2)
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 2)

	q.Push(makeManagedBuffer(pool))
	q.Push(makeManagedBuffer(pool))

	q.Clear()

	assert.True(t, q.Empty())
	assert.Equal(t, 2, pool.Stats().FreeListDepth)
}
