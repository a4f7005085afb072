package audiopipeline

import (
	"testing"

	"github.com/smallnest/ringbuffer"
)

// BenchmarkBufferQueue exercises github.com/smallnest/ringbuffer as a
// throughput baseline against the bounded SPSC BufferQueue, the same
// comparative-benchmark pattern the teacher uses in
// analysis_buffer_bench_test.go (ringbuffer.RingBuffer as the "original"
// baseline a new implementation is measured against).
func BenchmarkBufferQueue(b *testing.B) {
	const capacity = 64

	b.Run("BufferQueue", func(b *testing.B) {
		q := NewBufferQueue(capacity)
		pool := NewBufferPool("bench", SampleFormatFloat32, NewBufferFormat(ChannelSetStereo, 48000), Frames(512), capacity)
		buffers := make([]*ManagedBuffer, capacity)
		for i := range buffers {
			buffers[i] = pool.Acquire()
		}

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			idx := i % capacity
			q.Push(buffers[idx])
			q.Pop()
		}
	})

	b.Run("ringbuffer.RingBuffer", func(b *testing.B) {
		rb := ringbuffer.New(capacity * 8)
		data := make([]byte, 8)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = rb.Write(data)
			buf := make([]byte, 8)
			_, _ = rb.Read(buf)
		}
	})
}
