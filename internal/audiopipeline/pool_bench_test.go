package audiopipeline

import "testing"

// BenchmarkBufferPool compares raw allocation against acquiring from a
// BufferPool, the same allocation-vs-pool comparison the teacher runs in
// buffer_pool_simple_bench_test.go.
func BenchmarkBufferPool(b *testing.B) {
	format := NewBufferFormat(ChannelSetStereo, 48000)
	length := Frames(512)

	b.Run("NoPool", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			buf := newBuffer(format, SampleFormatFloat32, length.FrameCount(format.SampleRate()))
			buf.Bytes()[0] = 1
		}
	})

	b.Run("WithPool", func(b *testing.B) {
		pool := NewBufferPool("bench", SampleFormatFloat32, format, length, 4)
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			managed := pool.Acquire()
			managed.Buffer().Bytes()[0] = 1
			managed.Release()
		}
	})
}
