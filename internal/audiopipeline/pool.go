package audiopipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pdeljanov/ayane-go/internal/logging"
	"github.com/pdeljanov/ayane-go/internal/metrics"
)

// bufferTemplate is the (sample format, buffer format, buffer length)
// triple a pool hands out buffers shaped by. It's small enough that
// BufferPool.SetTemplate can swap it under the pool mutex in O(1).
type bufferTemplate struct {
	sampleFmt SampleFormat
	format    BufferFormat
	length    BufferLength
}

func (t bufferTemplate) capacityFrames() uint32 {
	return t.length.FrameCount(t.format.SampleRate())
}

// BufferPoolStats mirrors the teacher's BufferPoolStats shape.
type BufferPoolStats struct {
	TotalAllocated int64
	Outstanding    int64
	FreeListDepth  int
}

// BufferPool hands out ManagedBuffer handles shaped by a template,
// reusing freed buffers from an internal stack and allocating only on
// exhaustion. Grounded on the original refcountedpool.h's weak-backref
// pool, expressed in Go with an atomic "alive" flag standing in for the
// C++ std::weak_ptr<Pool>: once a pool is closed, buffers returning to
// it are dropped instead of resurrecting it.
type BufferPool struct {
	name string

	mu       sync.Mutex
	template bufferTemplate
	free     []*Buffer

	alive   atomic.Bool
	stats   struct {
		allocated   int64
		outstanding int64
	}

	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewBufferPool constructs a pool for the given template, optionally
// pre-populated with n buffers.
func NewBufferPool(name string, sampleFmt SampleFormat, format BufferFormat, length BufferLength, preallocate int) *BufferPool {
	p := &BufferPool{
		name:    name,
		template: bufferTemplate{sampleFmt: sampleFmt, format: format, length: length},
		logger:  logging.ForService("audiopipeline").With("component", "pool", "pool", name),
		metrics: metrics.Global(),
	}
	p.alive.Store(true)
	if preallocate > 0 {
		p.Preallocate(preallocate)
	}
	return p
}

// Preallocate pushes n freshly allocated buffers directly onto the free
// stack, ahead of any acquisition.
func (p *BufferPool) Preallocate(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tmpl := p.template
	for i := 0; i < n; i++ {
		p.free = append(p.free, newBuffer(tmpl.format, tmpl.sampleFmt, tmpl.capacityFrames()))
		p.stats.allocated++
	}
}

// SetTemplate atomically empties the pool's free stack so that future
// acquisitions use the new (sampleFmt, format, length) shape. Buffers
// already acquired keep their original shape; once released they go
// back on the free stack and are discarded by the stale-shape check in
// Acquire instead of being reused.
func (p *BufferPool) SetTemplate(sampleFmt SampleFormat, format BufferFormat, length BufferLength) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.template = bufferTemplate{sampleFmt: sampleFmt, format: format, length: length}
	p.free = nil
}

// Acquire never blocks: it pops a free buffer if one is available, or
// allocates a new one. The returned ManagedBuffer is exclusively owned
// until Release is called.
func (p *BufferPool) Acquire() *ManagedBuffer {
	p.mu.Lock()
	tmpl := p.template
	var buf *Buffer
	if n := len(p.free); n > 0 {
		buf = p.free[n-1]
		p.free = p.free[:n-1]
		if buf.format.Equal(tmpl.format) && buf.sampleFmt == tmpl.sampleFmt && buf.capacityFrames == tmpl.capacityFrames() {
			buf.Reset()
		} else {
			// Shape went stale under SetTemplate; discard and allocate.
			buf = nil
		}
	}
	if buf == nil {
		buf = newBuffer(tmpl.format, tmpl.sampleFmt, tmpl.capacityFrames())
		p.stats.allocated++
		p.metrics.RecordBufferAllocated(p.name)
	}
	p.stats.outstanding++
	p.mu.Unlock()

	p.metrics.RecordBufferAcquired(p.name)
	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("buffer acquired", "outstanding", p.stats.outstanding)
	}

	return &ManagedBuffer{buf: buf, pool: p}
}

// reclaim returns buf to the free stack, unless the pool has been
// closed, in which case the buffer is simply dropped.
func (p *BufferPool) reclaim(buf *Buffer) {
	if !p.alive.Load() {
		return
	}
	p.mu.Lock()
	p.stats.outstanding--
	p.free = append(p.free, buf)
	p.mu.Unlock()
	p.metrics.RecordBufferReleased(p.name)
}

// Close marks the pool dead: any ManagedBuffer still outstanding will
// drop its Buffer on Release instead of returning it here, matching the
// original's weak-pool-reference semantics (the pool never gets
// resurrected by a late release).
func (p *BufferPool) Close() {
	p.alive.Store(false)
	p.mu.Lock()
	p.free = nil
	p.mu.Unlock()
}

// Stats reports a snapshot of pool activity.
func (p *BufferPool) Stats() BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return BufferPoolStats{
		TotalAllocated: p.stats.allocated,
		Outstanding:    p.stats.outstanding,
		FreeListDepth:  len(p.free),
	}
}

// ManagedBuffer is an owning handle to a pooled Buffer. Release returns
// the Buffer to its originating pool (or drops it, if the pool has since
// been closed) exactly once; calling Release more than once is a no-op
// after the first call.
type ManagedBuffer struct {
	buf      *Buffer
	pool     *BufferPool
	released atomic.Bool
}

// Buffer exposes the underlying Buffer for reading/writing while the
// handle is held. Calling this after Release returns the same pointer,
// but the buffer may already have been reused by another holder — the
// caller is responsible for not doing that.
func (m *ManagedBuffer) Buffer() *Buffer { return m.buf }

// Release returns the buffer to its pool. Safe to call multiple times;
// only the first call has effect.
func (m *ManagedBuffer) Release() {
	if !m.released.CompareAndSwap(false, true) {
		return
	}
	m.pool.reclaim(m.buf)
}
