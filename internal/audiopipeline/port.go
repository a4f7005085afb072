package audiopipeline

import (
	"sync"
)

// SynchronicityMode is the resolved execution mode for a link, computed
// by Stage.resolveSynchronicity at play time (see stage.go).
type SynchronicityMode int

const (
	SynchronicityUnresolved SynchronicityMode = iota
	SynchronicitySynchronous
	SynchronicityAsynchronous
)

// SchedulingHint lets a Sink force its upstream link to run
// asynchronously regardless of what the source-count/sink-count table
// would otherwise resolve to.
type SchedulingHint int

const (
	SchedulingDefault SchedulingHint = iota
	SchedulingForceAsynchronous
)

// linkShared is the state a linked Source/Sink pair shares, grounded on
// the original Stage::SourceSinkPrivate: the resolved synchronicity mode,
// the buffer queue, and (for asynchronous links) a condition variable the
// sink blocks on until the source pushes.
type linkShared struct {
	mode  SynchronicityMode
	queue *BufferQueue

	mu           sync.Mutex
	pushNotify   *sync.Cond
}

func newLinkShared(queueCapacity int) *linkShared {
	s := &linkShared{mode: SynchronicitySynchronous, queue: NewBufferQueue(queueCapacity)}
	s.pushNotify = sync.NewCond(&s.mu)
	return s
}

// Source is the producing half of a port pair, owned by exactly one
// Stage. A Source is created attached to its Stage and lives until the
// Stage is destroyed or the port is explicitly unlinked.
type Source struct {
	name  string
	stage *Stage

	mu         sync.Mutex
	linkedSink *Sink
	shared     *linkShared
}

func newSource(stage *Stage, name string) *Source {
	return &Source{name: name, stage: stage, shared: newLinkShared(defaultQueueCapacity)}
}

func (s *Source) Name() string { return s.name }

// IsLinked reports whether this Source currently has a linked Sink.
func (s *Source) IsLinked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkedSink != nil
}

// LinkSynchronicity returns the mode resolved for this Source's link at
// the owning pipeline's last play().
func (s *Source) LinkSynchronicity() SynchronicityMode {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.mode
}

// Push enqueues buf for the linked Sink. If the link is asynchronous, a
// successful push that leaves the queue non-full is reported to the
// owning Stage as backpressure headroom (see Stage.reportBufferQueueIsNotFull),
// and the sink's push-notification condition variable is signaled.
func (s *Source) Push(buf *ManagedBuffer) bool {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()

	shared.mu.Lock()
	ok := shared.queue.Push(buf)
	mode := shared.mode
	full := shared.queue.Full()
	shared.mu.Unlock()

	s.stage.metrics().RecordQueuePush(s.stage.Name(), s.name, ok)
	if !ok {
		s.stage.logger.Warn("failed to push buffer: queue full", "port", s.name)
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrBufferQueueFull)
		}
		return false
	}

	if mode == SynchronicityAsynchronous {
		if !full {
			s.stage.reportBufferQueueIsNotFull()
		}
		shared.mu.Lock()
		shared.pushNotify.Signal()
		shared.mu.Unlock()
	}
	return true
}

// Reset clears the queued buffers, releasing each back to its pool.
func (s *Source) Reset() {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()
	shared.queue.Clear()
}

// Sink is the consuming half of a port pair.
type Sink struct {
	name  string
	stage *Stage

	mu             sync.Mutex
	linkedSource   *Source
	shared         *linkShared
	negotiatedFmt  BufferFormat
	schedulingHint SchedulingHint
	pullCancelled  bool
}

func newSink(stage *Stage, name string) *Sink {
	return &Sink{name: name, stage: stage}
}

func (s *Sink) Name() string { return s.name }

func (s *Sink) IsLinked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkedSource != nil
}

func (s *Sink) LinkSynchronicity() SynchronicityMode {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()
	if shared == nil {
		return SynchronicityUnresolved
	}
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.mode
}

// SetSchedulingHint sets the hint that resolveSynchronicity reads from
// this sink at Play; it must be set before linking, per the spec's
// port-pair contract.
func (s *Sink) SetSchedulingHint(hint SchedulingHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedulingHint = hint
}

func (s *Sink) SchedulingHint() SchedulingHint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedulingHint
}

func (s *Sink) Reset() {
	s.mu.Lock()
	s.negotiatedFmt = BufferFormat{}
	s.mu.Unlock()
}

// PullResult enumerates the outcomes of Pull/TryPull.
type PullResult int

const (
	PullSuccess PullResult = iota
	PullCancelled
	PullBufferQueueEmpty
	PullUnsupportedFormat
	PullNotAsynchronous
)

// Pull is the core consumption operation. On an asynchronous link it
// blocks until the shared queue is non-empty or CancelPull is called; on
// a synchronous link it instead runs the upstream Stage's synchronous
// process loop directly on the caller's goroutine, producing exactly one
// buffer. The popped buffer's format is then checked against the last
// negotiated one, routing any mismatch through the owning Stage's
// reconfigure-input-format callback.
func (s *Sink) Pull() (*ManagedBuffer, PullResult) {
	s.mu.Lock()
	shared := s.shared
	source := s.linkedSource
	s.mu.Unlock()

	if shared == nil || source == nil {
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrNotLinked)
		}
		return nil, PullBufferQueueEmpty
	}

	switch shared.mode {
	case SynchronicityAsynchronous:
		shared.mu.Lock()
		for shared.queue.Empty() {
			s.mu.Lock()
			cancelled := s.pullCancelled
			s.mu.Unlock()
			if cancelled {
				s.mu.Lock()
				s.pullCancelled = false
				s.mu.Unlock()
				shared.mu.Unlock()
				if s.stage.bus != nil {
					s.stage.bus.PostError(s.stage.Name(), ErrPullCancelled)
				}
				return nil, PullCancelled
			}
			shared.pushNotify.Wait()
		}
		shared.mu.Unlock()
	case SynchronicitySynchronous:
		// Invoked unconditionally: the upstream stage's process loop is
		// this link's only source of new buffers, so every synchronous
		// pull runs it once regardless of what is already queued.
		source.stage.syncProcessLoop(s.stage.effectiveClock())
	}

	buf, ok := shared.queue.Pop()
	s.stage.metrics().RecordQueuePop(s.stage.Name(), s.name, ok)
	if !ok {
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrBufferQueueEmpty)
		}
		return nil, PullBufferQueueEmpty
	}

	if result, accepted := s.negotiateFormat(buf); !accepted {
		return buf, result
	}
	return buf, PullSuccess
}

// TryPull is the non-blocking variant, valid only on asynchronous links.
func (s *Sink) TryPull() (*ManagedBuffer, PullResult) {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()

	if shared == nil {
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrNotLinked)
		}
		return nil, PullBufferQueueEmpty
	}
	if shared.mode != SynchronicityAsynchronous {
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrNotAsynchronous)
		}
		return nil, PullNotAsynchronous
	}

	buf, ok := shared.queue.Pop()
	s.stage.metrics().RecordQueuePop(s.stage.Name(), s.name, ok)
	if !ok {
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrBufferQueueEmpty)
		}
		return nil, PullBufferQueueEmpty
	}

	if result, accepted := s.negotiateFormat(buf); !accepted {
		return buf, result
	}
	return buf, PullSuccess
}

func (s *Sink) negotiateFormat(buf *ManagedBuffer) (PullResult, bool) {
	format := buf.Buffer().Format()

	if !format.IsValid() {
		s.stage.logger.Error("buffer carries invalid format", "sink", s.name)
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrInvalidFormat)
		}
		return PullUnsupportedFormat, false
	}

	s.mu.Lock()
	current := s.negotiatedFmt
	s.mu.Unlock()

	if current.Equal(format) {
		return PullSuccess, true
	}
	if !s.stage.reconfigureInputFormat(s, format) {
		s.stage.logger.Error("stage rejected reconfigure to new input format", "sink", s.name, "format", format.String())
		if s.stage.bus != nil {
			s.stage.bus.PostError(s.stage.Name(), ErrUnsupportedFormat)
		}
		return PullUnsupportedFormat, false
	}
	s.mu.Lock()
	s.negotiatedFmt = format
	s.mu.Unlock()
	return PullSuccess, true
}

// CancelPull releases a goroutine blocked in Pull on an asynchronous
// link; a no-op on a synchronous link.
func (s *Sink) CancelPull() {
	s.mu.Lock()
	shared := s.shared
	s.mu.Unlock()
	if shared == nil || shared.mode != SynchronicityAsynchronous {
		return
	}
	s.mu.Lock()
	s.pullCancelled = true
	s.mu.Unlock()
	shared.mu.Lock()
	shared.pushNotify.Broadcast()
	shared.mu.Unlock()
}

// Link attaches source to sink, succeeding iff both ends are currently
// unlinked. Performed under both stages' reconfiguration windows (sink
// first, then source, per the spec's fixed-order deadlock avoidance
// rule).
func Link(source *Source, sink *Sink) bool {
	if source == nil || sink == nil {
		return false
	}

	source.mu.Lock()
	sourceLinked := source.linkedSink != nil
	source.mu.Unlock()
	sink.mu.Lock()
	sinkLinked := sink.linkedSource != nil
	sink.mu.Unlock()
	if sourceLinked || sinkLinked {
		sink.stage.logger.Warn("link failed: port already linked", "source", source.name, "sink", sink.name)
		if sink.stage.bus != nil {
			sink.stage.bus.PostError(sink.stage.Name(), ErrAlreadyLinked)
		}
		return false
	}

	sinkEnd := sink.stage.beginReconfiguration()
	sourceEnd := source.stage.beginReconfiguration()

	source.mu.Lock()
	source.linkedSink = sink
	source.mu.Unlock()

	sink.mu.Lock()
	sink.linkedSource = source
	sink.shared = source.shared
	sink.mu.Unlock()

	source.stage.endReconfiguration(sourceEnd)
	sink.stage.endReconfiguration(sinkEnd)
	return true
}

// Unlink detaches source from sink iff they are currently linked to each
// other, draining any in-flight buffers via a queue clear.
func Unlink(source *Source, sink *Sink) {
	if source == nil || sink == nil {
		return
	}
	source.mu.Lock()
	sink.mu.Lock()
	linked := source.linkedSink == sink && sink.linkedSource == source
	sink.mu.Unlock()
	source.mu.Unlock()
	if !linked {
		sink.stage.logger.Warn("unlink failed: ports not linked to each other", "source", source.name, "sink", sink.name)
		if sink.stage.bus != nil {
			sink.stage.bus.PostError(sink.stage.Name(), ErrNotLinked)
		}
		return
	}

	sinkEnd := sink.stage.beginReconfiguration()
	sourceEnd := source.stage.beginReconfiguration()

	sink.mu.Lock()
	sink.linkedSource = nil
	shared := sink.shared
	sink.shared = nil
	sink.mu.Unlock()

	source.mu.Lock()
	source.linkedSink = nil
	source.mu.Unlock()

	if shared != nil {
		shared.queue.Clear()
	}

	source.stage.endReconfiguration(sourceEnd)
	sink.stage.endReconfiguration(sinkEnd)
}

// Replace atomically hot-swaps sink's upstream producer from current to
// next, under a single reconfiguration window spanning all three ports'
// stages (sink, then current source, then next source, matching the
// fixed lock order the original uses to avoid deadlock).
func Replace(current, next *Source, sink *Sink) bool {
	if current == nil || next == nil || sink == nil {
		return false
	}
	if current == next {
		return true
	}

	current.mu.Lock()
	sink.mu.Lock()
	linked := current.linkedSink == sink && sink.linkedSource == current
	sink.mu.Unlock()
	current.mu.Unlock()
	if !linked {
		sink.stage.logger.Warn("replace failed: current source not linked to sink", "current", current.name, "sink", sink.name)
		if sink.stage.bus != nil {
			sink.stage.bus.PostError(sink.stage.Name(), ErrNotLinked)
		}
		return false
	}

	sinkEnd := sink.stage.beginReconfiguration()
	currentEnd := current.stage.beginReconfiguration()
	nextEnd := next.stage.beginReconfiguration()

	current.mu.Lock()
	current.linkedSink = nil
	current.mu.Unlock()

	sink.mu.Lock()
	sink.shared = next.shared
	sink.linkedSource = next
	sink.mu.Unlock()

	next.mu.Lock()
	next.linkedSink = sink
	next.mu.Unlock()

	next.stage.endReconfiguration(nextEnd)
	sink.stage.endReconfiguration(sinkEnd)
	current.stage.endReconfiguration(currentEnd)
	return true
}

const defaultQueueCapacity = 2
