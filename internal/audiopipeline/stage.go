package audiopipeline

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pdeljanov/ayane-go/internal/logging"
	"github.com/pdeljanov/ayane-go/internal/metrics"
)

// StageState is one of the three lifecycle states a Stage can be in.
type StageState int

const (
	StageDeactivated StageState = iota
	StageActivated
	StagePlaying
)

func (s StageState) String() string {
	switch s {
	case StageDeactivated:
		return "deactivated"
	case StageActivated:
		return "activated"
	case StagePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// ProcessIOFlags is a bitmask a Stage's Process callback can set to hint
// the scheduler about extra buffering opportunities.
type ProcessIOFlags uint32

// ProcessMoreHint lets a pure-sink Stage with internal buffering request
// another process cycle even though it has no sources to report
// backpressure headroom on.
const ProcessMoreHint ProcessIOFlags = 1 << 0

// StageImpl is the set of callbacks a concrete stage (a producer,
// transformer, or consumer) implements. The runtime invokes them
// per the state machine and never concurrently for the same Stage.
type StageImpl interface {
	// BeginPlayback runs once, after synchronicity has been resolved and
	// before any buffers are processed.
	BeginPlayback() error
	// StoppedPlayback runs once, after all in-flight buffers have been
	// processed and the stage's processing has fully quiesced.
	StoppedPlayback()
	// Process performs one unit of work: pulling from sinks, pushing to
	// sources, or both. It may set bits in *ioFlags to hint the
	// scheduler.
	Process(ioFlags *ProcessIOFlags) error
	// ReconfigureIO is invoked after a structural change (link, unlink,
	// replace) completes while the stage was Playing.
	ReconfigureIO()
	// ReconfigureInputFormat is asked whether the stage accepts a new
	// format arriving on sink. Returning false causes the triggering
	// Pull to return PullUnsupportedFormat.
	ReconfigureInputFormat(sink *Sink, format BufferFormat) bool
}

// Stage is the runtime around a StageImpl: it owns the stage's Source
// and Sink ports, resolves and enforces synchronicity, and drives either
// an owned processing goroutine (asynchronous mode) or responds to its
// downstream peer's calls (synchronous mode). Grounded on the original
// Stage/AbstractStage split, collapsed here into a single type with a
// StageImpl hook for the subclass-specific behavior a virtual base class
// would otherwise provide.
type Stage struct {
	name string
	impl StageImpl

	sources map[string]*Source
	sinks   map[string]*Sink

	stateMu sync.Mutex
	state   StageState

	clock           *Clock
	downstreamClock *Clock
	clockProvider   *ClockProvider
	asynchronous    bool

	processingDone chan struct{}
	processingWG   sync.WaitGroup

	bufferQueuesReportedNotFull atomic.Int32

	bus           *MessageBus
	recorder      metrics.Recorder
	logger        *slog.Logger
}

// NewStage constructs a Stage in the Deactivated state, wired to impl
// for its domain-specific callbacks.
func NewStage(name string, impl StageImpl, bus *MessageBus) *Stage {
	return &Stage{
		name:     name,
		impl:     impl,
		sources:  make(map[string]*Source),
		sinks:    make(map[string]*Sink),
		bus:      bus,
		recorder: metrics.Global(),
		logger:   logging.ForService("audiopipeline").With("component", "stage", "stage", name),
	}
}

func (st *Stage) Name() string { return st.name }

func (st *Stage) metrics() metrics.Recorder {
	if st.recorder == nil {
		return metrics.NoopMetrics{}
	}
	return st.recorder
}

// State returns the stage's current lifecycle state.
func (st *Stage) State() StageState {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	return st.state
}

// AddSource registers a new Source named name, only while Deactivated.
func (st *Stage) AddSource(name string) *Source {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	if st.state != StageDeactivated {
		st.logger.Warn("cannot add source unless stage is deactivated", "source", name)
		return nil
	}
	src := newSource(st, name)
	st.sources[name] = src
	return src
}

// AddSink registers a new Sink named name, only while Deactivated.
func (st *Stage) AddSink(name string) *Sink {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	if st.state != StageDeactivated {
		st.logger.Warn("cannot add sink unless stage is deactivated", "sink", name)
		return nil
	}
	sink := newSink(st, name)
	st.sinks[name] = sink
	return sink
}

func (st *Stage) Source(name string) *Source {
	src, ok := st.sources[name]
	if !ok {
		st.logger.Warn("source port not found", "source", name)
		if st.bus != nil {
			st.bus.PostError(st.name, ErrPortNotFound)
		}
		return nil
	}
	return src
}

func (st *Stage) Sink(name string) *Sink {
	sink, ok := st.sinks[name]
	if !ok {
		st.logger.Warn("sink port not found", "sink", name)
		if st.bus != nil {
			st.bus.PostError(st.name, ErrPortNotFound)
		}
		return nil
	}
	return sink
}

func (st *Stage) sourceCount() int { return len(st.sources) }
func (st *Stage) sinkCount() int   { return len(st.sinks) }

// Activate transitions Deactivated -> Activated.
func (st *Stage) Activate() bool {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	if st.state != StageDeactivated {
		return false
	}
	st.state = StageActivated
	st.metrics().RecordStageState(st.name, st.state.String())
	return true
}

// Deactivate transitions Activated -> Deactivated, stopping playback
// first if the stage was Playing.
func (st *Stage) Deactivate() {
	st.stateMu.Lock()
	if st.state == StagePlaying {
		st.stopLocked()
	}
	if st.state == StageActivated {
		for _, src := range st.sources {
			src.Reset()
		}
		for _, sink := range st.sinks {
			sink.Reset()
		}
		st.state = StageDeactivated
		st.metrics().RecordStageState(st.name, st.state.String())
	}
	st.stateMu.Unlock()
}

// resolveSynchronicity implements the §4.5 resolution table: pure sinks
// and multi-source stages always run asynchronously; a lone source runs
// asynchronously if its sink forces it or the downstream stage has more
// than one sink, and synchronously otherwise.
func (st *Stage) resolveSynchronicity() bool {
	if st.sourceCount() == 0 {
		return true
	}
	if st.sourceCount() > 1 {
		return true
	}

	var lone *Source
	for _, src := range st.sources {
		lone = src
	}
	lone.mu.Lock()
	linkedSink := lone.linkedSink
	lone.mu.Unlock()

	if linkedSink == nil {
		return false
	}
	if linkedSink.SchedulingHint() == SchedulingForceAsynchronous {
		return true
	}
	if linkedSink.stage.sinkCount() > 1 {
		return true
	}
	return false
}

// Play transitions Activated -> Playing, resolving synchronicity,
// registering with provider if running asynchronously, and either
// spawning a processing goroutine or waiting to be driven by a
// downstream peer's syncProcessLoop call.
func (st *Stage) Play(provider *ClockProvider) error {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()

	if st.state != StageActivated {
		return ErrInvalidStageTransition
	}

	st.clockProvider = provider
	st.asynchronous = st.resolveSynchronicity()

	mode := SynchronicitySynchronous
	if st.asynchronous {
		mode = SynchronicityAsynchronous
	}
	for _, src := range st.sources {
		src.shared.mu.Lock()
		src.shared.mode = mode
		src.shared.mu.Unlock()
	}

	if err := st.impl.BeginPlayback(); err != nil {
		return err
	}

	if st.asynchronous {
		st.clock = NewClock()
		if provider != nil {
			provider.RegisterClock(st.clock)
		}
		st.startAsyncProcess()
	}

	st.state = StagePlaying
	st.metrics().RecordStageState(st.name, st.state.String())
	return nil
}

// Stop transitions Playing -> Activated.
func (st *Stage) Stop() {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	st.stopLocked()
}

func (st *Stage) stopLocked() {
	if st.state != StagePlaying {
		return
	}
	if st.asynchronous {
		st.stopAsyncProcess()
		if st.clockProvider != nil && st.clock != nil {
			st.clockProvider.DeregisterClock(st.clock)
		}
	}
	st.impl.StoppedPlayback()
	st.clock = nil
	st.downstreamClock = nil
	st.state = StageActivated
	st.metrics().RecordStageState(st.name, st.state.String())
}

// syncProcessLoop is invoked by a downstream peer's synchronous Pull,
// passing the clock that peer resolved as the chain's effective clock
// (its own owned Clock if it runs asynchronously, or the clock it was
// itself handed by its own downstream peer otherwise). It acquires the
// state mutex so no structural change can race a process run, caches
// clock as this stage's own effective clock, and invokes Process exactly
// once.
func (st *Stage) syncProcessLoop(clock *Clock) {
	st.stateMu.Lock()
	defer st.stateMu.Unlock()
	if st.state != StagePlaying {
		st.logger.Warn("attempted synchronous process on non-playing stage")
		return
	}
	st.downstreamClock = clock
	var flags ProcessIOFlags
	if err := st.impl.Process(&flags); err != nil {
		st.reportProcessError(err)
	}
}

// effectiveClock returns the Clock driving this stage's presentation
// time: its own owned Clock in asynchronous mode, or the clock most
// recently passed to syncProcessLoop in synchronous mode. A synchronous
// stage with no asynchronous descendant anywhere downstream has no
// effective clock at all, and returns nil. It does not take stateMu: its
// caller is Sink.Pull, which normally runs inside this stage's own
// Process call, where syncProcessLoop or asyncProcessLoop already holds
// stateMu.
func (st *Stage) effectiveClock() *Clock {
	if st.asynchronous {
		return st.clock
	}
	return st.downstreamClock
}

// startAsyncProcess starts the clock and spawns the asynchronous
// processing goroutine.
func (st *Stage) startAsyncProcess() {
	st.clock.Start()
	st.processingDone = make(chan struct{})
	st.processingWG.Add(1)
	go st.asyncProcessLoop(st.processingDone)
}

func (st *Stage) stopAsyncProcess() {
	if st.clock != nil {
		st.clock.Stop()
	}
	st.processingWG.Wait()
}

// asyncProcessLoop is the asynchronous stage's owned thread, grounded on
// the original Stage::asyncProcessLoop: it runs an extra process cycle
// back-to-back without waiting on the clock whenever every active source
// reported queue headroom, or a sink-only stage hinted it can buffer
// more.
func (st *Stage) asyncProcessLoop(done chan struct{}) {
	defer st.processingWG.Done()
	defer close(done)

	doBufferRun := false
	activeSources := int32(st.sourceCount())

	for doBufferRun || st.clock.Wait() {
		var flags ProcessIOFlags
		st.bufferQueuesReportedNotFull.Store(0)

		st.stateMu.Lock()
		err := st.impl.Process(&flags)
		st.stateMu.Unlock()

		if err != nil {
			st.reportProcessError(err)
		}

		reportedNotFull := st.bufferQueuesReportedNotFull.Load()
		doBufferRun = (reportedNotFull > 0 && reportedNotFull == activeSources) ||
			(flags&ProcessMoreHint != 0 && activeSources == 0)
	}

	st.logger.Info("asynchronous processing goroutine exiting")
}

func (st *Stage) reportBufferQueueIsNotFull() {
	st.bufferQueuesReportedNotFull.Add(1)
}

func (st *Stage) reportProcessError(err error) {
	st.metrics().RecordProcessError(st.name, "process_failed")
	st.logger.Error("stage process failed", "error", err)
	if st.bus != nil {
		st.bus.PostError(st.name, err)
	}
}

func (st *Stage) reconfigureInputFormat(sink *Sink, format BufferFormat) bool {
	return st.impl.ReconfigureInputFormat(sink, format)
}

// reconfigureState is the data captured across a begin/endReconfiguration
// pair, grounded on the original Stage::ReconfigureData.
type reconfigureState struct {
	wasPlaying bool
}

// beginReconfiguration locks the state mutex, preventing any process()
// run from starting until endReconfiguration unlocks it, and records
// whether the stage was Playing.
func (st *Stage) beginReconfiguration() reconfigureState {
	st.stateMu.Lock()
	return reconfigureState{wasPlaying: st.state == StagePlaying}
}

// endReconfiguration runs ReconfigureIO if the stage was Playing when
// beginReconfiguration was called, then releases the state mutex.
func (st *Stage) endReconfiguration(data reconfigureState) {
	if data.wasPlaying {
		st.impl.ReconfigureIO()
	}
	st.stateMu.Unlock()
}
