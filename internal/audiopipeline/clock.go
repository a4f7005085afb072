package audiopipeline

import (
	"sync"
	"time"
)

// Clock is the shared presentation-time authority a Stage's asynchronous
// processing thread blocks on. Grounded on the original clock.h/Clock:
// pipeline time advances independently of presentation time; Wait blocks
// while there is no pending delta and the clock is running, and wakes on
// either a delta becoming pending or the clock stopping.
type Clock struct {
	mu sync.Mutex
	cv *sync.Cond

	started bool

	pipelineTime     time.Duration
	presentationTime time.Duration
	deltaTime        time.Duration
	pendingDelta     time.Duration
}

// NewClock constructs a stopped clock with zero time.
func NewClock() *Clock {
	c := &Clock{}
	c.cv = sync.NewCond(&c.mu)
	return c
}

// Start transitions the clock to running, releasing any goroutine
// blocked in Wait.
func (c *Clock) Start() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	c.cv.Broadcast()
}

// Stop transitions the clock to stopped, releasing any goroutine blocked
// in Wait (which will observe started == false and return false).
func (c *Clock) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
	c.cv.Broadcast()
}

// Started reports whether the clock is currently running.
func (c *Clock) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// AdvancePresentation stores delta as a pending advance and wakes any
// waiter; the next Wait to run consumes it.
func (c *Clock) AdvancePresentation(delta time.Duration) {
	c.mu.Lock()
	c.pendingDelta = delta
	c.mu.Unlock()
	c.cv.Broadcast()
}

// AdvancePipeline adjusts pipelineTime only; it never wakes a waiter.
func (c *Clock) AdvancePipeline(delta time.Duration) {
	c.mu.Lock()
	c.pipelineTime += delta
	c.mu.Unlock()
}

// Reset sets a pending delta equal to t - presentationTime, so the next
// Wait jumps presentation time directly to t.
func (c *Clock) Reset(t time.Duration) {
	c.mu.Lock()
	c.pendingDelta = t - c.presentationTime
	c.mu.Unlock()
	c.cv.Broadcast()
}

// Wait blocks while pendingDelta == 0 && started. When released, it
// consumes one pending delta (if any) and returns whether the clock is
// still started.
func (c *Clock) Wait() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingDelta == 0 && c.started {
		c.cv.Wait()
	}
	if c.pendingDelta != 0 {
		c.deltaTime = c.pendingDelta
		c.presentationTime += c.pendingDelta
		c.pendingDelta = 0
	}
	return c.started
}

// PipelineTime reports the sum of all AdvancePipeline deltas so far;
// PresentationTime and DeltaTime report the clock's state as of the last
// completed Wait.
func (c *Clock) PipelineTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipelineTime
}

func (c *Clock) PresentationTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presentationTime
}

func (c *Clock) DeltaTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deltaTime
}

// ClockObserver is a read-only projection of a Clock: mutation methods
// are no-ops by contract, matching the original's make_observer design
// where an observer cannot drive the clock it watches.
type ClockObserver struct {
	clock *Clock
}

func (c *Clock) MakeObserver() *ClockObserver {
	return &ClockObserver{clock: c}
}

func (o *ClockObserver) Started() bool                    { return o.clock.Started() }
func (o *ClockObserver) PipelineTime() time.Duration       { return o.clock.PipelineTime() }
func (o *ClockObserver) PresentationTime() time.Duration  { return o.clock.PresentationTime() }
func (o *ClockObserver) DeltaTime() time.Duration         { return o.clock.DeltaTime() }

// Start, Stop, AdvancePresentation, AdvancePipeline and Reset are no-ops
// on an observer; it cannot drive the clock it watches.
func (o *ClockObserver) Start()                                {}
func (o *ClockObserver) Stop()                                 {}
func (o *ClockObserver) AdvancePresentation(time.Duration)     {}
func (o *ClockObserver) AdvancePipeline(time.Duration)         {}
func (o *ClockObserver) Reset(time.Duration)                   {}

// ClockCapabilities describes the callback period range a ClockProvider
// (typically a hardware backend) can honor.
type ClockCapabilities struct {
	MinPeriod time.Duration
	MaxPeriod time.Duration
}

// ClockProvider fans external time ticks (e.g. hardware device
// callbacks) out to every Clock subscribed to it, in registration order,
// and validates requested callback periods against its capabilities.
type ClockProvider struct {
	capabilities ClockCapabilities

	mu     sync.Mutex
	period time.Duration
	clocks []*Clock

	bus *MessageBus
}

// NewClockProvider constructs a provider with the given capabilities and
// default period. The default must lie within [MinPeriod, MaxPeriod]. bus
// may be nil; when set, a rejected SetClockPeriod call is also posted
// there as ErrClockPeriodOutOfRange.
func NewClockProvider(capabilities ClockCapabilities, defaultPeriod time.Duration, bus *MessageBus) *ClockProvider {
	return &ClockProvider{capabilities: capabilities, period: defaultPeriod, bus: bus}
}

// clockProviderTag is the Stage name used when a ClockProvider (which
// has no Stage of its own) posts to the message bus.
const clockProviderTag = "clock_provider"

func (p *ClockProvider) Capabilities() ClockCapabilities {
	return p.capabilities
}

func (p *ClockProvider) ClockPeriod() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.period
}

// SetClockPeriod succeeds iff the requested period lies within the
// provider's capabilities.
func (p *ClockProvider) SetClockPeriod(period time.Duration) bool {
	if period < p.capabilities.MinPeriod || period > p.capabilities.MaxPeriod {
		if p.bus != nil {
			p.bus.PostError(clockProviderTag, ErrClockPeriodOutOfRange)
		}
		return false
	}
	p.mu.Lock()
	p.period = period
	p.mu.Unlock()
	return true
}

// RegisterClock subscribes a Clock to this provider's Publish calls.
func (p *ClockProvider) RegisterClock(c *Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clocks = append(p.clocks, c)
}

// DeregisterClock unsubscribes a previously registered Clock.
func (p *ClockProvider) DeregisterClock(c *Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.clocks {
		if existing == c {
			p.clocks = append(p.clocks[:i], p.clocks[i+1:]...)
			return
		}
	}
}

// Publish forwards AdvancePresentation(time) to every subscribed Clock,
// in registration order.
func (p *ClockProvider) Publish(delta time.Duration) {
	p.mu.Lock()
	clocks := make([]*Clock, len(p.clocks))
	copy(clocks, p.clocks)
	p.mu.Unlock()

	for _, c := range clocks {
		c.AdvancePresentation(delta)
	}
}
