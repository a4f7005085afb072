package audiopipeline

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdeljanov/ayane-go/internal/logging"
)

// Pipeline is a thin façade over a set of Stages sharing one MessageBus
// and ClockProvider, supplementing the core spec with the convenience
// wiring the original_source/ implementation calls a "Pipeline" — a
// vector of owned stages plus bulk play/stop. Not part of the Stage/Port
// core itself; every operation here is expressible directly via Stage
// and port.go, this just saves callers the bookkeeping.
type Pipeline struct {
	stages   []*Stage
	bus      *MessageBus
	provider *ClockProvider
	logger   interface {
		Info(string, ...any)
		Error(string, ...any)
	}
}

// NewPipeline constructs an empty pipeline with its own message bus and
// the given clock provider (typically owned by a terminal sink backend).
func NewPipeline(provider *ClockProvider) *Pipeline {
	return &Pipeline{
		bus:      NewMessageBus(),
		provider: provider,
		logger:   logging.ForService("audiopipeline"),
	}
}

// Bus returns the pipeline's shared message bus, for subscribing to
// Error/Warning/Trace/... notifications.
func (p *Pipeline) Bus() *MessageBus { return p.bus }

// AddStage registers an already-constructed Stage with the pipeline. The
// caller remains responsible for adding its ports and linking it before
// calling Play.
func (p *Pipeline) AddStage(s *Stage) {
	p.stages = append(p.stages, s)
}

// ActivateAll activates every owned stage, stopping at the first
// failure.
func (p *Pipeline) ActivateAll() bool {
	for _, s := range p.stages {
		if !s.Activate() {
			return false
		}
	}
	return true
}

// Play activates (if needed) and plays every owned stage.
func (p *Pipeline) Play() error {
	for _, s := range p.stages {
		if s.State() == StageDeactivated {
			s.Activate()
		}
	}
	for _, s := range p.stages {
		if err := s.Play(p.provider); err != nil {
			return err
		}
	}
	return nil
}

// Stop fans Stage.Stop out across every owned stage concurrently via
// errgroup and waits for all of them. Stage.Stop reports no error, so
// Stop always returns nil; a panic in a stop callback is not recovered.
// Grounded on golang.org/x/sync/errgroup's fan-out-and-join pattern.
func (p *Pipeline) Stop() error {
	var g errgroup.Group
	for _, s := range p.stages {
		stage := s
		g.Go(func() error {
			stage.Stop()
			return nil
		})
	}
	return g.Wait()
}

// Shutdown stops every stage and drains the message bus.
func (p *Pipeline) Shutdown() error {
	err := p.Stop()
	p.bus.Shutdown()
	return err
}

// WaitForEndOfStream blocks until an EndOfStream message for the named
// stage is observed on the bus, or timeout elapses.
func (p *Pipeline) WaitForEndOfStream(stageName string, timeout time.Duration) bool {
	done := make(chan struct{})
	p.bus.Subscribe(MessageEndOfStream, func(m Message) {
		if m.Stage == stageName {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
