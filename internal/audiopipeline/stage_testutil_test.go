package audiopipeline

// noopStageImpl is a minimal StageImpl for exercising Stage/Source/Sink
// plumbing in tests without any real audio processing.
type noopStageImpl struct {
	processFn func(*ProcessIOFlags) error
}

func (n *noopStageImpl) BeginPlayback() error    { return nil }
func (n *noopStageImpl) StoppedPlayback()        {}
func (n *noopStageImpl) ReconfigureIO()          {}
func (n *noopStageImpl) ReconfigureInputFormat(*Sink, BufferFormat) bool {
	return true
}
func (n *noopStageImpl) Process(flags *ProcessIOFlags) error {
	if n.processFn != nil {
		return n.processFn(flags)
	}
	return nil
}

func newTestStage(name string) *Stage {
	return NewStage(name, &noopStageImpl{}, nil)
}
