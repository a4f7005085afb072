package audiopipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelinePlayActivatesDeactivatedStages(t *testing.T) {
	p := NewPipeline(nil)
	st := newTestStage("s")
	p.AddStage(st)

	require.NoError(t, p.Play())
	assert.Equal(t, StagePlaying, st.State())

	require.NoError(t, p.Shutdown())
	assert.Equal(t, StageActivated, st.State())
}

func TestPipelineStopFansOutAcrossStages(t *testing.T) {
	p := NewPipeline(nil)
	a := newTestStage("a")
	b := newTestStage("b")
	p.AddStage(a)
	p.AddStage(b)

	require.NoError(t, p.Play())
	require.NoError(t, p.Stop())

	assert.Equal(t, StageActivated, a.State())
	assert.Equal(t, StageActivated, b.State())
	p.Bus().Shutdown()
}

func TestPipelineWaitForEndOfStreamObservesMatchingStage(t *testing.T) {
	p := NewPipeline(nil)
	defer p.Bus().Shutdown()

	result := make(chan bool, 1)
	go func() { result <- p.WaitForEndOfStream("source", time.Second) }()

	time.Sleep(50 * time.Millisecond)
	p.Bus().PostEndOfStream("source")

	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForEndOfStream did not observe the posted message")
	}
}

func TestPipelineWaitForEndOfStreamTimesOutOnNoMatch(t *testing.T) {
	p := NewPipeline(nil)
	defer p.Bus().Shutdown()

	assert.False(t, p.WaitForEndOfStream("never-posted", 50*time.Millisecond))
}
