package audiopipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkUnlinkRoundTrip(t *testing.T) {
	producer := newTestStage("producer")
	consumer := newTestStage("consumer")
	src := producer.AddSource("out")
	sink := consumer.AddSink("in")

	require.True(t, Link(src, sink))
	assert.True(t, src.IsLinked())
	assert.True(t, sink.IsLinked())

	// Linking an already-linked source must fail.
	other := consumer.AddSink("in2")
	assert.False(t, Link(src, other))

	Unlink(src, sink)
	assert.False(t, src.IsLinked())
	assert.False(t, sink.IsLinked())
}

func TestReplaceSwapsUpstreamProducer(t *testing.T) {
	producerA := newTestStage("producerA")
	producerB := newTestStage("producerB")
	consumer := newTestStage("consumer")

	srcA := producerA.AddSource("out")
	srcB := producerB.AddSource("out")
	sink := consumer.AddSink("in")

	require.True(t, Link(srcA, sink))
	require.True(t, Replace(srcA, srcB, sink))

	assert.False(t, srcA.IsLinked())
	assert.True(t, srcB.IsLinked())
	assert.True(t, sink.IsLinked())
}

func TestReplaceFailsWhenCurrentNotActuallyLinked(t *testing.T) {
	producerA := newTestStage("producerA")
	producerB := newTestStage("producerB")
	consumer := newTestStage("consumer")

	srcA := producerA.AddSource("out")
	srcB := producerB.AddSource("out")
	sink := consumer.AddSink("in")

	assert.False(t, Replace(srcA, srcB, sink))
}

func TestSourcePushAndSinkPullSynchronousLink(t *testing.T) {
	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), 2)

	var processCalls int
	var producer *Stage
	producerImpl := &noopStageImpl{processFn: func(flags *ProcessIOFlags) error {
		processCalls++
		producer.Source("out").Push(pool.Acquire())
		return nil
	}}
	producer = NewStage("producer", producerImpl, nil)
	consumer := newTestStage("consumer")

	src := producer.AddSource("out")
	sink := consumer.AddSink("in")
	require.True(t, Link(src, sink))

	require.True(t, producer.Activate())
	require.True(t, consumer.Activate())
	require.NoError(t, producer.Play(nil))
	require.NoError(t, consumer.Play(nil))
	defer func() { producer.Stop(); consumer.Stop() }()

	// Synchronous link: the queue starts empty, so Pull must drive the
	// upstream stage's synchronous process loop directly to produce a
	// buffer before popping it.
	result, status := sink.Pull()
	require.Equal(t, PullSuccess, status)
	require.NotNil(t, result)
	assert.Equal(t, 1, processCalls)
	result.Release()
}

func TestSourcePushFailsWhenQueueFull(t *testing.T) {
	producer := newTestStage("producer")
	consumer := newTestStage("consumer")
	src := producer.AddSource("out")
	sink := consumer.AddSink("in")
	require.True(t, Link(src, sink))

	pool := NewBufferPool("test", SampleFormatFloat32, NewBufferFormat(ChannelSetMono, 48000), Frames(64), defaultQueueCapacity+1)

	for i := 0; i < defaultQueueCapacity; i++ {
		require.True(t, src.Push(pool.Acquire()))
	}
	assert.False(t, src.Push(pool.Acquire()), "push beyond link capacity must fail")
}
