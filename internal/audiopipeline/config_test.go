package audiopipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig("does-not-exist", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, defaultQueueCapacity, cfg.DefaultPort.QueueCapacity)
	assert.False(t, cfg.DefaultPort.ForceAsync)
	assert.Equal(t, time.Millisecond, cfg.ClockMinPeriod)
	assert.Equal(t, time.Second, cfg.ClockMaxPeriod)
}

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	contents := `
default_port:
  queue_capacity: 8
  force_async: true
pools:
  - name: "playback"
    sample_format: "f32"
    sample_rate: 48000
    channel_layout: "stereo"
    frame_length: 512
    preallocate: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.yaml"), []byte(contents), 0o644))

	cfg, err := LoadConfig("pipeline", dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.DefaultPort.QueueCapacity)
	assert.True(t, cfg.DefaultPort.ForceAsync)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "playback", cfg.Pools[0].Name)
	assert.Equal(t, uint32(48000), cfg.Pools[0].SampleRate)

	// Values not present in the file must still fall back to defaults.
	assert.Equal(t, time.Millisecond, cfg.ClockMinPeriod)
}

func TestParseSampleFormatAndChannelLayout(t *testing.T) {
	fmt32, err := ParseSampleFormat("f32")
	require.NoError(t, err)
	assert.Equal(t, SampleFormatFloat32, fmt32)

	_, err = ParseSampleFormat("bogus")
	assert.Error(t, err)

	stereo, err := ParseChannelLayout("stereo")
	require.NoError(t, err)
	assert.Equal(t, ChannelSetStereo, stereo)

	_, err = ParseChannelLayout("bogus")
	assert.Error(t, err)
}
