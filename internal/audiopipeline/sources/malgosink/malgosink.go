// Package malgosink provides a terminal sink Stage backed by
// gen2brain/malgo, the audio-device dependency the teacher carries in
// its own go.mod. The call sequence here (InitContext, DefaultDeviceConfig,
// DeviceCallbacks, InitDevice) is grounded on
// agalue-sherpa-voice-assistant's playback.go, the pack repo that
// actually exercises this library's playback path.
package malgosink

import (
	"fmt"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/pdeljanov/ayane-go/internal/audiopipeline"
	"github.com/pdeljanov/ayane-go/internal/logging"
)

// Stage is a pure-consumer Stage: one Sink, no Source ports. It owns a
// ClockProvider whose capabilities are fixed at 1 ms..1 s, and on every
// device data callback it pulls one Buffer from its Sink and copies it
// into the device's output slice.
type Stage struct {
	deviceName string
	format     audiopipeline.BufferFormat

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	sink *audiopipeline.Sink

	provider *audiopipeline.ClockProvider
	stage    *audiopipeline.Stage

	logger interface {
		Info(string, ...any)
		Error(string, ...any)
	}
}

// New constructs a playback-sink stage for the given buffer format;
// bufferMs sets the ClockProvider's default callback period. The
// ClockCapabilities are fixed at 1 ms..1 s whatever the device supports.
func New(name string, format audiopipeline.BufferFormat, bufferMs uint32, bus *audiopipeline.MessageBus) (*Stage, error) {
	s := &Stage{
		deviceName: name,
		format:     format,
		logger:     logging.ForService("audiopipeline"),
	}
	s.stage = audiopipeline.NewStage(name, s, bus)
	s.sink = s.stage.AddSink("in")

	s.provider = audiopipeline.NewClockProvider(audiopipeline.ClockCapabilities{
		MinPeriod: time.Millisecond,
		MaxPeriod: time.Second,
	}, time.Duration(bufferMs)*time.Millisecond, bus)

	return s, nil
}

func (s *Stage) AudioPipelineStage() *audiopipeline.Stage   { return s.stage }
func (s *Stage) Sink() *audiopipeline.Sink                  { return s.sink }
func (s *Stage) ClockProvider() *audiopipeline.ClockProvider { return s.provider }

// BeginPlayback opens the malgo context and playback device, wiring the
// device's data callback to pull one Buffer per hardware request.
func (s *Stage) BeginPlayback() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("malgosink: init context: %w", err)
	}
	s.ctx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormatToMalgo(s.format)
	deviceConfig.Playback.Channels = uint32(s.format.ChannelCount())
	deviceConfig.SampleRate = s.format.SampleRate()
	deviceConfig.PeriodSizeInMilliseconds = uint32(s.provider.ClockPeriod() / time.Millisecond)

	callbacks := malgo.DeviceCallbacks{Data: s.onSendFrames}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		s.ctx.Uninit()
		s.ctx.Free()
		return fmt.Errorf("malgosink: init device: %w", err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		s.ctx.Uninit()
		s.ctx.Free()
		return fmt.Errorf("malgosink: start device: %w", err)
	}

	s.logger.Info("malgosink: playback device started", "device", s.deviceName)
	return nil
}

// deviceSampleFormat is the sample format malgo's output buffer is
// always configured with (see sampleFormatToMalgo).
const deviceSampleFormat = audiopipeline.SampleFormatFloat32

// onSendFrames is the malgo device callback: the audio thread's terminal
// pull. It runs entirely on malgo's own callback thread, outside the
// stage's asynchronous processing goroutine. output is malgo's own
// buffer, not ours, so it is wrapped in a RawBuffer rather than copied
// into a pool-owned Buffer: the pipeline's last Buffer is converted (or,
// when formats already match, copied) directly into borrowed storage.
func (s *Stage) onSendFrames(output, _ []byte, frameCount uint32) {
	managed, result := s.sink.Pull()
	if result != audiopipeline.PullSuccess || managed == nil {
		return // silence; device output slice is left zeroed by malgo
	}
	defer managed.Release()

	raw := &audiopipeline.RawBuffer{
		Format:    s.format,
		SampleFmt: deviceSampleFormat,
		Planes:    [][]byte{output},
	}

	buf := managed.Buffer()
	if buf.SampleFormat() == raw.SampleFmt {
		copy(raw.Planes[0], buf.Bytes())
	} else {
		audiopipeline.ConvertBuffer(raw.Planes[0], buf.Bytes(), raw.SampleFmt, buf.SampleFormat())
	}
	raw.SetWriteIndex(frameCount)
	raw.SetReadIndex(raw.WriteIndex())
}

func (s *Stage) StoppedPlayback() {
	if s.device != nil {
		s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	s.logger.Info("malgosink: playback device stopped", "device", s.deviceName)
}

func (s *Stage) Process(ioFlags *audiopipeline.ProcessIOFlags) error {
	// Pure sink: all work happens in the malgo callback, not on the
	// scheduler's goroutine. Hint that we can always buffer more, since
	// the device drives cadence rather than the scheduler's clock.
	*ioFlags |= audiopipeline.ProcessMoreHint
	return nil
}

func (s *Stage) ReconfigureIO() {}

func (s *Stage) ReconfigureInputFormat(sink *audiopipeline.Sink, format audiopipeline.BufferFormat) bool {
	return format.Equal(s.format)
}

func sampleFormatToMalgo(format audiopipeline.BufferFormat) malgo.FormatType {
	return malgo.FormatF32
}
