// Package wavfile provides a producer Stage that decodes a WAV file into
// Buffers of a negotiated BufferFormat, exercising the go-audio/wav and
// go-audio/audio dependencies the teacher carries in its root module
// (used there by birdnet.go's readAudioData) on the pure-producer path
// of the pipeline.
package wavfile

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pdeljanov/ayane-go/internal/audiopipeline"
	"github.com/pdeljanov/ayane-go/internal/logging"
)

// Stage decodes path into a single Source port, one Buffer per
// decode step, tagging the final Buffer with FlagEndOfStream. It has no
// sinks: it is a pure producer.
type Stage struct {
	name       string
	path       string
	framesStep uint32

	file    *os.File
	decoder *wav.Decoder
	pool    *audiopipeline.BufferPool
	format  audiopipeline.BufferFormat
	bus     *audiopipeline.MessageBus

	source *audiopipeline.Source
	stage  *audiopipeline.Stage
}

// New opens path, reads its WAV header to determine the format, and
// returns a Stage ready to be added to a Pipeline (the caller still
// needs to pull its returned *audiopipeline.Stage.Activate()/Play()).
// framesPerBuffer controls the size of each decoded Buffer.
func New(name, path string, framesPerBuffer uint32, bus *audiopipeline.MessageBus) (*Stage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavfile: open %s: %w", path, err)
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("wavfile: %s is not a valid WAV file", path)
	}

	channels := audiopipeline.ChannelSetMono
	if decoder.NumChans == 2 {
		channels = audiopipeline.ChannelSetStereo
	} else if decoder.NumChans > 2 {
		file.Close()
		return nil, fmt.Errorf("wavfile: unsupported channel count %d", decoder.NumChans)
	}

	format := audiopipeline.NewBufferFormat(channels, uint32(decoder.SampleRate))

	w := &Stage{
		name:       name,
		path:       path,
		framesStep: framesPerBuffer,
		file:       file,
		decoder:    decoder,
		format:     format,
		bus:        bus,
	}
	w.pool = audiopipeline.NewBufferPool(name+"-pool", audiopipeline.SampleFormatFloat32, format, audiopipeline.Frames(framesPerBuffer), 2)
	w.stage = audiopipeline.NewStage(name, w, bus)
	w.source = w.stage.AddSource("out")

	return w, nil
}

// AudioPipelineStage returns the underlying runtime Stage so the caller
// can add it to a Pipeline, link its Source, and drive the lifecycle.
func (w *Stage) AudioPipelineStage() *audiopipeline.Stage { return w.stage }
func (w *Stage) Source() *audiopipeline.Source            { return w.source }

// Format returns the BufferFormat decoded from the WAV header, letting
// callers size downstream stages before any Buffer has flowed.
func (w *Stage) Format() audiopipeline.BufferFormat { return w.format }

func (w *Stage) BeginPlayback() error {
	logging.ForService("audiopipeline").Info("wavfile: begin playback", "path", w.path)
	return nil
}

func (w *Stage) StoppedPlayback() {
	if w.file != nil {
		w.file.Close()
	}
}

// Process decodes one step of PCM data and pushes it as a Buffer onto
// the Source, converting go-audio's int samples to float32 the way the
// teacher's readAudioData does (divisor keyed off bit depth).
func (w *Stage) Process(ioFlags *audiopipeline.ProcessIOFlags) error {
	divisor, err := bitDepthDivisor(w.decoder.BitDepth)
	if err != nil {
		return err
	}

	intBuf := &goaudio.IntBuffer{
		Data:   make([]int, int(w.framesStep)*w.format.ChannelCount()),
		Format: &goaudio.Format{SampleRate: int(w.format.SampleRate()), NumChannels: w.format.ChannelCount()},
	}

	n, err := w.decoder.PCMBuffer(intBuf)
	if err != nil {
		return fmt.Errorf("wavfile: decode: %w", err)
	}

	managed := w.pool.Acquire()
	buf := managed.Buffer()
	frames := uint32(n / w.format.ChannelCount())

	data := buf.Bytes()
	for i := 0; i < n; i++ {
		sample := float32(intBuf.Data[i]) / divisor
		putFloat32(data, i, sample)
	}
	buf.SetWriteIndex(frames)

	if n == 0 {
		buf.SetFlags(audiopipeline.FlagEndOfStream)
		if w.bus != nil {
			w.bus.PostEndOfStream(w.name)
		}
	}

	w.source.Push(managed)
	return nil
}

func (w *Stage) ReconfigureIO() {}

func (w *Stage) ReconfigureInputFormat(sink *audiopipeline.Sink, format audiopipeline.BufferFormat) bool {
	return false // pure producer, no sinks
}

func bitDepthDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("wavfile: unsupported bit depth %d", bitDepth)
	}
}

func putFloat32(data []byte, index int, v float32) {
	const stride = 4
	off := index * stride
	bits := math.Float32bits(v)
	data[off] = byte(bits)
	data[off+1] = byte(bits >> 8)
	data[off+2] = byte(bits >> 16)
	data[off+3] = byte(bits >> 24)
}
