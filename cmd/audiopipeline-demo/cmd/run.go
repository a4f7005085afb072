package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdeljanov/ayane-go/internal/audiopipeline"
	"github.com/pdeljanov/ayane-go/internal/audiopipeline/processors/gain"
	"github.com/pdeljanov/ayane-go/internal/audiopipeline/sources/malgosink"
	"github.com/pdeljanov/ayane-go/internal/audiopipeline/sources/wavfile"
)

// runCommand wires a wavfile source through a gain stage into a malgosink
// playback sink and drives the pipeline until end of stream or an
// interrupt signal, grounded on the teacher's cmd/file/file.go signal
// handling shape.
func runCommand() *cobra.Command {
	var gainLinear float64
	var bufferMs uint32

	cmd := &cobra.Command{
		Use:   "run [input.wav]",
		Short: "Play a WAV file through a wavfile -> gain -> malgosink graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
			go func() {
				<-sigChan
				fmt.Println("received interrupt, shutting down")
				cancel()
			}()

			return runGraph(ctx, args[0], float32(gainLinear), bufferMs)
		},
	}

	cmd.SilenceUsage = true
	cmd.Flags().Float64Var(&gainLinear, "gain", 1.0, "Linear gain applied before playback")
	cmd.Flags().Uint32Var(&bufferMs, "buffer-ms", 20, "Playback device callback period in milliseconds")

	return cmd
}

func runGraph(ctx context.Context, path string, gainLinear float32, bufferMs uint32) error {
	// The bus is owned by this graph, not by the Pipeline façade below:
	// the sink's ClockProvider has to exist before the Pipeline does (the
	// Pipeline takes it at construction), but every stage still needs a
	// bus handed to it at its own construction, so one bus is built here
	// and threaded through every stage constructor directly.
	bus := audiopipeline.NewMessageBus()
	defer bus.Shutdown()

	source, err := wavfile.New("wavfile", path, 1024, bus)
	if err != nil {
		return fmt.Errorf("open wav source: %w", err)
	}
	format := source.Format()

	gainStage := gain.New("gain", format, gainLinear, bus)

	sink, err := malgosink.New("playback", format, bufferMs, bus)
	if err != nil {
		return fmt.Errorf("open playback sink: %w", err)
	}

	if !audiopipeline.Link(source.Source(), gainStage.Sink()) {
		return fmt.Errorf("link wavfile source to gain sink")
	}
	if !audiopipeline.Link(gainStage.Source(), sink.Sink()) {
		return fmt.Errorf("link gain source to playback sink")
	}

	pipeline := audiopipeline.NewPipeline(sink.ClockProvider())
	pipeline.AddStage(source.AudioPipelineStage())
	pipeline.AddStage(gainStage.AudioPipelineStage())
	pipeline.AddStage(sink.AudioPipelineStage())

	pipeline.ActivateAll()
	if err := pipeline.Play(); err != nil {
		return fmt.Errorf("play pipeline: %w", err)
	}

	done := make(chan struct{})
	bus.Subscribe(audiopipeline.MessageEndOfStream, func(m audiopipeline.Message) {
		if m.Stage == "wavfile" {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-ctx.Done():
	case <-done:
		fmt.Println("end of stream")
	}

	return pipeline.Stop()
}
