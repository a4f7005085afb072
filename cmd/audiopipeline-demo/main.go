// Command audiopipeline-demo wires a small wavfile -> gain -> malgosink
// graph and drives it to completion, exercising the audiopipeline
// package end to end against a real playback device.
package main

import (
	"fmt"
	"os"

	"github.com/pdeljanov/ayane-go/cmd/audiopipeline-demo/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
