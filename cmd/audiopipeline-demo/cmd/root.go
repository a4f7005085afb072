// Package cmd holds the audiopipeline-demo CLI's cobra command tree,
// grounded on the teacher's cmd/root.go.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pdeljanov/ayane-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "audiopipeline-demo",
		Short: "Drive a small wavfile -> gain -> malgosink audiopipeline graph",
	}

	var logDir string
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for structured log output (empty disables file logging)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		opts := logging.DefaultOptions()
		if logDir != "" {
			opts.LogDir = logDir
		} else {
			opts.StructuredLogFile = ""
		}
		logging.Init(opts)
		return nil
	}

	rootCmd.AddCommand(runCommand(), devicesCommand())
	return rootCmd
}
