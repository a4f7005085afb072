package cmd

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"
)

// devicesCommand lists the playback devices malgo can see on this host,
// using the same InitContext call malgosink.Stage.BeginPlayback makes,
// so a misconfigured or missing audio backend shows up here before run
// ever tries to open a device.
func devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available playback devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
			if err != nil {
				return fmt.Errorf("init audio context: %w", err)
			}
			defer func() {
				ctx.Uninit()
				ctx.Free()
			}()

			infos, err := ctx.Devices(malgo.Playback)
			if err != nil {
				return fmt.Errorf("enumerate playback devices: %w", err)
			}

			if len(infos) == 0 {
				fmt.Println("no playback devices found")
				return nil
			}
			for i, info := range infos {
				fmt.Printf("%d: %s\n", i, info.Name())
			}
			return nil
		},
	}
}
