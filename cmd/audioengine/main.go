// Command audioengine is a small diagnostic/demo CLI over the core
// engine: list devices, play a test tone, and run offline EQ matching.
// Grounded on the teacher's cmd/main.go signal-driven shutdown wiring,
// using cobra subcommands for device listing, tone playback, and offline
// EQ matching.
package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/le-bot-team/audioengine/internal/backend"
	"github.com/le-bot-team/audioengine/internal/device"
	"github.com/le-bot-team/audioengine/internal/engine"
	"github.com/le-bot-team/audioengine/internal/spectral"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "audioengine",
		Short: "Diagnostic CLI for the audio engine core",
	}
	root.AddCommand(newDevicesCmd(), newToneCmd(), newEQMatchCmd())
	return root
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List output and input devices from the resolved backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(backend.New(), nil)
			defer eng.Dispose()

			cfg := device.DefaultConfig()
			if err := eng.Initialize(cfg); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			outputs, err := eng.ListOutputDevices()
			if err != nil {
				return fmt.Errorf("list output devices: %w", err)
			}
			fmt.Println("Output devices:")
			for _, d := range outputs {
				printDevice(d)
			}

			inputs, err := eng.ListInputDevices()
			if err != nil {
				return fmt.Errorf("list input devices: %w", err)
			}
			fmt.Println("Input devices:")
			for _, d := range inputs {
				printDevice(d)
			}
			return nil
		},
	}
}

func printDevice(d device.Descriptor) {
	marker := " "
	if d.IsDefault {
		marker = "*"
	}
	fmt.Printf("  %s %-20s %-12s in=%d out=%d state=%s\n", marker, d.Name, d.APIName, d.MaxInputChannels, d.MaxOutputChannels, d.State)
}

func newToneCmd() *cobra.Command {
	var seconds int
	var freq float64

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a test tone through the default output device",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng := engine.New(backend.New(), nil)
			defer eng.Dispose()

			cfg := device.DefaultConfig()
			if err := eng.Initialize(cfg); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			if err := eng.Start(); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			defer eng.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			n := cfg.SampleRate * seconds
			chunk := cfg.FramesPerBuffer * cfg.Channels
			samples := make([]float32, chunk)

			var phase float64
			step := 2 * math.Pi * freq / float64(cfg.SampleRate)

			sent := 0
			for sent < n {
				select {
				case <-sigCh:
					return nil
				default:
				}

				for i := 0; i < len(samples); i += cfg.Channels {
					v := float32(0.2 * math.Sin(phase))
					phase += step
					for c := 0; c < cfg.Channels; c++ {
						samples[i+c] = v
					}
				}
				if err := eng.Send(samples); err != nil {
					return fmt.Errorf("send: %w", err)
				}
				sent += cfg.FramesPerBuffer
				time.Sleep(time.Duration(cfg.FramesPerBuffer) * time.Second / time.Duration(cfg.SampleRate))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&seconds, "seconds", 3, "duration of the test tone")
	cmd.Flags().Float64Var(&freq, "freq", 440, "frequency of the test tone in Hz")
	return cmd
}

func newEQMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eq-match <source.wav> <target.wav> <out.wav>",
		Short: "Match source's spectrum and loudness toward target, writing out",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := spectral.ProcessEQMatching(args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[2])
			return nil
		},
	}
	return cmd
}
