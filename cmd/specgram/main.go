package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neurlang/specgram/internal/config"
	"github.com/neurlang/specgram/internal/logging"
	"github.com/neurlang/specgram/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "specgram",
		Short: "Render the spectrogram of a radio capture",
		Long: `specgram loads a SigMF, WAV or FLAC capture, computes its power
spectral density over time and writes the result as a PNG image or shows it
in the browser.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, cfg.Log.Pretty); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := pipeline.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames x %d bins, peak %.0f Hz -> %s\n",
				report.Capture.Path, report.Frames, report.Bins, report.PeakHz, report.Output)
			return nil
		},
	}
	config.Flags(cmd.Flags())
	cmd.Flags().StringVar(&configFile, "config", "", "config file (default ./specgram.yaml)")
	return cmd
}

func main() {
	if err := logging.Setup("info", true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("specgram failed")
		os.Exit(1)
	}
}
