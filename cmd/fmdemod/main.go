package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/neurlang/specgram/capture"
	"github.com/neurlang/specgram/demod"
	"github.com/neurlang/specgram/internal/config"
	"github.com/neurlang/specgram/internal/logging"
	"github.com/neurlang/specgram/internal/storage"
	"github.com/neurlang/specgram/render"
	"github.com/neurlang/specgram/spectrogram"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	offset     float64
	decimation int
	tau        float64
	gain       float64
	start      int
	end        int
	outFile    string
	specFile   string
	channel    int
	play       bool
)

var rootCmd = &cobra.Command{
	Use:   "fmdemod <capture>",
	Short: "Demodulate a broadcast FM station to WAV",
	Long: `fmdemod shifts one FM station of a complex I/Q capture to DC,
demodulates it and writes the de-emphasised audio as a 16-bit mono WAV file.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args[0], cmd.Flags().Changed("decimation"), cmd.Flags().Changed("end"))
	},
}

func init() {
	rootCmd.Flags().Float64Var(&offset, "offset", 0, "station frequency relative to the capture centre in Hz")
	rootCmd.Flags().IntVar(&decimation, "decimation", 0, "input samples per audio sample (default: nearest to 48 kHz)")
	rootCmd.Flags().Float64Var(&tau, "tau", 75e-6, "de-emphasis time constant in seconds, 0 to disable")
	rootCmd.Flags().Float64Var(&gain, "gain", 1, "audio gain")
	rootCmd.Flags().IntVar(&start, "start", 0, "first sample to demodulate")
	rootCmd.Flags().IntVar(&end, "end", 0, "end of the demodulated samples (default: whole capture)")
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "fm.wav", "output WAV file")
	rootCmd.Flags().StringVar(&specFile, "spectrogram", "", "also write the audio spectrogram to this PNG file")
	rootCmd.Flags().IntVar(&channel, "channel", 0, "channel of a multi-channel capture")
	rootCmd.Flags().BoolVar(&play, "play", false, "play the audio after writing it")
}

func run(ctx context.Context, name string, decimationSet, endSet bool) error {
	var store storage.Store
	if storage.IsURI(name) {
		cfg, err := config.Load(nil, "")
		if err != nil {
			return err
		}
		if store, err = storage.NewS3Store(ctx, cfg.S3); err != nil {
			return err
		}
	}

	c, err := capture.Open(ctx, name, capture.Options{Channel: channel, Store: store})
	if err != nil {
		return err
	}
	defer c.Close()
	if !c.Complex() {
		return fmt.Errorf("%s: FM demodulation needs complex samples", name)
	}

	m := demod.New(c.SampleRate())
	m.Offset = offset
	m.Tau = tau
	m.Gain = gain
	if decimationSet {
		m.Decimation = decimation
	}

	stop := c.Len()
	if endSet {
		stop = end
	}
	x, err := c.Slice(start, stop)
	if err != nil {
		return err
	}
	audio, err := m.Demodulate(x)
	if err != nil {
		return err
	}

	rate := int(math.Round(m.AudioRate()))
	if err := writeWAV(outFile, audio, rate); err != nil {
		return err
	}
	log.Info().
		Str("capture", name).
		Float64("offset", offset).
		Int("audio_rate", rate).
		Int("audio_samples", len(audio)).
		Str("out", outFile).
		Msg("demodulated")

	if specFile != "" {
		s := spectrogram.New()
		s.NFFT = 2048
		s.Overlap = 1024
		res, err := s.ComputeReal(audio, m.AudioRate())
		if err != nil {
			return err
		}
		img, err := render.New().Image(res)
		if err != nil {
			return err
		}
		if err := render.SavePNG(specFile, img); err != nil {
			return err
		}
	}

	if play {
		log.Info().Dur("duration", time.Duration(float64(len(audio))/m.AudioRate()*float64(time.Second))).Msg("playing")
		return playAudio(ctx, audio, rate)
	}
	return nil
}

func writeWAV(name string, audio []float64, rate int) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := demod.WriteWAV(f, audio, rate); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func main() {
	if err := logging.Setup("info", true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("fmdemod failed")
		os.Exit(1)
	}
}
