package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/neurlang/specgram/capture"
	"github.com/neurlang/specgram/internal/config"
	"github.com/neurlang/specgram/internal/logging"
	"github.com/neurlang/specgram/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

var (
	outputFormat string
	showStats    bool
	sampleLimit  int
	channel      int
	verify       bool
)

// Stats summarises sample magnitudes.
type Stats struct {
	Samples int     `json:"samples" yaml:"samples"`
	Mean    float64 `json:"mean" yaml:"mean"`
	StdDev  float64 `json:"std_dev" yaml:"std_dev"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	// RMS is the root mean square level relative to full scale.
	RMS float64 `json:"rms_dbfs" yaml:"rms_dbfs"`
	// DC is the mean sample, which should be near zero for clean I/Q.
	DCReal float64 `json:"dc_real" yaml:"dc_real"`
	DCImag float64 `json:"dc_imag" yaml:"dc_imag"`
}

// Summary is everything sigmfinfo reports.
type Summary struct {
	capture.Info `yaml:",inline"`
	Duration     float64 `json:"duration" yaml:"duration"`
	Stats        *Stats  `json:"stats,omitempty" yaml:"stats,omitempty"`
}

var rootCmd = &cobra.Command{
	Use:   "sigmfinfo <capture>",
	Short: "Display the metadata of a radio capture",
	Long: `sigmfinfo shows the metadata of a SigMF, WAV or FLAC capture and can
summarise its samples.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var store storage.Store
		if storage.IsURI(args[0]) {
			cfg, err := config.Load(nil, "")
			if err != nil {
				return err
			}
			if store, err = storage.NewS3Store(ctx, cfg.S3); err != nil {
				return err
			}
		}

		c, err := capture.Open(ctx, args[0], capture.Options{Channel: channel, Verify: verify, Store: store})
		if err != nil {
			return err
		}
		defer c.Close()

		s, err := summarize(c, showStats, sampleLimit)
		if err != nil {
			return err
		}
		return write(cmd.OutOrStdout(), s, outputFormat)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format (table, json, yaml)")
	rootCmd.Flags().BoolVar(&showStats, "stats", false, "show statistics of the sample magnitudes")
	rootCmd.Flags().IntVarP(&sampleLimit, "limit", "l", 1_000_000, "number of samples to include in statistics, 0 for all")
	rootCmd.Flags().IntVar(&channel, "channel", 0, "channel of a multi-channel capture")
	rootCmd.Flags().BoolVar(&verify, "verify", false, "verify the capture checksum")
}

func summarize(c capture.Capture, withStats bool, limit int) (*Summary, error) {
	info := c.Info()
	s := &Summary{Info: info, Duration: info.Duration().Seconds()}
	if !withStats || c.Len() == 0 {
		return s, nil
	}

	n := c.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	x, err := c.Slice(0, n)
	if err != nil {
		return nil, err
	}

	mags := make([]float64, n)
	re := make([]float64, n)
	im := make([]float64, n)
	for i, v := range x {
		mags[i] = cmplx.Abs(v)
		re[i], im[i] = real(v), imag(v)
	}
	mean, std := stat.MeanStdDev(mags, nil)
	power := floats.Dot(mags, mags) / float64(n)
	s.Stats = &Stats{
		Samples: n,
		Mean:    mean,
		StdDev:  std,
		Min:     floats.Min(mags),
		Max:     floats.Max(mags),
		RMS:     10 * math.Log10(math.Max(power, 1e-30)),
		DCReal:  stat.Mean(re, nil),
		DCImag:  stat.Mean(im, nil),
	}
	return s, nil
}

func write(w io.Writer, s *Summary, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		return writeTable(w, s)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeTable(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	row := func(k string, v any) { fmt.Fprintf(tw, "%s\t%v\n", k, v) }

	row("Path", s.Path)
	row("Format", s.Format)
	row("Datatype", s.Datatype)
	row("Sample rate", fmt.Sprintf("%.0f Hz", s.SampleRate))
	row("Samples", s.Samples)
	row("Duration", fmt.Sprintf("%.3f s", s.Duration))
	row("Complex", s.Complex)
	if s.Frequency != 0 {
		row("Frequency", fmt.Sprintf("%.0f Hz", s.Frequency))
	}
	if s.Start != nil {
		row("Start", s.Start.UTC().Format("2006-01-02 15:04:05.000 MST"))
	}
	if s.Description != "" {
		row("Description", s.Description)
	}
	for i, a := range s.Annotations {
		row(fmt.Sprintf("Annotation %d", i), fmt.Sprintf("[%d +%d] %s", a.SampleStart, a.SampleCount, a.Label))
	}
	if st := s.Stats; st != nil {
		row("Stats samples", st.Samples)
		row("Magnitude mean", fmt.Sprintf("%.6f", st.Mean))
		row("Magnitude std", fmt.Sprintf("%.6f", st.StdDev))
		row("Magnitude range", fmt.Sprintf("%.6f .. %.6f", st.Min, st.Max))
		row("RMS", fmt.Sprintf("%.2f dBFS", st.RMS))
		row("DC offset", fmt.Sprintf("%.6f%+.6fi", st.DCReal, st.DCImag))
	}
	return tw.Flush()
}

func main() {
	if err := logging.Setup("info", true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("sigmfinfo failed")
		os.Exit(1)
	}
}
