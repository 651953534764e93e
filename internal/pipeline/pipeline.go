package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/neurlang/specgram/capture"
	"github.com/neurlang/specgram/internal/config"
	"github.com/neurlang/specgram/internal/storage"
	"github.com/neurlang/specgram/render"
	"github.com/neurlang/specgram/spectrogram"
	"github.com/neurlang/specgram/viewer"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// Report summarises a completed run.
type Report struct {
	Capture capture.Info
	// Start and End bound the analysed samples after clamping.
	Start, End int
	Frames     int
	Bins       int
	OneSided   bool
	// PeakHz is the frequency of the strongest bin of the averaged
	// spectrum, including the capture centre frequency.
	PeakHz  float64
	Width   int
	Height  int
	Output  string
	Elapsed time.Duration
}

// Pipeline runs the load, compute, render and output steps.
type Pipeline struct {
	// Store resolves s3:// locations. When nil and one is needed, an S3
	// store is built from the configuration.
	Store storage.Store
}

// Run runs a default Pipeline.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	return (&Pipeline{}).Run(ctx, cfg)
}

// Run executes one spectrogram job. Nothing is written unless the image was
// rendered successfully.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	began := time.Now()

	s := spectrogram.New()
	window, err := spectrogram.ParseWindow(cfg.Spectrogram.Window)
	if err != nil {
		return nil, err
	}
	s.NFFT = cfg.Spectrogram.NFFT
	s.Overlap = cfg.Spectrogram.Overlap
	s.Window = window

	r := render.New()
	colormap, err := render.ParseColormap(cfg.Render.Colormap)
	if err != nil {
		return nil, err
	}
	r.MaxWidth = cfg.Render.Width
	r.MaxHeight = cfg.Render.Height
	r.DynamicRange = cfg.Render.DynamicRange
	r.Colormap = colormap

	store := p.Store
	if store == nil && cfg.UsesS3() {
		if store, err = storage.NewS3Store(ctx, cfg.S3); err != nil {
			return nil, err
		}
	}

	c, err := capture.Open(ctx, cfg.Capture.Path, capture.Options{
		Channel: cfg.Capture.Channel,
		Verify:  cfg.Capture.Verify,
		Store:   store,
	})
	if err != nil {
		return nil, err
	}
	defer c.Close()

	info := c.Info()
	start, end := cfg.Slice.Start, cfg.Slice.End
	if cfg.Slice.ClampEnd && end > c.Len() {
		log.Debug().Int("end", end).Int("samples", c.Len()).Msg("clamping slice to capture length")
		end = c.Len()
	}
	x, err := c.Slice(start, end)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("capture", info.Path).
		Str("datatype", info.Datatype).
		Float64("sample_rate", info.SampleRate).
		Int("start", start).
		Int("end", end).
		Msg("capture loaded")

	var res *spectrogram.Result
	if c.Complex() {
		res, err = s.Compute(x, c.SampleRate())
	} else {
		res, err = s.ComputeReal(capture.Real(x), c.SampleRate())
	}
	if err != nil {
		return nil, err
	}

	img, err := r.Image(res)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Capture:  info,
		Start:    start,
		End:      end,
		Frames:   res.Frames(),
		Bins:     res.Bins(),
		OneSided: res.OneSided,
		PeakHz:   info.Frequency + res.Freqs[floats.MaxIdx(res.Average())],
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}

	if report.Output, err = p.deliver(ctx, cfg, store, img, info); err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(began)

	log.Info().
		Int("frames", report.Frames).
		Int("bins", report.Bins).
		Float64("peak_hz", report.PeakHz).
		Str("output", report.Output).
		Dur("elapsed", report.Elapsed).
		Msg("spectrogram complete")
	return report, nil
}

func (p *Pipeline) deliver(ctx context.Context, cfg *config.Config, store storage.Store, img image.Image, info capture.Info) (string, error) {
	out := cfg.Output.Path
	switch {
	case cfg.Output.View:
		v, err := viewer.New(img, info)
		if err != nil {
			return "", err
		}
		if err := v.Serve(ctx, cfg.Output.Addr); err != nil {
			return "", err
		}
		return "http://" + cfg.Output.Addr + "/", nil

	case storage.IsURI(out):
		var buf bytes.Buffer
		if err := render.WritePNG(&buf, img); err != nil {
			return "", err
		}
		if err := storage.Put(ctx, store, out, "image/png", bytes.NewReader(buf.Bytes())); err != nil {
			return "", fmt.Errorf("upload spectrogram: %w", err)
		}
		return out, nil

	default:
		if err := render.SavePNG(out, img); err != nil {
			return "", fmt.Errorf("save spectrogram: %w", err)
		}
		return out, nil
	}
}
