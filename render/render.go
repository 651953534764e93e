package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/neurlang/specgram/spectrogram"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidParameter reports a renderer setting or spectrogram that cannot
// be drawn.
var ErrInvalidParameter = errors.New("render: invalid parameter")

// Renderer represents the configuration for drawing spectrogram images.
type Renderer struct {
	// MaxWidth and MaxHeight bound the image size; zero means unbounded.
	MaxWidth  int
	MaxHeight int
	// DynamicRange is the span in dB below the peak that the colour map
	// covers. Zero spans the full range of the data.
	DynamicRange float64
	Colormap     Colormap
}

// New creates a new Renderer with default values.
func New() *Renderer {
	return &Renderer{
		MaxWidth:     2048,
		MaxHeight:    1024,
		DynamicRange: 80,
		Colormap:     Viridis,
	}
}

func fit(n, limit int) int {
	if limit <= 0 || n <= limit {
		return n
	}
	return limit
}

// Image draws res with one column per time cell and the highest frequency in
// the top row.
func (r *Renderer) Image(res *spectrogram.Result) (*image.RGBA, error) {
	if res == nil || res.Frames() == 0 || res.Bins() == 0 {
		return nil, fmt.Errorf("%w: empty spectrogram", ErrInvalidParameter)
	}
	if r.DynamicRange < 0 || math.IsNaN(r.DynamicRange) {
		return nil, fmt.Errorf("%w: dynamic range %v must not be negative", ErrInvalidParameter, r.DynamicRange)
	}
	if _, ok := stops[r.Colormap]; !ok {
		return nil, fmt.Errorf("%w: unknown colormap %q", ErrInvalidParameter, r.Colormap)
	}

	frames, bins := res.Frames(), res.Bins()
	width, height := fit(frames, r.MaxWidth), fit(bins, r.MaxHeight)

	// max-pool power into width x height cells
	cells := make([][]float64, width)
	for x := range cells {
		f0, f1 := x*frames/width, (x+1)*frames/width
		col := make([]float64, height)
		for y := range col {
			b0, b1 := y*bins/height, (y+1)*bins/height
			peak := math.Inf(-1)
			for f := f0; f < f1; f++ {
				peak = math.Max(peak, floats.Max(res.Power[f][b0:b1]))
			}
			col[y] = spectrogram.DB(peak)
		}
		cells[x] = col
	}

	lo, hi := res.Range()
	top, bottom := spectrogram.DB(hi), spectrogram.DB(lo)
	if r.DynamicRange > 0 {
		bottom = math.Max(bottom, top-r.DynamicRange)
	}
	span := top - bottom

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x, col := range cells {
		for y, db := range col {
			var v float64
			if span > 0 {
				v = (db - bottom) / span
			}
			img.SetRGBA(x, height-y-1, r.Colormap.At(v))
		}
	}

	log.Debug().
		Int("frames", frames).
		Int("bins", bins).
		Int("width", width).
		Int("height", height).
		Float64("peak_db", top).
		Float64("floor_db", bottom).
		Msg("rendered spectrogram")
	return img, nil
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG writes img to the named file. The file is removed again if
// encoding or closing fails.
func SavePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}

	if err := WritePNG(f, img); err != nil {
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
