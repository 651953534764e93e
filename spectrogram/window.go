package spectrogram

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

// Window names a tapering function applied to every segment.
type Window string

const (
	Hann        Window = "hann"
	Hamming     Window = "hamming"
	Blackman    Window = "blackman"
	Rectangular Window = "rectangular"
)

// ParseWindow accepts a window name in any case.
func ParseWindow(s string) (Window, error) {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	switch w {
	case Hann, Hamming, Blackman, Rectangular:
		return w, nil
	case "hanning":
		return Hann, nil
	case "none", "boxcar":
		return Rectangular, nil
	}
	return "", fmt.Errorf("%w: unknown window %q", ErrInvalidParameter, s)
}

// Coefficients returns the n point window.
func (w Window) Coefficients(n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: window length %d", ErrInvalidParameter, n)
	}
	if n == 1 {
		return []float64{1}, nil
	}
	switch w {
	case Hann, "":
		return window.Hann(n), nil
	case Hamming:
		return window.Hamming(n), nil
	case Blackman:
		return window.Blackman(n), nil
	case Rectangular:
		return window.Rectangular(n), nil
	}
	return nil, fmt.Errorf("%w: unknown window %q", ErrInvalidParameter, string(w))
}
