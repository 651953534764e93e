package spectrogram

import (
	"errors"
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"github.com/r9y9/gossp/stft"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidParameter reports a transform length, overlap, window or sample
// rate the signal cannot be analysed with.
var ErrInvalidParameter = errors.New("spectrogram: invalid parameter")

// Spectrogram represents the configuration for computing spectrograms.
type Spectrogram struct {
	// NFFT is the transform length N, conventionally a power of two.
	NFFT int
	// Overlap is the number of samples shared by consecutive segments.
	Overlap int
	Window  Window
}

// New creates a new Spectrogram with default values.
func New() *Spectrogram {
	return &Spectrogram{
		NFFT:    8192,
		Overlap: 0,
		Window:  Hann,
	}
}

// Frames returns the number of segments a signal of length samples yields.
func (s *Spectrogram) Frames(length int) int {
	hop := s.NFFT - s.Overlap
	if hop <= 0 || length < s.NFFT {
		return 0
	}
	return (length - s.Overlap) / hop
}

func (s *Spectrogram) validate(length int, fs float64) error {
	switch {
	case s.NFFT <= 0:
		return fmt.Errorf("%w: transform length %d must be positive", ErrInvalidParameter, s.NFFT)
	case s.NFFT > length:
		return fmt.Errorf("%w: transform length %d exceeds %d samples", ErrInvalidParameter, s.NFFT, length)
	case s.Overlap < 0 || s.Overlap >= s.NFFT:
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidParameter, s.Overlap, s.NFFT)
	case !(fs > 0):
		return fmt.Errorf("%w: sample rate %v must be positive", ErrInvalidParameter, fs)
	}
	return nil
}

// coefficients returns the window and its energy, sum(w^2).
func (s *Spectrogram) coefficients() ([]float64, float64, error) {
	w, err := s.Window.Coefficients(s.NFFT)
	if err != nil {
		return nil, 0, err
	}
	energy := floats.Dot(w, w)
	if energy == 0 {
		return nil, 0, fmt.Errorf("%w: %s window of length %d has no energy", ErrInvalidParameter, s.Window, s.NFFT)
	}
	return w, energy, nil
}

func (s *Spectrogram) times(frames int, fs float64) []float64 {
	hop := s.NFFT - s.Overlap
	t := make([]float64, frames)
	for i := range t {
		t[i] = (float64(i*hop) + float64(s.NFFT)/2) / fs
	}
	return t
}

// Compute returns the two-sided power spectral density of complex samples x
// at sample rate fs. Bins are ordered from -fs/2 up to fs/2-fs/NFFT.
func (s *Spectrogram) Compute(x []complex128, fs float64) (*Result, error) {
	if err := s.validate(len(x), fs); err != nil {
		return nil, err
	}
	w, energy, err := s.coefficients()
	if err != nil {
		return nil, err
	}

	n := s.NFFT
	hop := n - s.Overlap
	frames := s.Frames(len(x))
	scale := 1 / (fs * energy)
	shift := n / 2

	power := make([][]float64, frames)
	buf := make([]complex128, n)
	for f := range power {
		seg := x[f*hop : f*hop+n]
		for i, v := range seg {
			buf[i] = v * complex(w[i], 0)
		}
		spectrum := fft.FFT(buf)

		row := make([]float64, n)
		for k := range row {
			v := spectrum[(k-shift+n)%n]
			row[k] = (real(v)*real(v) + imag(v)*imag(v)) * scale
		}
		power[f] = row
	}

	freqs := make([]float64, n)
	for k := range freqs {
		freqs[k] = float64(k-shift) * fs / float64(n)
	}

	return &Result{
		Power:      power,
		Freqs:      freqs,
		Times:      s.times(frames, fs),
		SampleRate: fs,
		NFFT:       n,
		Overlap:    s.Overlap,
	}, nil
}

// ComputeReal returns the one-sided power spectral density of real samples x
// at sample rate fs, with NFFT/2+1 bins from DC up to fs/2.
func (s *Spectrogram) ComputeReal(x []float64, fs float64) (*Result, error) {
	if err := s.validate(len(x), fs); err != nil {
		return nil, err
	}
	w, energy, err := s.coefficients()
	if err != nil {
		return nil, err
	}

	n := s.NFFT
	frames := s.Frames(len(x))
	bins := n/2 + 1
	scale := 1 / (fs * energy)

	st := stft.New(n-s.Overlap, n)
	st.Window = w
	spectra := st.STFT(append([]float64(nil), x...))
	if len(spectra) < frames {
		frames = len(spectra)
	}

	power := make([][]float64, frames)
	for f := range power {
		row := make([]float64, bins)
		for k := range row {
			v := spectra[f][k]
			p := (real(v)*real(v) + imag(v)*imag(v)) * scale
			if k != 0 && !(n%2 == 0 && k == n/2) {
				p *= 2
			}
			row[k] = p
		}
		power[f] = row
	}

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(n)
	}

	return &Result{
		Power:      power,
		Freqs:      freqs,
		Times:      s.times(frames, fs),
		SampleRate: fs,
		NFFT:       n,
		Overlap:    s.Overlap,
		OneSided:   true,
	}, nil
}
