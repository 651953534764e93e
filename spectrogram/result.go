package spectrogram

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FloorDB is the level reported for bins with zero power.
const FloorDB = -300.0

// Result is a computed spectrogram. Power is indexed [time][frequency] and
// holds power spectral density in units²/Hz.
type Result struct {
	Power      [][]float64
	Freqs      []float64
	Times      []float64
	SampleRate float64
	NFFT       int
	Overlap    int
	OneSided   bool
}

// Frames is the length of the time axis.
func (r *Result) Frames() int { return len(r.Power) }

// Bins is the length of the frequency axis.
func (r *Result) Bins() int { return len(r.Freqs) }

// Resolution is the bin spacing in Hz.
func (r *Result) Resolution() float64 { return r.SampleRate / float64(r.NFFT) }

// DB converts p to decibels, clamped at FloorDB.
func DB(p float64) float64 {
	if p <= 0 {
		return FloorDB
	}
	return math.Max(10*math.Log10(p), FloorDB)
}

// DB returns every power value in decibels.
func (r *Result) DB() [][]float64 {
	out := make([][]float64, len(r.Power))
	for i, row := range r.Power {
		db := make([]float64, len(row))
		for k, p := range row {
			db[k] = DB(p)
		}
		out[i] = db
	}
	return out
}

// Range returns the smallest and largest power values.
func (r *Result) Range() (lo, hi float64) {
	if r.Frames() == 0 || r.Bins() == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range r.Power {
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	return lo, hi
}

// Peak returns the strongest bin of one frame and its frequency.
func (r *Result) Peak(frame int) (bin int, hz float64, err error) {
	if frame < 0 || frame >= r.Frames() {
		return 0, 0, fmt.Errorf("frame %d out of range [0, %d)", frame, r.Frames())
	}
	bin = floats.MaxIdx(r.Power[frame])
	return bin, r.Freqs[bin], nil
}

// Average returns the power spectrum averaged over all frames.
func (r *Result) Average() []float64 {
	if r.Frames() == 0 {
		return nil
	}
	avg := make([]float64, r.Bins())
	for _, row := range r.Power {
		floats.Add(avg, row)
	}
	floats.Scale(1/float64(r.Frames()), avg)
	return avg
}

// FrequencyBin returns the bin whose centre is nearest to hz, clamped to the axis.
func (r *Result) FrequencyBin(hz float64) int {
	if r.Bins() == 0 {
		return 0
	}
	k := int(math.Round((hz - r.Freqs[0]) / r.Resolution()))
	return max(0, min(r.Bins()-1, k))
}
