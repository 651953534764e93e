package demod

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"
)

// ErrInvalidParameter reports a demodulator setting that cannot be used.
var ErrInvalidParameter = errors.New("demod: invalid parameter")

// FM represents the configuration for demodulating a wideband FM station.
type FM struct {
	// SampleRate of the complex input in Hz.
	SampleRate float64
	// Offset of the station from the capture centre frequency in Hz.
	Offset float64
	// Decimation is the ratio of input rate to audio rate.
	Decimation int
	// Tau is the de-emphasis time constant in seconds; zero disables it.
	Tau float64
	// Deviation is the peak frequency deviation in Hz that maps to full scale.
	Deviation float64
	Gain      float64
}

// New creates a new FM demodulator for input at sample rate fs with default
// values.
func New(fs float64) *FM {
	dec := int(math.Round(fs / 48000))
	return &FM{
		SampleRate: fs,
		Decimation: max(dec, 1),
		Tau:        75e-6,
		Deviation:  75000,
		Gain:       1,
	}
}

// AudioRate is the sample rate of the demodulated audio.
func (m *FM) AudioRate() float64 {
	if m.Decimation < 1 {
		return 0
	}
	return m.SampleRate / float64(m.Decimation)
}

func (m *FM) validate() error {
	switch {
	case !(m.SampleRate > 0):
		return fmt.Errorf("%w: sample rate %v must be positive", ErrInvalidParameter, m.SampleRate)
	case m.Decimation < 1:
		return fmt.Errorf("%w: decimation %d must be at least 1", ErrInvalidParameter, m.Decimation)
	case !(math.Abs(m.Offset) <= m.SampleRate/2):
		return fmt.Errorf("%w: offset %v Hz outside the %v Hz band", ErrInvalidParameter, m.Offset, m.SampleRate)
	case !(m.Deviation > 0):
		return fmt.Errorf("%w: deviation %v must be positive", ErrInvalidParameter, m.Deviation)
	case m.Tau < 0:
		return fmt.Errorf("%w: de-emphasis time constant %v must not be negative", ErrInvalidParameter, m.Tau)
	}
	return nil
}

const (
	// minIntermediateRate keeps a full broadcast channel inside the band
	// seen by the discriminator.
	minIntermediateRate = 240e3
	channelCutoff       = 100e3
	audioCutoff         = 15e3
	pilotFreq           = 19e3
)

// stages splits Decimation into a channel stage that keeps the rate at or
// above minIntermediateRate and an audio stage for the remainder.
func (m *FM) stages() (channel, audio int) {
	channel = 1
	for d := m.Decimation; d > 1; d-- {
		if m.Decimation%d == 0 && m.SampleRate/float64(d) >= minIntermediateRate {
			channel = d
			break
		}
	}
	return channel, m.Decimation / channel
}

// IntermediateRate is the sample rate at which the discriminator runs.
func (m *FM) IntermediateRate() float64 {
	if m.Decimation < 1 {
		return 0
	}
	d, _ := m.stages()
	return m.SampleRate / float64(d)
}

// Demodulate returns one audio sample per Decimation input samples. A
// trailing partial block is dropped.
//
// The station is mixed to DC, low-pass filtered and decimated to the
// intermediate rate. The discriminator and de-emphasis run there, then the
// audio is low-pass filtered at 15 kHz, decimated to the audio rate and the
// 19 kHz stereo pilot is notched out.
func (m *FM) Demodulate(x []complex128) ([]float64, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	d1, d2 := m.stages()
	base := m.downconvert(x, d1)
	rate := m.SampleRate / float64(d1)
	scale := m.Gain * rate / (2 * math.Pi * m.Deviation)
	k := rate * m.Tau

	lp := butterworth(audioCutoff, 4, rate)
	var pilot cascade
	if pilotFreq < rate/float64(2*d2) {
		pilot = cascade{notch(pilotFreq, math.Sqrt2/2, rate/float64(d2))}
	}

	audio := make([]float64, 0, len(base)/d2)
	var y1 float64
	for i, z := range base {
		var delta float64
		if i > 0 {
			// phase of z * conj(prev) is already wrapped to (-pi, pi]
			delta = cmplx.Phase(z * cmplx.Conj(base[i-1]))
		}
		y := (delta*scale + k*y1) / (1 + k)
		y1 = y
		v := lp.process(complex(y, 0))
		if (i+1)%d2 != 0 {
			continue
		}
		audio = append(audio, real(pilot.process(v)))
	}

	log.Debug().
		Int("samples", len(x)).
		Int("audio", len(audio)).
		Float64("offset", m.Offset).
		Float64("intermediate_rate", rate).
		Float64("audio_rate", m.AudioRate()).
		Msg("demodulated FM")
	return audio, nil
}

// downconvert mixes x by -Offset, low-pass filters it to the broadcast
// channel and keeps the last sample of every block of d.
func (m *FM) downconvert(x []complex128, d int) []complex128 {
	out := make([]complex128, 0, len(x)/d)
	lp := butterworth(math.Min(channelCutoff, 0.45*m.SampleRate/float64(d)), 4, m.SampleRate)
	step := -m.Offset / m.SampleRate
	var phase float64
	for i, v := range x[:len(x)/d*d] {
		v = lp.process(v * cmplx.Rect(1, 2*math.Pi*phase))
		phase = math.Mod(phase+step, 1)
		if (i+1)%d == 0 {
			out = append(out, v)
		}
	}
	return out
}

// WriteWAV writes audio as a 16-bit mono WAV file at the given rate. Samples
// outside [-1, 1] are clipped.
func WriteWAV(w io.WriteSeeker, audio []float64, rate int) error {
	if rate <= 0 {
		return fmt.Errorf("%w: audio rate %d must be positive", ErrInvalidParameter, rate)
	}
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(w, Streamer(audio), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// Streamer plays audio as a mono beep stream, clipping samples to [-1, 1].
func Streamer(audio []float64) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(audio) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(audio) {
			v := math.Max(-1, math.Min(1, audio[pos]))
			buf[n] = [2]float64{v, v}
			n++
			pos++
		}
		return n, true
	})
}
