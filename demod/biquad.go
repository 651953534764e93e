package demod

import "math"

// section is a second order IIR filter in direct form II transposed.
type section struct {
	b0, b1, b2 float64
	a1, a2     float64
	d0, d1     complex128
}

func (s *section) process(x complex128) complex128 {
	y := complex(s.b0, 0)*x + s.d0
	s.d0 = complex(s.b1, 0)*x - complex(s.a1, 0)*y + s.d1
	s.d1 = complex(s.b2, 0)*x - complex(s.a2, 0)*y
	return y
}

// cascade runs samples through its sections in order.
type cascade []section

func (c cascade) process(x complex128) complex128 {
	for i := range c {
		x = c[i].process(x)
	}
	return x
}

// lowpass is the RBJ cookbook low-pass biquad.
func lowpass(freq, q, fs float64) section {
	w0 := 2 * math.Pi * freq / fs
	cw, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return section{
		b0: (1 - cw) / 2 / a0,
		b1: (1 - cw) / a0,
		b2: (1 - cw) / 2 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

// notch is the RBJ cookbook band-reject biquad.
func notch(freq, q, fs float64) section {
	w0 := 2 * math.Pi * freq / fs
	cw, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	a0 := 1 + alpha
	return section{
		b0: 1 / a0,
		b1: -2 * cw / a0,
		b2: 1 / a0,
		a1: -2 * cw / a0,
		a2: (1 - alpha) / a0,
	}
}

// butterworth designs an even order Butterworth low-pass as a cascade of
// order/2 biquads. It returns nil when freq is not below Nyquist.
func butterworth(freq float64, order int, fs float64) cascade {
	if order < 2 || !(freq > 0 && freq < fs/2) {
		return nil
	}
	n := order / 2
	c := make(cascade, n)
	for i := 0; i < n; i++ {
		q := 1 / (2 * math.Sin(math.Pi*float64(2*i+1)/float64(2*order)))
		c[i] = lowpass(freq, q, fs)
	}
	return c
}
