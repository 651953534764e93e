package capture

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/neurlang/specgram/internal/storage"
	"github.com/neurlang/specgram/sigmf"
)

// Errors shared by every container format.
var (
	ErrFormat = sigmf.ErrFormat
	ErrBounds = sigmf.ErrBounds
)

// Capture is an open recording.
type Capture interface {
	// SampleRate is the sample rate in Hz.
	SampleRate() float64
	// Len is the number of samples.
	Len() int
	// Complex reports whether samples are I/Q pairs.
	Complex() bool
	// Slice returns samples [start, end). Out of range requests fail with ErrBounds.
	Slice(start, end int) ([]complex128, error)
	// Info describes the recording.
	Info() Info
	Close() error
}

// Info is the descriptive metadata of a capture.
type Info struct {
	Path        string             `json:"path" yaml:"path"`
	Format      string             `json:"format" yaml:"format"`
	Datatype    string             `json:"datatype" yaml:"datatype"`
	SampleRate  float64            `json:"sample_rate" yaml:"sample_rate"`
	Samples     int                `json:"samples" yaml:"samples"`
	Complex     bool               `json:"complex" yaml:"complex"`
	Frequency   float64            `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Start       *time.Time         `json:"start,omitempty" yaml:"start,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Annotations []sigmf.Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Duration is the recording length.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(i.Samples) / i.SampleRate * float64(time.Second)))
}

// Options configures Open.
type Options struct {
	// Channel selects one channel of a multi-channel SigMF recording.
	Channel int
	// Verify checks core:sha512 of SigMF recordings.
	Verify bool
	// Store resolves s3:// names.
	Store storage.Store
}

// Open opens name, choosing the container by extension: .wav and .flac are
// I/Q audio files, everything else is treated as SigMF.
func Open(ctx context.Context, name string, o Options) (Capture, error) {
	if storage.IsURI(name) {
		return openRemote(ctx, name, o)
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return OpenWAV(name)
	case ".flac":
		return OpenFLAC(name)
	}

	opts := []sigmf.Option{sigmf.WithChannel(o.Channel)}
	if o.Verify {
		opts = append(opts, sigmf.WithVerify())
	}
	c, err := sigmf.Open(name, opts...)
	if err != nil {
		return nil, err
	}
	return &sigmfCapture{c}, nil
}

type sigmfCapture struct {
	*sigmf.Capture
}

func (c *sigmfCapture) Info() Info {
	meta := c.Meta()
	info := Info{
		Path:        c.Path(),
		Format:      "sigmf",
		Datatype:    c.Datatype().String(),
		SampleRate:  c.SampleRate(),
		Samples:     c.Len(),
		Complex:     c.Complex(),
		Frequency:   c.Frequency(),
		Description: meta.Global.Description,
		Annotations: c.Annotations(),
	}
	if t, ok := c.Start(); ok {
		info.Start = &t
	}
	return info
}

// memCapture holds fully decoded samples.
type memCapture struct {
	info    Info
	samples []complex128
}

func (m *memCapture) SampleRate() float64 { return m.info.SampleRate }
func (m *memCapture) Len() int            { return len(m.samples) }
func (m *memCapture) Complex() bool       { return m.info.Complex }
func (m *memCapture) Info() Info          { return m.info }
func (m *memCapture) Close() error        { return nil }

func (m *memCapture) Slice(start, end int) ([]complex128, error) {
	if err := sigmf.CheckRange(start, end, len(m.samples)); err != nil {
		return nil, err
	}
	out := make([]complex128, end-start)
	copy(out, m.samples[start:end])
	return out, nil
}

// ReadAll decodes every sample of c.
func ReadAll(c Capture) ([]complex128, error) {
	return c.Slice(0, c.Len())
}

// Real returns the real parts of x.
func Real(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = real(v)
	}
	return out
}
