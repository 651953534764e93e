package capture

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mewkiz/flac"
	"github.com/neurlang/specgram/sigmf"
	"github.com/rs/zerolog/log"
)

// maxPrealloc bounds the sample buffer reserved from a header's length field.
const maxPrealloc = 1 << 20

// OpenFLAC loads an I/Q recording stored as FLAC, with the same channel
// layout as OpenWAV. Samples are scaled by the stream's bit depth.
func OpenFLAC(name string) (Capture, error) {
	stream, err := flac.Open(name)
	if err != nil {
		return nil, &sigmf.FormatError{Path: name, Reason: "cannot open flac", Err: err}
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels != 1 && channels != 2 {
		return nil, &sigmf.FormatError{Path: name, Reason: fmt.Sprintf("unsupported channel count %d", channels)}
	}
	if stream.Info.SampleRate == 0 {
		return nil, &sigmf.FormatError{Path: name, Reason: "zero sample rate"}
	}
	iq := channels == 2
	scale := math.Ldexp(1, int(stream.Info.BitsPerSample)-1)

	// NSamples comes from the header and may be unknown (zero) or wrong.
	samples := make([]complex128, 0, min(stream.Info.NSamples, maxPrealloc))
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &sigmf.FormatError{Path: name, Reason: "cannot decode flac frame", Err: err}
		}
		left := frame.Subframes[0].Samples
		for i, v := range left {
			q := 0.0
			if iq {
				q = float64(frame.Subframes[1].Samples[i]) / scale
			}
			samples = append(samples, complex(float64(v)/scale, q))
		}
	}

	if n := stream.Info.NSamples; n != 0 && uint64(len(samples)) != n {
		return nil, &sigmf.FormatError{Path: name, Reason: fmt.Sprintf("stream holds %d of %d samples", len(samples), n)}
	}

	kind := "r"
	if iq {
		kind = "c"
	}
	info := Info{
		Path:       name,
		Format:     "flac",
		Datatype:   fmt.Sprintf("%si%d_le", kind, stream.Info.BitsPerSample),
		SampleRate: float64(stream.Info.SampleRate),
		Samples:    len(samples),
		Complex:    iq,
	}
	log.Debug().Str("path", name).Int("channels", channels).Int("samples", len(samples)).Msg("Loaded flac recording")
	return &memCapture{info: info, samples: samples}, nil
}
