package capture

import (
	"fmt"
	"os"

	"github.com/faiface/beep/wav"
	"github.com/neurlang/specgram/sigmf"
	"github.com/rs/zerolog/log"
)

// OpenWAV loads an I/Q recording stored as WAV. A stereo file carries I on
// the left and Q on the right channel; a mono file is a real signal.
func OpenWAV(name string) (Capture, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, &sigmf.FormatError{Path: name, Reason: "cannot open wav", Err: err}
	}
	defer file.Close()

	stream, format, err := wav.Decode(file)
	if err != nil {
		return nil, &sigmf.FormatError{Path: name, Reason: "malformed wav", Err: err}
	}
	defer stream.Close()

	if format.NumChannels != 1 && format.NumChannels != 2 {
		return nil, &sigmf.FormatError{Path: name, Reason: fmt.Sprintf("unsupported channel count %d", format.NumChannels)}
	}
	if format.SampleRate <= 0 {
		return nil, &sigmf.FormatError{Path: name, Reason: "non-positive sample rate"}
	}
	iq := format.NumChannels == 2

	want := stream.Len()
	if want < 0 {
		return nil, &sigmf.FormatError{Path: name, Reason: "negative data chunk size"}
	}
	fi, err := file.Stat()
	if err != nil {
		return nil, &sigmf.FormatError{Path: name, Reason: "cannot stat wav", Err: err}
	}
	frames := int(fi.Size()) / (format.NumChannels * format.Precision)
	samples := make([]complex128, 0, min(want, frames))
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		if n == 0 {
			// the decoder keeps reporting ok at a premature end of file
			break
		}
		for _, s := range buf[:n] {
			if iq {
				samples = append(samples, complex(s[0], s[1]))
			} else {
				samples = append(samples, complex(s[0], 0))
			}
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, &sigmf.FormatError{Path: name, Reason: "cannot decode wav samples", Err: err}
	}
	if len(samples) != want {
		return nil, &sigmf.FormatError{Path: name, Reason: fmt.Sprintf("data chunk holds %d of %d frames", len(samples), want)}
	}

	kind := "r"
	if iq {
		kind = "c"
	}
	info := Info{
		Path:       name,
		Format:     "wav",
		Datatype:   fmt.Sprintf("%si%d_le", kind, format.Precision*8),
		SampleRate: float64(format.SampleRate),
		Samples:    len(samples),
		Complex:    iq,
	}
	log.Debug().Str("path", name).Int("channels", format.NumChannels).Int("samples", len(samples)).Msg("Loaded wav recording")
	return &memCapture{info: info, samples: samples}, nil
}
