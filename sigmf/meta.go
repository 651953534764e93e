package sigmf

import (
	"encoding/json"
	"io"
	"sort"
	"time"
)

// Core global field keys.
const (
	DatatypeKey    = "core:datatype"
	SampleRateKey  = "core:sample_rate"
	VersionKey     = "core:version"
	NumChannelsKey = "core:num_channels"
	SHA512Key      = "core:sha512"
	DescriptionKey = "core:description"
	AuthorKey      = "core:author"
	HardwareKey    = "core:hw"
	RecorderKey    = "core:recorder"
)

// Version is written into new metadata files.
const Version = "1.2.0"

// Global is the "global" object of a metadata file.
type Global struct {
	Datatype    string  `json:"core:datatype" yaml:"datatype"`
	SampleRate  float64 `json:"core:sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Version     string  `json:"core:version" yaml:"version"`
	NumChannels int     `json:"core:num_channels,omitempty" yaml:"num_channels,omitempty"`
	SHA512      string  `json:"core:sha512,omitempty" yaml:"sha512,omitempty"`
	Offset      int64   `json:"core:offset,omitempty" yaml:"offset,omitempty"`
	Description string  `json:"core:description,omitempty" yaml:"description,omitempty"`
	Author      string  `json:"core:author,omitempty" yaml:"author,omitempty"`
	Hardware    string  `json:"core:hw,omitempty" yaml:"hw,omitempty"`
	Recorder    string  `json:"core:recorder,omitempty" yaml:"recorder,omitempty"`
	License     string  `json:"core:license,omitempty" yaml:"license,omitempty"`
}

// Segment is one entry of the "captures" array.
type Segment struct {
	SampleStart int64   `json:"core:sample_start" yaml:"sample_start"`
	Frequency   float64 `json:"core:frequency,omitempty" yaml:"frequency,omitempty"`
	Datetime    string  `json:"core:datetime,omitempty" yaml:"datetime,omitempty"`
	HeaderBytes int64   `json:"core:header_bytes,omitempty" yaml:"header_bytes,omitempty"`
	GlobalIndex int64   `json:"core:global_index,omitempty" yaml:"global_index,omitempty"`
}

// Annotation is one entry of the "annotations" array.
type Annotation struct {
	SampleStart   int64   `json:"core:sample_start" yaml:"sample_start"`
	SampleCount   int64   `json:"core:sample_count,omitempty" yaml:"sample_count,omitempty"`
	FreqLowerEdge float64 `json:"core:freq_lower_edge,omitempty" yaml:"freq_lower_edge,omitempty"`
	FreqUpperEdge float64 `json:"core:freq_upper_edge,omitempty" yaml:"freq_upper_edge,omitempty"`
	Label         string  `json:"core:label,omitempty" yaml:"label,omitempty"`
	Comment       string  `json:"core:comment,omitempty" yaml:"comment,omitempty"`
	Generator     string  `json:"core:generator,omitempty" yaml:"generator,omitempty"`
}

// Meta is a decoded metadata file.
type Meta struct {
	Global      Global       `json:"global" yaml:"global"`
	Captures    []Segment    `json:"captures" yaml:"captures"`
	Annotations []Annotation `json:"annotations" yaml:"annotations,omitempty"`

	fields map[string]any
}

// ReadMeta decodes a metadata document. It does not validate it.
func ReadMeta(r io.Reader) (*Meta, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	var loose struct {
		Global map[string]any `json:"global"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}
	m.fields = loose.Global
	sort.SliceStable(m.Captures, func(i, j int) bool {
		return m.Captures[i].SampleStart < m.Captures[j].SampleStart
	})
	return &m, nil
}

// WriteMeta encodes m as indented JSON.
func WriteMeta(w io.Writer, m *Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(m)
}

// GlobalField returns any global field by its namespaced key, including
// extension namespaces the Global struct does not model.
func (m *Meta) GlobalField(key string) (any, bool) {
	if m.fields == nil {
		return nil, false
	}
	v, ok := m.fields[key]
	return v, ok
}

// Channels is core:num_channels with the implicit default of 1.
func (m *Meta) Channels() int {
	if m.Global.NumChannels <= 0 {
		return 1
	}
	return m.Global.NumChannels
}

// Start is the core:datetime of the first capture segment.
func (m *Meta) Start() (time.Time, bool) {
	if len(m.Captures) == 0 || m.Captures[0].Datetime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, m.Captures[0].Datetime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Frequency is the core:frequency of the first capture segment, or 0.
func (m *Meta) Frequency() float64 {
	if len(m.Captures) == 0 {
		return 0
	}
	return m.Captures[0].Frequency
}

// validate checks the fields a reader depends on and returns the datatype.
func (m *Meta) validate(path string) (Datatype, error) {
	if m.Global.Datatype == "" {
		return Datatype{}, formatError(path, nil, "missing %s", DatatypeKey)
	}
	d, err := ParseDatatype(m.Global.Datatype)
	if err != nil {
		return Datatype{}, formatError(path, err, "unsupported %s", DatatypeKey)
	}
	if m.Global.SampleRate <= 0 {
		return Datatype{}, formatError(path, nil, "missing or non-positive %s", SampleRateKey)
	}
	if m.Global.NumChannels < 0 {
		return Datatype{}, formatError(path, nil, "negative %s", NumChannelsKey)
	}
	for _, c := range m.Captures {
		if c.SampleStart < 0 || c.HeaderBytes < 0 {
			return Datatype{}, formatError(path, nil, "negative capture offsets")
		}
	}
	return d, nil
}
