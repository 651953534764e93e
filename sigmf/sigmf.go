package sigmf

import (
	"archive/tar"
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// File name extensions of a recording.
const (
	MetaExt    = ".sigmf-meta"
	DataExt    = ".sigmf-data"
	ArchiveExt = ".sigmf"
)

// Option configures Open.
type Option func(*options)

type options struct {
	channel int
	verify  bool
}

// WithChannel selects which channel of a multi-channel recording is read.
func WithChannel(i int) Option {
	return func(o *options) { o.channel = i }
}

// WithVerify checks core:sha512 against the sample data while opening.
func WithVerify() Option {
	return func(o *options) { o.verify = true }
}

// segment maps the first sample of a capture segment to its byte offset.
type segment struct {
	sample int64
	offset int64
}

// Capture is an open recording. Samples are decoded on demand.
type Capture struct {
	path     string
	meta     *Meta
	dtype    Datatype
	channel  int
	data     io.ReaderAt
	closer   io.Closer
	base     int64
	size     int64
	n        int
	segments []segment
}

// Open opens the recording named by name, which may be the archive, the
// metadata file, the data file or the shared base name.
func Open(name string, opts ...Option) (*Capture, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if strings.HasSuffix(name, ArchiveExt) {
		return openArchive(name, o)
	}
	base := strings.TrimSuffix(strings.TrimSuffix(name, MetaExt), DataExt)
	return openPair(base+MetaExt, base+DataExt, o)
}

func openPair(metaPath, dataPath string, o options) (*Capture, error) {
	mf, err := os.Open(metaPath)
	if err != nil {
		return nil, formatError(metaPath, err, "cannot open metadata")
	}
	meta, err := ReadMeta(mf)
	mf.Close()
	if err != nil {
		return nil, formatError(metaPath, err, "malformed metadata")
	}

	df, err := os.Open(dataPath)
	if err != nil {
		return nil, formatError(dataPath, err, "cannot open data")
	}
	st, err := df.Stat()
	if err != nil {
		df.Close()
		return nil, formatError(dataPath, err, "cannot stat data")
	}

	c, err := newCapture(metaPath, meta, df, df, 0, st.Size(), o)
	if err != nil {
		df.Close()
		return nil, err
	}
	return c, nil
}

// openArchive locates the first metadata member with a matching data member.
// The data member is read in place through the archive file.
func openArchive(name string, o options) (*Capture, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, formatError(name, err, "cannot open archive")
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	type member struct{ offset, size int64 }
	metas := map[string][]byte{}
	datas := map[string]member{}
	var order []string

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, formatError(name, err, "malformed archive")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		switch {
		case strings.HasSuffix(hdr.Name, MetaExt):
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, formatError(name, err, "cannot read %s", hdr.Name)
			}
			key := strings.TrimSuffix(hdr.Name, MetaExt)
			metas[key] = b
			order = append(order, key)
		case strings.HasSuffix(hdr.Name, DataExt):
			off, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, formatError(name, err, "cannot locate %s", hdr.Name)
			}
			datas[strings.TrimSuffix(hdr.Name, DataExt)] = member{offset: off, size: hdr.Size}
		}
	}

	for _, key := range order {
		d, found := datas[key]
		if !found {
			continue
		}
		metaPath := name + "/" + path.Base(key) + MetaExt
		meta, err := ReadMeta(bytes.NewReader(metas[key]))
		if err != nil {
			return nil, formatError(metaPath, err, "malformed metadata")
		}
		c, err := newCapture(metaPath, meta, f, f, d.offset, d.size, o)
		if err != nil {
			return nil, err
		}
		ok = true
		return c, nil
	}
	if len(order) == 0 {
		return nil, formatError(name, nil, "archive holds no %s member", MetaExt)
	}
	return nil, formatError(name, nil, "archive holds no %s member for %s", DataExt, order[0])
}

func newCapture(path string, meta *Meta, data io.ReaderAt, closer io.Closer, base, size int64, o options) (*Capture, error) {
	dtype, err := meta.validate(path)
	if err != nil {
		return nil, err
	}
	channels := meta.Channels()
	if o.channel < 0 || o.channel >= channels {
		return nil, formatError(path, nil, "channel %d not in recording with %d channels", o.channel, channels)
	}

	var headers int64
	segments := make([]segment, 0, len(meta.Captures)+1)
	item := int64(dtype.SampleSize() * channels)
	for _, s := range meta.Captures {
		headers += s.HeaderBytes
		segments = append(segments, segment{sample: s.SampleStart, offset: base + headers + s.SampleStart*item})
	}
	if len(segments) == 0 || segments[0].sample != 0 {
		segments = append([]segment{{sample: 0, offset: base}}, segments...)
	}
	if headers > size {
		return nil, formatError(path, nil, "header bytes exceed data size")
	}

	payload := size - headers
	n := payload / item
	if rem := payload % item; rem != 0 {
		log.Warn().Str("path", path).Int64("trailing_bytes", rem).Msg("Ignoring partial sample at end of data")
	}

	c := &Capture{
		path:     path,
		meta:     meta,
		dtype:    dtype,
		channel:  o.channel,
		data:     data,
		closer:   closer,
		base:     base,
		size:     size,
		n:        int(n),
		segments: segments,
	}
	if o.verify {
		if err := c.verify(); err != nil {
			return nil, err
		}
	}
	log.Debug().
		Str("path", path).
		Str("datatype", dtype.String()).
		Float64("sample_rate", meta.Global.SampleRate).
		Int("samples", c.n).
		Msg("Opened SigMF recording")
	return c, nil
}

func (c *Capture) verify() error {
	want := strings.ToLower(c.meta.Global.SHA512)
	if want == "" {
		return formatError(c.path, nil, "no %s to verify against", SHA512Key)
	}
	h := sha512.New()
	if _, err := io.Copy(h, io.NewSectionReader(c.data, c.base, c.size)); err != nil {
		return formatError(c.path, err, "cannot hash data")
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != want {
		return formatError(c.path, nil, "%s mismatch", SHA512Key)
	}
	return nil
}

// Path is the metadata path the recording was opened from.
func (c *Capture) Path() string { return c.path }

// Meta returns the decoded metadata.
func (c *Capture) Meta() *Meta { return c.meta }

// Datatype returns the parsed core:datatype.
func (c *Capture) Datatype() Datatype { return c.dtype }

// SampleRate returns core:sample_rate in Hz.
func (c *Capture) SampleRate() float64 { return c.meta.Global.SampleRate }

// Len is the number of samples per channel.
func (c *Capture) Len() int { return c.n }

// Complex reports whether samples carry an imaginary part.
func (c *Capture) Complex() bool { return c.dtype.Complex }

// Frequency is the centre frequency of the first capture segment.
func (c *Capture) Frequency() float64 { return c.meta.Frequency() }

// Start is the recording start time, if the metadata has one.
func (c *Capture) Start() (time.Time, bool) { return c.meta.Start() }

// Annotations returns the annotation list.
func (c *Capture) Annotations() []Annotation { return c.meta.Annotations }

// GlobalField returns a global field by key.
func (c *Capture) GlobalField(key string) (any, bool) { return c.meta.GlobalField(key) }

// Slice decodes samples [start, end) of the selected channel.
func (c *Capture) Slice(start, end int) ([]complex128, error) {
	if err := CheckRange(start, end, c.n); err != nil {
		return nil, err
	}
	out := make([]complex128, end-start)
	item := int64(c.dtype.SampleSize() * c.meta.Channels())

	for i, s := range c.segments {
		lo, hi := s.sample, int64(c.n)
		if i+1 < len(c.segments) {
			hi = min(hi, c.segments[i+1].sample)
		}
		lo, hi = max(lo, int64(start)), min(hi, int64(end))
		if lo >= hi {
			continue
		}
		raw := make([]byte, (hi-lo)*item)
		if _, err := c.data.ReadAt(raw, s.offset+(lo-s.sample)*item); err != nil && !errors.Is(err, io.EOF) {
			return nil, formatError(c.path, err, "cannot read samples")
		}
		c.dtype.Decode(out[lo-int64(start):hi-int64(start)], raw, c.meta.Channels(), c.channel)
	}
	return out, nil
}

// ReadAll decodes every sample of the selected channel.
func (c *Capture) ReadAll() ([]complex128, error) {
	return c.Slice(0, c.n)
}

// Close releases the underlying file.
func (c *Capture) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}
