package sigmf

import (
	"encoding/binary"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(i%64)/128, -float64(i%32)/64)
	}
	return out
}

func testMeta(datatype string, rate float64) *Meta {
	return &Meta{
		Global: Global{Datatype: datatype, SampleRate: rate, Description: "test"},
		Captures: []Segment{{
			SampleStart: 0,
			Frequency:   94.5e6,
			Datetime:    "2025-09-20T12:00:00Z",
		}},
	}
}

func writePair(t *testing.T, datatype string, samples []complex128) string {
	t.Helper()
	base := filepath.Join(t.TempDir(), "rec")
	require.NoError(t, Write(base, testMeta(datatype, 1e6), samples))
	return base
}

func requireSamplesNear(t *testing.T, want, got []complex128, eps float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if cmplx.Abs(want[i]-got[i]) > eps {
			t.Fatalf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSliceReturnsPrefixInOrder(t *testing.T) {
	samples := ramp(100)
	base := writePair(t, "cf32_le", samples)

	c, err := Open(base + MetaExt)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, 100, c.Len())
	for _, k := range []int{0, 1, 37, 99, 100} {
		got, err := c.Slice(0, k)
		require.NoError(t, err)
		requireSamplesNear(t, samples[:k], got, 1e-7)
	}

	_, err = c.Slice(0, 101)
	require.ErrorIs(t, err, ErrBounds)
	var be *BoundsError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 100, be.Len)

	_, err = c.Slice(-1, 3)
	assert.ErrorIs(t, err, ErrBounds)
	_, err = c.Slice(5, 4)
	assert.ErrorIs(t, err, ErrBounds)
}

func TestOpenResolvesAllNames(t *testing.T) {
	samples := ramp(16)
	base := writePair(t, "ci16_le", samples)

	for _, name := range []string{base, base + MetaExt, base + DataExt} {
		c, err := Open(name)
		require.NoError(t, err, name)
		got, err := c.ReadAll()
		require.NoError(t, err)
		requireSamplesNear(t, samples, got, 1.0/32768)
		require.NoError(t, c.Close())
	}
}

func TestOpenFormatErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	writeFile("nodata"+MetaExt, `{"global":{"core:datatype":"cf32_le","core:sample_rate":1000}}`)
	writeFile("nometa"+DataExt, "12345678")
	writeFile("badjson"+MetaExt, `{"global":`)
	writeFile("badjson"+DataExt, "")
	writeFile("badtype"+MetaExt, `{"global":{"core:datatype":"cq8","core:sample_rate":1000}}`)
	writeFile("badtype"+DataExt, "")
	writeFile("norate"+MetaExt, `{"global":{"core:datatype":"cf32_le"}}`)
	writeFile("norate"+DataExt, "")
	writeFile("notype"+MetaExt, `{"global":{"core:sample_rate":1000}}`)
	writeFile("notype"+DataExt, "")
	writeFile("junk"+ArchiveExt, "not a tar file at all, just text")

	for _, name := range []string{"nodata", "nometa", "badjson", "badtype", "norate", "notype", "junk" + ArchiveExt, "absent"} {
		t.Run(name, func(t *testing.T) {
			c, err := Open(filepath.Join(dir, name))
			require.Nil(t, c)
			require.ErrorIs(t, err, ErrFormat)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.NotEmpty(t, fe.Reason)
		})
	}
}

func TestArchiveMatchesPair(t *testing.T) {
	samples := ramp(257)
	base := writePair(t, "cf32_le", samples)
	archive := filepath.Join(t.TempDir(), "rec"+ArchiveExt)
	require.NoError(t, WriteArchive(archive, testMeta("cf32_le", 1e6), samples))

	pair, err := Open(base)
	require.NoError(t, err)
	defer pair.Close()
	arch, err := Open(archive)
	require.NoError(t, err)
	defer arch.Close()

	assert.Equal(t, pair.Len(), arch.Len())
	assert.Equal(t, pair.SampleRate(), arch.SampleRate())
	a, err := pair.Slice(10, 200)
	require.NoError(t, err)
	b, err := arch.Slice(10, 200)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(arch.Path(), archive))
}

func TestMetadataAccessors(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "meta")
	meta := `{
	"global": {
		"core:datatype": "rf32_le",
		"core:sample_rate": 48000,
		"core:version": "1.2.0",
		"acme:gain_db": 12.5
	},
	"captures": [{"core:sample_start": 0, "core:frequency": 1.5e6, "core:datetime": "2025-09-20T12:34:56.5Z"}],
	"annotations": [{"core:sample_start": 2, "core:sample_count": 4, "core:label": "burst"}]
}`
	require.NoError(t, os.WriteFile(base+MetaExt, []byte(meta), 0o644))
	require.NoError(t, os.WriteFile(base+DataExt, make([]byte, 40), 0o644))

	c, err := Open(base)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Complex())
	assert.Equal(t, 10, c.Len())
	assert.Equal(t, 48000.0, c.SampleRate())
	assert.Equal(t, 1.5e6, c.Frequency())
	start, ok := c.Start()
	require.True(t, ok)
	assert.Equal(t, 500_000_000, start.Nanosecond())
	require.Len(t, c.Annotations(), 1)
	assert.Equal(t, "burst", c.Annotations()[0].Label)

	v, ok := c.GlobalField("acme:gain_db")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)
	v, ok = c.GlobalField(SampleRateKey)
	require.True(t, ok)
	assert.Equal(t, 48000.0, v)
	_, ok = c.GlobalField("core:missing")
	assert.False(t, ok)
}

func TestMultiChannelSelection(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mc")
	meta := `{"global":{"core:datatype":"ri16_le","core:sample_rate":1000,"core:num_channels":2}}`
	require.NoError(t, os.WriteFile(base+MetaExt, []byte(meta), 0o644))

	raw := make([]byte, 0, 16)
	for i := 0; i < 4; i++ {
		raw = binary.LittleEndian.AppendUint16(raw, uint16(int16(1000*i)))
		raw = binary.LittleEndian.AppendUint16(raw, uint16(int16(-1000*i)))
	}
	require.NoError(t, os.WriteFile(base+DataExt, raw, 0o644))

	for ch, sign := range []float64{1, -1} {
		c, err := Open(base, WithChannel(ch))
		require.NoError(t, err)
		require.Equal(t, 4, c.Len())
		got, err := c.ReadAll()
		require.NoError(t, err)
		for i, v := range got {
			assert.InDelta(t, sign*1000*float64(i)/32768, real(v), 1e-12)
		}
		c.Close()
	}

	_, err := Open(base, WithChannel(2))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestHeaderBytesAreSkipped(t *testing.T) {
	base := filepath.Join(t.TempDir(), "hdr")
	meta := `{"global":{"core:datatype":"ri8","core:sample_rate":1000},
	"captures":[{"core:sample_start":0,"core:header_bytes":3},{"core:sample_start":4,"core:header_bytes":2}]}`
	require.NoError(t, os.WriteFile(base+MetaExt, []byte(meta), 0o644))
	raw := []byte{0xff, 0xff, 0xff, 1, 2, 3, 4, 0xee, 0xee, 5, 6, 7}
	require.NoError(t, os.WriteFile(base+DataExt, raw, 0o644))

	c, err := Open(base)
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, 7, c.Len())

	got, err := c.Slice(2, 7)
	require.NoError(t, err)
	for i, v := range got {
		assert.InDelta(t, float64(i+3)/128, real(v), 1e-12, "sample %d", i+2)
	}
}

func TestTrailingPartialSampleIgnored(t *testing.T) {
	base := writePair(t, "ci16_le", ramp(5))
	f, err := os.OpenFile(base+DataExt, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c, err := Open(base)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, 5, c.Len())
}

func TestVerify(t *testing.T) {
	base := writePair(t, "cf32_le", ramp(32))

	c, err := Open(base, WithVerify())
	require.NoError(t, err)
	c.Close()

	raw, err := os.ReadFile(base + DataExt)
	require.NoError(t, err)
	raw[0] ^= 0xff
	require.NoError(t, os.WriteFile(base+DataExt, raw, 0o644))

	_, err = Open(base, WithVerify())
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), SHA512Key)
}

func TestReadTwiceIsIdentical(t *testing.T) {
	base := writePair(t, "cf32_le", ramp(1000))
	read := func() []complex128 {
		c, err := Open(base)
		require.NoError(t, err)
		defer c.Close()
		s, err := c.Slice(100, 900)
		require.NoError(t, err)
		return s
	}
	assert.Equal(t, read(), read())
}

func TestRoundTripEveryDatatype(t *testing.T) {
	samples := []complex128{0, 0.5 - 0.25i, -0.5 + 0.125i, 0.25 + 0.75i, -1 + 0.5i}
	for _, dt := range []string{
		"cf64_le", "cf32_le", "cf16_le", "ci32_le", "ci16_le", "cu16_le", "ci8", "cu8",
		"cf32_be", "ci16_be", "cu32_be", "rf32_le", "ri16_le", "ru8",
	} {
		t.Run(dt, func(t *testing.T) {
			d, err := ParseDatatype(dt)
			require.NoError(t, err)
			c, err := Open(writePair(t, dt, samples))
			require.NoError(t, err)
			defer c.Close()
			got, err := c.ReadAll()
			require.NoError(t, err)

			want := samples
			if !d.Complex {
				want = make([]complex128, len(samples))
				for i, v := range samples {
					want[i] = complex(real(v), 0)
				}
			}
			eps := 1e-9
			if d.Kind != Float {
				eps = 2 / math.Ldexp(1, d.Bits-1)
			} else if d.Bits == 16 {
				eps = 1e-3
			}
			requireSamplesNear(t, want, got, eps)
		})
	}
}
