package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/neurlang/specgram/sigmf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(i%16)/32, -float64(i%8)/16)
	}
	return out
}

func writeWAV(t *testing.T, samples []complex128, channels, rate int) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "iq.wav")
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()

	pos := 0
	streamer := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(samples) {
			buf[n] = [2]float64{real(samples[pos]), imag(samples[pos])}
			n++
			pos++
		}
		return n, true
	})
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: channels, Precision: 2}
	require.NoError(t, wav.Encode(f, streamer, format))
	return name
}

func TestOpenSigMF(t *testing.T) {
	base := filepath.Join(t.TempDir(), "rec")
	samples := tone(64)
	meta := &sigmf.Meta{
		Global:   sigmf.Global{Datatype: "cf32_le", SampleRate: 2e6, Description: "fm band"},
		Captures: []sigmf.Segment{{Frequency: 94.5e6, Datetime: "2025-09-20T10:00:00Z"}},
	}
	require.NoError(t, sigmf.Write(base, meta, samples))

	c, err := Open(context.Background(), base+sigmf.MetaExt, Options{})
	require.NoError(t, err)
	defer c.Close()

	info := c.Info()
	assert.Equal(t, "sigmf", info.Format)
	assert.Equal(t, "cf32_le", info.Datatype)
	assert.Equal(t, 64, info.Samples)
	assert.Equal(t, 94.5e6, info.Frequency)
	assert.Equal(t, "fm band", info.Description)
	require.NotNil(t, info.Start)
	assert.Equal(t, 10, info.Start.Hour())
	assert.Equal(t, 32*time.Microsecond, info.Duration())

	got, err := ReadAll(c)
	require.NoError(t, err)
	assert.InDelta(t, real(samples[5]), real(got[5]), 1e-7)

	_, err = c.Slice(0, 65)
	assert.ErrorIs(t, err, ErrBounds)
}

func TestOpenMissingSidecar(t *testing.T) {
	base := filepath.Join(t.TempDir(), "rec")
	require.NoError(t, os.WriteFile(base+sigmf.DataExt, make([]byte, 64), 0o644))

	c, err := Open(context.Background(), base+sigmf.DataExt, Options{})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestOpenStereoWAVAsIQ(t *testing.T) {
	samples := tone(5000)
	name := writeWAV(t, samples, 2, 48000)

	c, err := Open(context.Background(), name, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Complex())
	assert.Equal(t, 48000.0, c.SampleRate())
	require.Equal(t, len(samples), c.Len())
	assert.Equal(t, "ci16_le", c.Info().Datatype)

	got, err := c.Slice(100, 200)
	require.NoError(t, err)
	for i, v := range got {
		assert.InDelta(t, real(samples[100+i]), real(v), 1e-3)
		assert.InDelta(t, imag(samples[100+i]), imag(v), 1e-3)
	}

	_, err = c.Slice(4990, 5001)
	assert.ErrorIs(t, err, ErrBounds)
}

func TestOpenMonoWAVAsReal(t *testing.T) {
	name := writeWAV(t, tone(100), 1, 8000)

	c, err := Open(context.Background(), name, Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Complex())
	got, err := ReadAll(c)
	require.NoError(t, err)
	for _, v := range got {
		assert.Zero(t, imag(v))
	}
	assert.Equal(t, "wav", c.Info().Format)
}

func TestOpenBrokenAudioFiles(t *testing.T) {
	dir := t.TempDir()
	junkWAV := filepath.Join(dir, "junk.wav")
	junkFLAC := filepath.Join(dir, "junk.flac")
	require.NoError(t, os.WriteFile(junkWAV, []byte("RIFF but not really"), 0o644))
	require.NoError(t, os.WriteFile(junkFLAC, []byte("fLaC but not really"), 0o644))

	for _, name := range []string{junkWAV, junkFLAC, filepath.Join(dir, "absent.wav"), filepath.Join(dir, "absent.flac")} {
		c, err := Open(context.Background(), name, Options{})
		assert.Nil(t, c, name)
		assert.ErrorIs(t, err, ErrFormat, name)
	}
}

// wavHeader is a 16-bit stereo PCM header whose data chunk claims size bytes.
func wavHeader(size int32) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, size+36)
	b.WriteString("WAVEfmt ")
	for _, v := range []any{int32(16), int16(1), int16(2), int32(48000), int32(48000 * 4), int16(4), int16(16)} {
		binary.Write(&b, binary.LittleEndian, v)
	}
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, size)
	return b.Bytes()
}

func TestOpenWAVWithInflatedDataChunk(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short.wav")
	data := append(wavHeader(1<<31-37), 1, 0, 2, 0, 3, 0, 4, 0)
	require.NoError(t, os.WriteFile(short, data, 0o644))

	negative := filepath.Join(dir, "negative.wav")
	require.NoError(t, os.WriteFile(negative, wavHeader(-8), 0o644))

	for _, name := range []string{short, negative} {
		c, err := OpenWAV(name)
		assert.Nil(t, c, name)
		assert.ErrorIs(t, err, ErrFormat, name)
	}
}

type memStore map[string][]byte

func (m memStore) Download(_ context.Context, bucket, key string, w io.Writer) error {
	b, ok := m[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("no such key %s/%s", bucket, key)
	}
	_, err := w.Write(b)
	return err
}

func (m memStore) Upload(_ context.Context, bucket, key, _ string, body io.ReadSeeker) error {
	b, err := io.ReadAll(body)
	m[bucket+"/"+key] = b
	return err
}

func TestOpenRemoteArchiveCleansUp(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "rec"+sigmf.ArchiveExt)
	require.NoError(t, sigmf.WriteArchive(archive, &sigmf.Meta{
		Global: sigmf.Global{Datatype: "ci16_le", SampleRate: 1e6},
	}, tone(128)))
	body, err := os.ReadFile(archive)
	require.NoError(t, err)
	store := memStore{"caps/rec.sigmf": body}

	c, err := Open(context.Background(), "s3://caps/rec.sigmf", Options{Store: store})
	require.NoError(t, err)
	assert.Equal(t, 128, c.Len())

	dir := c.(*remoteCapture).dir
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRemoteWithoutStore(t *testing.T) {
	_, err := Open(context.Background(), "s3://caps/rec", Options{})
	assert.Error(t, err)
}
