package main

import (
	"bytes"
	"context"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurlang/specgram/sigmf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh specgram command and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCapture(t *testing.T) string {
	t.Helper()
	const fs = 48_000.0
	x := make([]complex128, 8192)
	for i := range x {
		x[i] = cmplx.Rect(0.5, 2*math.Pi*6000*float64(i)/fs)
	}
	base := filepath.Join(t.TempDir(), "tone")
	require.NoError(t, sigmf.Write(base, &sigmf.Meta{
		Global:   sigmf.Global{Datatype: "cf32_le", SampleRate: fs},
		Captures: []sigmf.Segment{{Frequency: 100e6}},
	}, x))
	return base + sigmf.MetaExt
}

func TestEnvironmentDrivesDefaultRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plot.png")
	t.Setenv("SPECGRAM_CAPTURE", writeCapture(t))
	t.Setenv("SPECGRAM_OUT", out)
	t.Setenv("SPECGRAM_NFFT", "1024")
	t.Setenv("SPECGRAM_LOG_LEVEL", "warn")

	printed, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, printed, "8 frames x 1024 bins")
	assert.Contains(t, printed, "peak 100006000 Hz")
	assert.Contains(t, printed, out)
	_, err = os.Stat(out)
	assert.NoError(t, err)

	printed, err = execute(t, "--nfft", "2048")
	require.NoError(t, err)
	assert.Contains(t, printed, "4 frames x 2048 bins", "flags take precedence")
}

func TestMissingCapture(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SPECGRAM_CAPTURE", filepath.Join(dir, "absent.sigmf"))
	t.Setenv("SPECGRAM_OUT", filepath.Join(dir, "plot.png"))
	t.Setenv("SPECGRAM_LOG_LEVEL", "warn")

	printed, err := execute(t)
	assert.ErrorIs(t, err, sigmf.ErrFormat)
	assert.Empty(t, printed)
	_, err = os.Stat(filepath.Join(dir, "plot.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRejectsPositionalArguments(t *testing.T) {
	_, err := execute(t, "capture.sigmf")
	assert.Error(t, err)
}
