//go:build !speaker

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurlang/specgram/sigmf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayWithoutSpeaker(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "iq")
	require.NoError(t, sigmf.Write(base, &sigmf.Meta{
		Global: sigmf.Global{Datatype: "cf32_le", SampleRate: 240_000},
	}, make([]complex128, 4800)))

	offset, tau, gain, start, channel = 0, 75e-6, 1, 0, 0
	outFile = filepath.Join(dir, "out.wav")
	specFile = ""
	play = true
	defer func() { play = false }()

	assert.ErrorIs(t, run(context.Background(), base, false, false), errNoSpeaker)
	_, err := os.Stat(outFile)
	assert.NoError(t, err, "audio is written before playback")
}
