//go:build !speaker

package main

import (
	"context"
	"errors"
)

// errNoSpeaker is returned by --play when the binary has no audio output.
var errNoSpeaker = errors.New("fmdemod built without speaker support, rebuild with -tags speaker")

func playAudio(context.Context, []float64, int) error {
	return errNoSpeaker
}
