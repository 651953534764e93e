//go:build speaker

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/neurlang/specgram/demod"
)

// playAudio plays audio on the default output device and returns once it has
// finished or ctx is cancelled.
func playAudio(ctx context.Context, audio []float64, rate int) error {
	sr := beep.SampleRate(rate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	defer speaker.Close()

	done := make(chan struct{})
	speaker.Play(beep.Seq(demod.Streamer(audio), beep.Callback(func() {
		close(done)
	})))
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
