// Package demod recovers broadcast FM audio from complex baseband captures.
//
// The station is shifted to DC with a numerically controlled oscillator,
// filtered to the broadcast channel and decimated to an intermediate rate of
// at least 240 kHz. A polar discriminator and single-pole de-emphasis run at
// that rate before the audio is band limited, decimated and stripped of the
// stereo pilot. The result can be written as a 16-bit mono WAV file or
// played through a beep speaker.
package demod
