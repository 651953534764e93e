// Command fmdemod demodulates one broadcast FM station from an I/Q capture
// into a mono WAV file.
//
// Usage:
//
//	fmdemod <capture> --offset <Hz> [--decimation n] [--out file.wav] [--spectrogram file.png] [--play]
//
// --offset is the distance of the station from the capture centre
// frequency. The default decimation brings the audio rate close to 48 kHz.
// With --spectrogram the spectrogram of the recovered audio is written too.
// --play sends the audio to the default output device; it needs a binary
// built with -tags speaker.
package main
