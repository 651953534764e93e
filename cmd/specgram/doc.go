// Command specgram renders the spectrogram of a radio capture.
//
// Run without arguments it loads res/fm_radio_20250920_6msps.sigmf, takes
// the first 10,000,000 samples (or all of them when the capture is shorter),
// computes an 8192-point Hann spectrogram and writes spectrogram.png.
//
// Usage:
//
//	specgram [flags]
//
// Captures may be SigMF recordings (.sigmf archives or .sigmf-meta and
// .sigmf-data pairs), I/Q WAV or FLAC files, or s3://bucket/key locations.
// The output may be a local PNG file or an s3:// location; with --view the
// image is served in the browser until the page is closed.
//
// Every flag can also be set in specgram.yaml or through a SPECGRAM_
// environment variable, for example SPECGRAM_NFFT=4096.
package main
