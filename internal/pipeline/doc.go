// Package pipeline loads a capture, computes its spectrogram and delivers the
// rendered image to a file, object storage or the browser viewer.
package pipeline
