// Package render turns a computed spectrogram into an image.
//
// Time runs along the x axis and frequency along the y axis, with the highest
// frequency in the top row. Power is shown in decibels relative to the
// strongest bin and mapped through a colour map. Spectrograms with more frames
// or bins than the configured maximum size are reduced by taking the maximum
// of each cell, so narrow carriers stay visible.
package render
