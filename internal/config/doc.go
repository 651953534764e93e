// Package config loads settings for the spectrogram tools from defaults, an
// optional config file, SPECGRAM_ environment variables and command line
// flags, in increasing order of precedence.
package config
