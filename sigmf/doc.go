// Package sigmf reads and writes recordings in the Signal Metadata Format.
//
// A recording is a pair of files sharing a base name: a JSON metadata file
// (.sigmf-meta) and a binary sample file (.sigmf-data), or a tar archive
// (.sigmf) holding both. This package supports:
//   - resolving any of the three names to the same recording
//   - all core sample datatypes, complex and real, 8 to 64 bit
//   - multi-channel recordings and per-segment header bytes
//   - lazy sample access by index range, with SHA-512 verification on demand
package sigmf
