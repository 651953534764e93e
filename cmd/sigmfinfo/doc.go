// Command sigmfinfo prints the metadata of a capture and, optionally,
// statistics of its samples.
//
// Usage:
//
//	sigmfinfo <capture> [--format table|json|yaml] [--stats] [--limit n]
//
// The capture may be any name specgram accepts. With --stats the sample
// magnitudes of the first --limit samples are summarised.
package main
