// Package logging configures the global zerolog logger for the command line
// tools.
package logging
