// Package capture opens recorded RF captures of any supported container
// behind one interface: SigMF recordings and archives, I/Q WAV and FLAC files,
// and any of those stored under an s3:// location.
package capture
