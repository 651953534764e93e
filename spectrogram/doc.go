// Package spectrogram computes short-time power spectra of sampled signals.
//
// Complex (I/Q) input yields a two-sided spectrum centred on DC with NFFT
// frequency bins; real input yields a one-sided spectrum with NFFT/2+1 bins.
// Segments advance by NFFT-Overlap samples and a trailing partial segment is
// dropped, so a signal of L samples gives (L-Overlap)/(NFFT-Overlap) frames.
package spectrogram
