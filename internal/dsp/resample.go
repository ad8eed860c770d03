// Package dsp implements the shared signal-processing core used by the
// voice, doppler and drone services: Fourier-domain resampling, aliasing
// metadata, playback conditioning and spectrogram computation.
//
// Resampling is deliberately frequency-domain rather than interpolating.
// Truncating the spectrum reproduces spectral aliasing authentically when
// the target rate is below the signal bandwidth, which is the whole point
// of the aliasing demonstrations built on top of this package.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/siglab/siglab-go/internal/errors"
)

// ResampledLength returns the number of samples a buffer of length n
// holds after resampling from originalRate to targetRate.
func ResampledLength(n, originalRate, targetRate int) int {
	return int(math.Round(float64(n) * float64(targetRate) / float64(originalRate)))
}

// Resample converts samples from originalRate to targetRate using the
// Fourier method: forward real FFT, spectrum truncation or zero padding,
// inverse FFT at the new length. The output has exactly
// ResampledLength(len(samples), originalRate, targetRate) samples.
//
// An empty input yields an empty output. Non-positive rates are rejected.
func Resample(samples []float64, originalRate, targetRate int) ([]float64, error) {
	if originalRate <= 0 || targetRate <= 0 {
		return nil, errors.Newf("invalid sample rate: original=%d target=%d", originalRate, targetRate).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(samples) == 0 {
		return []float64{}, nil
	}
	if originalRate == targetRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	n := len(samples)
	m := ResampledLength(n, originalRate, targetRate)
	if m == 0 {
		return []float64{}, nil
	}

	fwd := fourier.NewFFT(n)
	spectrum := fwd.Coefficients(nil, samples)

	// Carry over the shared bins; the rest of the new spectrum stays zero
	// when upsampling, and the dropped bins fold away when downsampling.
	resized := make([]complex128, m/2+1)
	shared := min(n, m)
	nyq := shared/2 + 1
	copy(resized[:nyq], spectrum[:nyq])

	// The shared Nyquist bin holds both the positive and negative
	// frequency contribution. Keep its energy consistent across the
	// length change, matching the standard Fourier-method treatment.
	if shared%2 == 0 {
		switch {
		case m < n:
			resized[shared/2] *= 2
		case m > n:
			resized[shared/2] *= 0.5
		}
	}

	inv := fourier.NewFFT(m)
	out := inv.Sequence(nil, resized)

	// gonum's inverse transform is unnormalized (scales by m); combined
	// with the amplitude-preserving m/n factor this reduces to 1/n.
	scale := 1.0 / float64(n)
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}
