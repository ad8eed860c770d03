package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/siglab/siglab-go/internal/errors"
)

// Default STFT geometry for the doppler analyzer and the spectrogram
// endpoint.
const (
	DefaultFFTSize = 2048
	DefaultHopSize = 256
)

// Spectrogram holds an STFT magnitude matrix in decibels, with its axes.
// Magnitudes is indexed [frame][bin].
type Spectrogram struct {
	Magnitudes  [][]float64
	Frequencies []float64
	Times       []float64
	Rate        int
	FFTSize     int
	HopSize     int
}

// ComputeSpectrogram computes a Hann-windowed STFT magnitude spectrogram
// in dB. Buffers shorter than fftSize are processed as a single
// zero-padded frame.
func ComputeSpectrogram(samples []float64, rate, fftSize, hopSize int) (*Spectrogram, error) {
	if rate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", rate).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}
	if fftSize <= 0 || hopSize <= 0 {
		return nil, errors.Newf("invalid stft geometry: fft=%d hop=%d", fftSize, hopSize).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}

	numFrames := 0
	if len(samples) >= fftSize {
		numFrames = (len(samples)-fftSize)/hopSize + 1
	} else if len(samples) > 0 {
		numFrames = 1
	}

	nBins := fftSize/2 + 1
	fft := fourier.NewFFT(fftSize)
	win := make([]float64, fftSize)
	for i := range win {
		win[i] = 1
	}
	window.Hann(win)

	mags := make([][]float64, numFrames)
	times := make([]float64, numFrames)
	frame := make([]float64, fftSize)
	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		for i := range frame {
			if start+i < len(samples) {
				frame[i] = samples[start+i] * win[i]
			} else {
				frame[i] = 0
			}
		}
		spectrum := fft.Coefficients(nil, frame)
		row := make([]float64, nBins)
		for k, c := range spectrum {
			row[k] = 20 * math.Log10(cmplxAbs(c)+1e-10)
		}
		mags[f] = row
		times[f] = float64(start) / float64(rate)
	}

	freqs := make([]float64, nBins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(rate) / float64(fftSize)
	}

	return &Spectrogram{
		Magnitudes:  mags,
		Frequencies: freqs,
		Times:       times,
		Rate:        rate,
		FFTSize:     fftSize,
		HopSize:     hopSize,
	}, nil
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// Decimate reduces the spectrogram to at most maxFrames by maxBins by
// keeping evenly strided rows and columns. Display payloads do not need
// full STFT resolution.
func (s *Spectrogram) Decimate(maxFrames, maxBins int) *Spectrogram {
	frameStep := 1
	if maxFrames > 0 && len(s.Magnitudes) > maxFrames {
		frameStep = (len(s.Magnitudes) + maxFrames - 1) / maxFrames
	}
	binStep := 1
	if maxBins > 0 && len(s.Frequencies) > maxBins {
		binStep = (len(s.Frequencies) + maxBins - 1) / maxBins
	}
	if frameStep == 1 && binStep == 1 {
		return s
	}

	out := &Spectrogram{
		Rate:    s.Rate,
		FFTSize: s.FFTSize,
		HopSize: s.HopSize,
	}
	for f := 0; f < len(s.Magnitudes); f += frameStep {
		row := make([]float64, 0, (len(s.Magnitudes[f])+binStep-1)/binStep)
		for k := 0; k < len(s.Magnitudes[f]); k += binStep {
			row = append(row, s.Magnitudes[f][k])
		}
		out.Magnitudes = append(out.Magnitudes, row)
		out.Times = append(out.Times, s.Times[f])
	}
	for k := 0; k < len(s.Frequencies); k += binStep {
		out.Frequencies = append(out.Frequencies, s.Frequencies[k])
	}
	return out
}

// FrameEnergies returns the RMS magnitude of each frame, computed from
// the stored dB values.
func (s *Spectrogram) FrameEnergies() []float64 {
	out := make([]float64, len(s.Magnitudes))
	for f, row := range s.Magnitudes {
		var sum float64
		for _, db := range row {
			mag := math.Pow(10, db/20)
			sum += mag * mag
		}
		if len(row) > 0 {
			out[f] = math.Sqrt(sum / float64(len(row)))
		}
	}
	return out
}

// DominantFrequencies returns the peak frequency of each frame.
func (s *Spectrogram) DominantFrequencies() []float64 {
	out := make([]float64, len(s.Magnitudes))
	for f, row := range s.Magnitudes {
		best := 0
		for k := 1; k < len(row); k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		out[f] = s.Frequencies[best]
	}
	return out
}
