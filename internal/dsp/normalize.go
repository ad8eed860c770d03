package dsp

import "math"

// Amplitude conditioning constants for browser-safe playback.
const (
	// TargetRMS is the loudness target applied before soft clipping.
	TargetRMS = 0.3
	// SoftClipKnee is the amplitude above which samples are compressed.
	SoftClipKnee = 0.8
	// SafetyCeiling is the final hard limit before quantization.
	SafetyCeiling = 0.95
)

// HardClip bounds every sample to [lo, hi] in place.
func HardClip(samples []float64, lo, hi float64) {
	for i, s := range samples {
		if s < lo {
			samples[i] = lo
		} else if s > hi {
			samples[i] = hi
		}
	}
}

// RMS returns the root mean square amplitude of samples, 0 for an
// empty buffer.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// NormalizeRMS scales samples in place so their RMS equals target.
// Silent buffers are left untouched.
func NormalizeRMS(samples []float64, target float64) {
	rms := RMS(samples)
	if rms <= 0 {
		return
	}
	gain := target / rms
	for i := range samples {
		samples[i] *= gain
	}
}

// SoftClip compresses a single sample above the knee with an exponential
// soft knee. Samples below the knee pass unchanged; samples above are
// mapped to sign(x)*(knee + (1-knee)*(1 - e^{-(|x|-knee)})), which
// approaches but never reaches full scale. The transform is continuous
// at the knee and monotonic.
func SoftClip(x, knee float64) float64 {
	ax := math.Abs(x)
	if ax < knee {
		return x
	}
	y := knee + (1-knee)*(1-math.Exp(-(ax-knee)))
	return math.Copysign(y, x)
}

// SoftClipBuffer applies SoftClip to every sample in place.
func SoftClipBuffer(samples []float64, knee float64) {
	for i, s := range samples {
		samples[i] = SoftClip(s, knee)
	}
}

// SanitizeNonFinite replaces NaN and infinite samples with 0 in place.
func SanitizeNonFinite(samples []float64) {
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			samples[i] = 0
		}
	}
}

// QuantizePCM16 converts conditioned float samples to 16-bit signed PCM,
// rounding and clamping to the representable range.
func QuantizePCM16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(s * 32767)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
