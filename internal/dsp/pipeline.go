package dsp

import (
	"github.com/siglab/siglab-go/internal/errors"
)

// Mode selects how prepared audio is going to be consumed.
type Mode string

const (
	// ModePlayback enforces a minimum output rate for device compatibility.
	ModePlayback Mode = "playback"
	// ModeDownload preserves the analysis rate exactly in the output.
	ModeDownload Mode = "download"
)

// Rate constants shared by the aliasing services.
const (
	// AliasingThreshold is the rate below which voice-band content
	// necessarily folds. A fixed domain constant, not derived per signal.
	AliasingThreshold = 8000
	// MinPlaybackRate is the lowest rate emitted in playback mode.
	MinPlaybackRate = 8000
)

// ParseMode validates a mode string, defaulting empty to playback.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePlayback, ModeDownload:
		return Mode(s), nil
	case "":
		return ModePlayback, nil
	default:
		return "", errors.Newf("invalid mode %q", s).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}
}

// AliasingMetadata describes the spectral consequences of a sample rate.
type AliasingMetadata struct {
	NyquistFrequency float64 `json:"nyquist_frequency"`
	IsAliasing       bool    `json:"is_aliasing"`
}

// Pipeline carries the configured tunables for analysis resampling and
// playback conditioning. Construct one from settings or use
// DefaultPipeline; the zero value would silence every output.
type Pipeline struct {
	AliasingThreshold int
	MinPlaybackRate   int
	TargetRMS         float64
	SoftClipKnee      float64
}

// DefaultPipeline returns a Pipeline with the stock tunables.
func DefaultPipeline() Pipeline {
	return Pipeline{
		AliasingThreshold: AliasingThreshold,
		MinPlaybackRate:   MinPlaybackRate,
		TargetRMS:         TargetRMS,
		SoftClipKnee:      SoftClipKnee,
	}
}

// ComputeAliasingMetadata derives Nyquist and the aliasing flag from the
// analysis rate alone.
func (p Pipeline) ComputeAliasingMetadata(rate int) AliasingMetadata {
	return AliasingMetadata{
		NyquistFrequency: float64(rate) / 2.0,
		IsAliasing:       rate < p.AliasingThreshold,
	}
}

// ComputeAliasingMetadata applies the default aliasing threshold.
func ComputeAliasingMetadata(rate int) AliasingMetadata {
	return DefaultPipeline().ComputeAliasingMetadata(rate)
}

// AnalysisResult is the analysis-rate buffer with its aliasing metadata.
type AnalysisResult struct {
	Samples      []float64
	Rate         int
	WasResampled bool
	AliasingMetadata
}

// PlaybackPayload is a playback-safe quantized buffer ready for encoding.
type PlaybackPayload struct {
	Samples      []int16
	Rate         int
	WasUpsampled bool
}

// ResampleForAnalysis resamples buffer to targetRate and computes the
// aliasing metadata of the resulting rate. A targetRate of 0 means keep
// the original rate; a negative targetRate is rejected. The analysis
// rate is the rate at which aliasing would physically occur, so the
// metadata always reflects it rather than any later playback rate.
func (p Pipeline) ResampleForAnalysis(buffer []float64, originalRate, targetRate int) (*AnalysisResult, error) {
	if originalRate <= 0 {
		return nil, errors.Newf("invalid original rate %d", originalRate).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}
	if targetRate < 0 {
		return nil, errors.Newf("invalid target rate %d", targetRate).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}

	rate := originalRate
	samples := buffer
	resampled := false
	if targetRate > 0 && targetRate != originalRate {
		out, err := Resample(buffer, originalRate, targetRate)
		if err != nil {
			return nil, err
		}
		samples = out
		rate = targetRate
		resampled = true
	} else {
		samples = make([]float64, len(buffer))
		copy(samples, buffer)
	}

	return &AnalysisResult{
		Samples:          samples,
		Rate:             rate,
		WasResampled:     resampled,
		AliasingMetadata: p.ComputeAliasingMetadata(rate),
	}, nil
}

// ResampleForAnalysis applies the default pipeline tunables.
func ResampleForAnalysis(buffer []float64, originalRate, targetRate int) (*AnalysisResult, error) {
	return DefaultPipeline().ResampleForAnalysis(buffer, originalRate, targetRate)
}

// PreparePlayback conditions an analysis-rate buffer for safe playback:
// upsample to the playback floor when the mode requires it, then hard
// clip, normalize loudness, soft clip, clamp, sanitize and quantize.
// Download mode never changes the rate.
func (p Pipeline) PreparePlayback(buffer []float64, rate int, mode Mode) (*PlaybackPayload, error) {
	if rate <= 0 {
		return nil, errors.Newf("invalid playback rate %d", rate).
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}

	outRate := rate
	upsampled := false
	samples := make([]float64, len(buffer))
	copy(samples, buffer)

	if mode == ModePlayback && rate < p.MinPlaybackRate {
		out, err := Resample(samples, rate, p.MinPlaybackRate)
		if err != nil {
			return nil, err
		}
		// The upsample is a compatibility step only: the aliased
		// spectrum is preserved, not reconstructed.
		samples = out
		outRate = p.MinPlaybackRate
		upsampled = true
	}

	HardClip(samples, -1.0, 1.0)
	NormalizeRMS(samples, p.TargetRMS)
	SoftClipBuffer(samples, p.SoftClipKnee)
	HardClip(samples, -SafetyCeiling, SafetyCeiling)
	SanitizeNonFinite(samples)

	return &PlaybackPayload{
		Samples:      QuantizePCM16(samples),
		Rate:         outRate,
		WasUpsampled: upsampled,
	}, nil
}

// PreparePlayback applies the default pipeline tunables.
func PreparePlayback(buffer []float64, rate int, mode Mode) (*PlaybackPayload, error) {
	return DefaultPipeline().PreparePlayback(buffer, rate, mode)
}
