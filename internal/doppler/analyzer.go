package doppler

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/siglab/siglab-go/internal/dsp"
	"github.com/siglab/siglab-go/internal/logging"
)

// Analysis thresholds.
const (
	minValidFrequency   = 50
	maxValidFrequency   = 5000
	minVehicleSpeed     = 8   // m/s
	maxVehicleSpeed     = 200 // m/s
	medianFilterKernel  = 5
	maxWaveformPoints   = 1000
	minPhaseSampleCount = 5
)

// Waveform is a decimated time/amplitude pair for visualization.
type Waveform struct {
	Time      []float64 `json:"time"`
	Amplitude []float64 `json:"amplitude"`
}

// AnalysisDetails carries the intermediate quantities behind a Doppler
// speed estimate.
type AnalysisDetails struct {
	FrequencyShift      float64 `json:"frequency_shift"`
	FrequencyShiftRatio float64 `json:"frequency_shift_ratio"`
	ApproachSamples     int     `json:"approach_samples"`
	RecedeSamples       int     `json:"recede_samples"`
	ApproachVelocityMS  float64 `json:"approach_velocity_ms"`
	RecedeVelocityMS    float64 `json:"recede_velocity_ms"`
	MeanVelocityMS      float64 `json:"mean_velocity_ms"`
}

// Analysis is the result of a vehicle sound analysis.
type Analysis struct {
	IsVehicle         bool             `json:"is_vehicle"`
	EstimatedSpeedKMH float64          `json:"estimated_speed"`
	SourceFrequency   float64          `json:"source_frequency"`
	ApproachFrequency float64          `json:"approach_frequency"`
	RecedeFrequency   float64          `json:"recede_frequency"`
	ClosestPointTime  float64          `json:"closest_point_time"`
	Confidence        float64          `json:"confidence"`
	SoundType         string           `json:"sound_type"`
	Duration          float64          `json:"duration"`
	AnalysisMethod    string           `json:"analysis_method"`
	Message           string           `json:"message"`
	Details           *AnalysisDetails `json:"analysis_details,omitempty"`
	Waveform          *Waveform        `json:"waveform_data,omitempty"`
}

// Analyzer detects Doppler shifts in recorded audio and estimates the
// source vehicle's speed.
type Analyzer struct{}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs the full Doppler analysis over a mono buffer. It never
// fails outright: when the spectral analysis cannot produce a usable
// estimate it degrades to coarser heuristics, recording which method
// produced the result.
func (a *Analyzer) Analyze(samples []float64, rate int) *Analysis {
	waveform := buildWaveform(samples, rate)
	if len(samples) == 0 || rate <= 0 {
		return &Analysis{
			SoundType:      "error",
			AnalysisMethod: "error",
			Message:        "no audio data found in file",
			Waveform:       waveform,
		}
	}

	result := a.spectralAnalysis(samples, rate)
	result.Waveform = waveform
	return result
}

func (a *Analyzer) spectralAnalysis(samples []float64, rate int) *Analysis {
	log := logging.ForService("doppler")

	spec, err := dsp.ComputeSpectrogram(samples, rate, dsp.DefaultFFTSize, dsp.DefaultHopSize)
	if err != nil || len(spec.Magnitudes) == 0 {
		return a.basicAnalysis(samples, rate, "spectrogram computation failed")
	}

	dominant := spec.DominantFrequencies()
	energies := spec.FrameEnergies()

	// The loudest frame marks the closest point of approach; frequency
	// tracks on either side of it form the approach and recede phases.
	closestIdx := argmax(energies)
	closestTime := spec.Times[closestIdx]

	approach := medianFilter(dominant[:closestIdx], medianFilterKernel)
	recede := medianFilter(dominant[closestIdx:], medianFilterKernel)
	if len(approach) == 0 || len(recede) == 0 {
		return a.basicAnalysis(samples, rate, "no frames on one side of closest approach")
	}

	meanApproach := stat.Mean(approach, nil)
	meanRecede := stat.Mean(recede, nil)
	sourceFreq := (meanApproach + meanRecede) / 2

	approachVelocity := SoundSpeed * (meanApproach - sourceFreq) / meanApproach
	recedeVelocity := SoundSpeed * (sourceFreq - meanRecede) / meanRecede
	meanVelocity := (math.Abs(approachVelocity) + math.Abs(recedeVelocity)) / 2

	if meanApproach < minValidFrequency || meanRecede < minValidFrequency ||
		meanApproach > maxValidFrequency || meanRecede > maxValidFrequency ||
		math.IsNaN(meanApproach) || math.IsNaN(meanRecede) {
		return a.basicAnalysis(samples, rate, "frequency out of valid range")
	}

	frequencyShift := math.Abs(meanApproach - meanRecede)
	shiftRatio := 0.0
	if sourceFreq > 0 {
		shiftRatio = frequencyShift / sourceFreq
	}

	confidenceFactors := []float64{
		math.Min(1, shiftRatio*20),
		math.Min(1, float64(len(approach)+len(recede))/100),
		1 - math.Min(1, (popStdDev(approach)+popStdDev(recede))/(sourceFreq+1e-6)),
		math.Min(1, 1-math.Abs(approachVelocity-recedeVelocity)/(meanVelocity+1e-6)/2),
	}
	confidence := stat.Mean(confidenceFactors, nil)
	confidence = math.Max(0.1, math.Min(0.98, confidence))

	isVehicle := shiftRatio > 0.02 &&
		meanVelocity >= minVehicleSpeed && meanVelocity <= maxVehicleSpeed &&
		confidence > 0.3 &&
		len(approach) > minPhaseSampleCount &&
		len(recede) > minPhaseSampleCount

	soundType := "non-vehicle"
	if isVehicle {
		soundType = "vehicle"
	}

	log.Info("doppler analysis complete",
		"speed_kmh", meanVelocity*3.6,
		"confidence", confidence,
		"is_vehicle", isVehicle)

	return &Analysis{
		IsVehicle:         isVehicle,
		EstimatedSpeedKMH: meanVelocity * 3.6,
		SourceFrequency:   sourceFreq,
		ApproachFrequency: meanApproach,
		RecedeFrequency:   meanRecede,
		ClosestPointTime:  closestTime,
		Confidence:        confidence,
		SoundType:         soundType,
		Duration:          float64(len(samples)) / float64(rate),
		AnalysisMethod:    "spectral_doppler_analysis",
		Message:           "Doppler analysis completed successfully",
		Details: &AnalysisDetails{
			FrequencyShift:      frequencyShift,
			FrequencyShiftRatio: shiftRatio,
			ApproachSamples:     len(approach),
			RecedeSamples:       len(recede),
			ApproachVelocityMS:  approachVelocity,
			RecedeVelocityMS:    recedeVelocity,
			MeanVelocityMS:      meanVelocity,
		},
	}
}

// basicAnalysis classifies on coarse signal statistics when the Doppler
// track is unusable.
func (a *Analyzer) basicAnalysis(samples []float64, rate int, reason string) *Analysis {
	duration := float64(len(samples)) / float64(rate)
	rms := dsp.RMS(samples)
	centroid := spectralCentroid(samples, rate)

	isVehicle := rms > 0.002 &&
		centroid > 150 && centroid < 4000 &&
		duration > 2.0

	return &Analysis{
		IsVehicle:        isVehicle,
		ClosestPointTime: duration / 2,
		Confidence:       0.3,
		SoundType:        "basic_analysis",
		Duration:         duration,
		AnalysisMethod:   "basic_audio_analysis",
		Message:          reason + ". Using basic audio analysis.",
	}
}

// spectralCentroid returns the magnitude-weighted mean frequency
// averaged over STFT frames.
func spectralCentroid(samples []float64, rate int) float64 {
	spec, err := dsp.ComputeSpectrogram(samples, rate, dsp.DefaultFFTSize, dsp.DefaultHopSize)
	if err != nil || len(spec.Magnitudes) == 0 {
		return 1000
	}
	var total, count float64
	for _, row := range spec.Magnitudes {
		var weighted, magSum float64
		for k, db := range row {
			mag := math.Pow(10, db/20)
			weighted += spec.Frequencies[k] * mag
			magSum += mag
		}
		if magSum > 0 {
			total += weighted / magSum
			count++
		}
	}
	if count == 0 {
		return 1000
	}
	return total / count
}

// medianFilter applies a centered running median with zero padding at
// the edges.
func medianFilter(data []float64, kernel int) []float64 {
	if len(data) == 0 || kernel <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	half := kernel / 2
	out := make([]float64, len(data))
	window := make([]float64, 0, kernel)
	for i := range data {
		window = window[:0]
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(data) {
				window = append(window, 0)
			} else {
				window = append(window, data[j])
			}
		}
		sort.Float64s(window)
		out[i] = window[len(window)/2]
	}
	return out
}

func argmax(data []float64) int {
	best := 0
	for i := 1; i < len(data); i++ {
		if data[i] > data[best] {
			best = i
		}
	}
	return best
}

func popStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := stat.Mean(data, nil)
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(data)))
}

func buildWaveform(samples []float64, rate int) *Waveform {
	if len(samples) == 0 || rate <= 0 {
		return &Waveform{Time: []float64{0, 1}, Amplitude: []float64{0, 0}}
	}
	duration := float64(len(samples)) / float64(rate)
	step := len(samples) / maxWaveformPoints
	if step < 1 {
		step = 1
	}
	wf := &Waveform{}
	timeAxis := linspace(0, duration, len(samples))
	for i := 0; i < len(samples); i += step {
		wf.Time = append(wf.Time, timeAxis[i])
		wf.Amplitude = append(wf.Amplitude, samples[i])
	}
	return wf
}
