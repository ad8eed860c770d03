package eeg

import (
	"fmt"
	"math"
)

// QualityReport pairs the numeric quality score with a verbal tier.
type QualityReport struct {
	Score      int    `json:"score"`
	Assessment string `json:"assessment"`
}

// Classification is the full analysis report for a loaded recording.
type Classification struct {
	SignalQuality       QualityReport                 `json:"signal_quality"`
	BandPowers          map[string]map[string]float64 `json:"band_powers"`
	DominantFrequencies map[string]float64            `json:"dominant_frequencies"`
	ChannelCount        int                           `json:"channel_count"`
	TotalDuration       float64                       `json:"total_duration"`
	AnalysisType        string                        `json:"analysis_type"`
	Insights            []string                      `json:"insights"`
}

// Classify computes band powers, dominant frequencies and per-channel
// insights for the dataset.
func Classify(d *Dataset, analysisType string) *Classification {
	if analysisType == "" {
		analysisType = "basic"
	}

	bandPowers := BandPowers(d)
	quality := SignalQuality(d.Channels)

	dominant := make(map[string]float64, len(d.ChannelNames))
	for i, name := range d.ChannelNames {
		if len(d.Channels[i]) > 10 {
			dominant[name] = DominantFrequency(d.Channels[i], d.SamplingRate)
		}
	}

	insights := make([]string, 0, len(d.ChannelNames))
	for _, name := range d.ChannelNames {
		maxBand := ""
		maxPower := math.Inf(-1)
		for _, band := range Bands {
			if p, ok := bandPowers[band.Name][name]; ok && p > maxPower {
				maxPower = p
				maxBand = band.Name
			}
		}
		if maxBand != "" {
			insights = append(insights, fmt.Sprintf("Channel %s: Dominant %s activity", name, maxBand))
		}
	}

	return &Classification{
		SignalQuality:       QualityReport{Score: quality, Assessment: qualityAssessment(quality)},
		BandPowers:          bandPowers,
		DominantFrequencies: dominant,
		ChannelCount:        len(d.Channels),
		TotalDuration:       d.Duration,
		AnalysisType:        analysisType,
		Insights:            insights,
	}
}

func qualityAssessment(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

// PolarSeries is one channel mapped onto polar coordinates: amplitude
// as radius, sample position as angle.
type PolarSeries struct {
	R     []float64 `json:"r"`
	Theta []float64 `json:"theta"`
}

// PolarData slices the recording for the polar plot view. Fixed mode
// shows up to the first 10 seconds; dynamic mode follows currentTime
// with a 2-second window. An empty channel list selects all channels.
func PolarData(d *Dataset, mode string, currentTime float64, channels []string) map[string]PolarSeries {
	windowSamples := d.SamplingRate * 2

	var start, end int
	if mode == "dynamic" {
		currentSample := int(currentTime * float64(d.SamplingRate))
		start = max(0, currentSample-windowSamples/4)
		if start+windowSamples > d.MaxLength {
			start = max(0, d.MaxLength-windowSamples)
		}
		end = min(d.MaxLength, start+windowSamples)
	} else {
		start = 0
		end = min(d.MaxLength, d.SamplingRate*10)
	}

	selected := channels
	if len(selected) == 0 {
		selected = d.ChannelNames
	}

	out := make(map[string]PolarSeries, len(selected))
	for _, name := range selected {
		idx := d.ChannelIndex(name)
		if idx < 0 {
			continue
		}
		ch := d.Channels[idx]
		endIdx := min(end, len(ch))
		if start >= endIdx {
			continue
		}
		samples := ch[start:endIdx]
		theta := make([]float64, len(samples))
		if len(samples) > 1 {
			for i := range theta {
				theta[i] = 360 * float64(i) / float64(len(samples)-1)
			}
		}
		r := make([]float64, len(samples))
		copy(r, samples)
		out[name] = PolarSeries{R: r, Theta: theta}
	}
	return out
}
