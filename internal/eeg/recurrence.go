package eeg

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/siglab/siglab-go/internal/errors"
)

// RecurrenceMetrics summarizes similarity between two signal regions.
type RecurrenceMetrics struct {
	RecurrenceRate   float64 `json:"recurrenceRate"`
	Determinism      float64 `json:"determinism"`
	CrossCorrelation float64 `json:"crossCorrelation"`
	Correlation      float64 `json:"correlation"`
}

// Region selects a slice of one channel for recurrence comparison.
type Region struct {
	ChannelName string `json:"channelName"`
	StartIndex  int    `json:"startIndex"`
	EndIndex    int    `json:"endIndex"`
}

// RecurrenceResult is the response payload for a recurrence request.
type RecurrenceResult struct {
	Channel1         RegionData        `json:"channel1"`
	Channel2         RegionData        `json:"channel2"`
	Metrics          RecurrenceMetrics `json:"metrics"`
	IsSelfComparison bool              `json:"isSelfComparison"`
}

// RegionData is the decimated slice returned for plotting.
type RegionData struct {
	Name string    `json:"name"`
	Data []float64 `json:"data"`
	Time []float64 `json:"time,omitempty"`
}

const maxRecurrencePoints = 1000

// Recurrence extracts two channel regions, decimates them for display
// and computes their recurrence metrics.
func Recurrence(d *Dataset, region1, region2 Region) (*RecurrenceResult, error) {
	idx1 := d.ChannelIndex(region1.ChannelName)
	idx2 := d.ChannelIndex(region2.ChannelName)
	if idx1 < 0 || idx2 < 0 {
		return nil, errors.Newf("invalid channel name selected").
			Component("eeg").
			Category(errors.CategoryValidation).
			Build()
	}

	data1 := sliceRegion(d.Channels[idx1], region1)
	data2 := sliceRegion(d.Channels[idx2], region2)
	if len(data1) == 0 || len(data2) == 0 {
		return nil, errors.Newf("selected regions are empty").
			Component("eeg").
			Category(errors.CategoryValidation).
			Build()
	}

	data1 = decimate(data1, maxRecurrencePoints)
	data2 = decimate(data2, maxRecurrencePoints)

	return &RecurrenceResult{
		Channel1: RegionData{
			Name: region1.ChannelName,
			Data: data1,
			Time: decimate(sliceRegion(d.TimeData, region1), maxRecurrencePoints),
		},
		Channel2: RegionData{
			Name: region2.ChannelName,
			Data: data2,
			Time: decimate(sliceRegion(d.TimeData, region2), maxRecurrencePoints),
		},
		Metrics:          ComputeRecurrenceMetrics(data1, data2),
		IsSelfComparison: region1.ChannelName == region2.ChannelName,
	}, nil
}

// ComputeRecurrenceMetrics z-normalizes both signals and derives
// similarity measures from their valid-mode cross-correlation.
func ComputeRecurrenceMetrics(data1, data2 []float64) RecurrenceMetrics {
	a := zNormalize(data1)
	b := zNormalize(data2)

	cc := crossCorrelateValid(a, b)
	if len(cc) == 0 {
		return RecurrenceMetrics{}
	}
	for i := range cc {
		cc[i] /= float64(len(a))
	}

	mean := 0.0
	peak := math.Inf(-1)
	for _, v := range cc {
		mean += v
		if v > peak {
			peak = v
		}
	}
	mean /= float64(len(cc))

	corr := 0.0
	if len(a) == len(b) {
		if _, stdA := meanStd(a); stdA > 0 {
			if _, stdB := meanStd(b); stdB > 0 {
				corr = stat.Correlation(a, b, nil)
			}
		}
	}

	return RecurrenceMetrics{
		RecurrenceRate:   mean,
		Determinism:      peak,
		CrossCorrelation: mean,
		Correlation:      corr,
	}
}

func sliceRegion(data []float64, r Region) []float64 {
	start := max(0, r.StartIndex)
	end := min(len(data), r.EndIndex)
	if start >= end {
		return nil
	}
	out := make([]float64, end-start)
	copy(out, data[start:end])
	return out
}

func decimate(data []float64, maxPoints int) []float64 {
	if len(data) <= maxPoints {
		return data
	}
	step := len(data) / maxPoints
	out := make([]float64, 0, maxPoints+1)
	for i := 0; i < len(data); i += step {
		out = append(out, data[i])
	}
	return out
}

// zNormalize centers the signal and scales to unit variance; a flat
// signal is only centered.
func zNormalize(data []float64) []float64 {
	mean, std := meanStd(data)
	if std == 0 {
		std = 1
	}
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = (v - mean) / std
	}
	return out
}

// crossCorrelateValid slides the shorter signal over the longer one,
// returning one dot product per full-overlap lag.
func crossCorrelateValid(a, b []float64) []float64 {
	long, short := a, b
	if len(b) > len(a) {
		long, short = b, a
	}
	n := len(long) - len(short) + 1
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i := range short {
			sum += long[k+i] * short[i]
		}
		out[k] = sum
	}
	return out
}

