// Package ecg parses 12-lead ECG recordings and derives basic rhythm
// statistics: R-peak locations, heart rate, RR interval and a signal
// quality score.
package ecg

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"github.com/siglab/siglab-go/internal/errors"
	"github.com/siglab/siglab-go/internal/logging"
)

// LeadNames lists the 12 standard leads in model order.
var LeadNames = []string{"I", "II", "III", "AVR", "AVL", "AVF", "V1", "V2", "V3", "V4", "V5", "V6"}

// DefaultSamplingRate is assumed when the upload does not specify one.
const DefaultSamplingRate = 360

// Dataset is a parsed 12-lead recording. Leads are ordered per
// LeadNames; missing leads are zero-filled and ragged leads are padded
// so every lead has MaxLength samples.
type Dataset struct {
	Leads        [][]float64 `json:"leads"`
	LeadNames    []string    `json:"lead_names"`
	SamplingRate int         `json:"sampling_rate"`
	MaxLength    int         `json:"samples_per_lead"`
	Duration     float64     `json:"duration"`
	Theta        []float64   `json:"theta"`
}

// ParseCSV reads an ECG CSV with a header row naming the leads. Column
// names are matched case-insensitively against the standard leads;
// unknown columns are ignored.
func ParseCSV(content []byte, samplingRate int) (*Dataset, error) {
	if samplingRate <= 0 {
		return nil, errors.Newf("invalid sampling rate %d", samplingRate).
			Component("ecg").
			Category(errors.CategoryValidation).
			Build()
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(err).
			Component("ecg").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if len(records) < 2 {
		return nil, errors.Newf("CSV has no data rows").
			Component("ecg").
			Category(errors.CategoryFileParsing).
			Build()
	}

	// Map each standard lead to its column index, if present.
	header := records[0]
	columnOf := make(map[string]int, len(header))
	for i, name := range header {
		columnOf[strings.ToUpper(strings.TrimSpace(name))] = i
	}

	log := logging.ForService("ecg")
	leads := make([][]float64, len(LeadNames))
	for li, name := range LeadNames {
		col, ok := columnOf[name]
		if !ok {
			log.Warn("lead not found, filled with zeros", "lead", name)
			leads[li] = nil
			continue
		}
		var values []float64
		for _, row := range records[1:] {
			if col >= len(row) {
				continue
			}
			field := strings.TrimSpace(row[col])
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Newf("lead %s row %d: invalid value %q", name, len(values)+1, field).
					Component("ecg").
					Category(errors.CategoryFileParsing).
					Build()
			}
			values = append(values, v)
		}
		leads[li] = values
	}

	maxLength := 0
	for _, lead := range leads {
		if len(lead) > maxLength {
			maxLength = len(lead)
		}
	}
	if maxLength == 0 {
		return nil, errors.Newf("no recognized lead columns in CSV").
			Component("ecg").
			Category(errors.CategoryFileParsing).
			Build()
	}
	for li := range leads {
		for len(leads[li]) < maxLength {
			leads[li] = append(leads[li], 0)
		}
	}

	// Theta maps each sample onto a 0..360 degree sweep for the polar
	// plot view.
	theta := make([]float64, maxLength)
	maxTime := float64(maxLength-1) / float64(samplingRate)
	if maxTime > 0 {
		for i := range theta {
			theta[i] = 360 * (float64(i) / float64(samplingRate)) / maxTime
		}
	}

	return &Dataset{
		Leads:        leads,
		LeadNames:    LeadNames,
		SamplingRate: samplingRate,
		MaxLength:    maxLength,
		Duration:     float64(maxLength) / float64(samplingRate),
		Theta:        theta,
	}, nil
}

// LeadII returns the rhythm lead used for beat detection.
func (d *Dataset) LeadII() []float64 {
	if len(d.Leads) > 1 {
		return d.Leads[1]
	}
	if len(d.Leads) == 1 {
		return d.Leads[0]
	}
	return nil
}

// DetectRPeaks finds R-wave peaks: samples above mean + 2 sigma that
// are the maximum of a refractory window of 0.3 s on either side.
func DetectRPeaks(signal []float64, samplingRate int) []int {
	if len(signal) == 0 || samplingRate <= 0 {
		return nil
	}

	mean, std := meanStd(signal)
	threshold := mean + 2*std
	minDistance := int(0.3 * float64(samplingRate))

	var peaks []int
	for i := minDistance; i < len(signal)-minDistance; i++ {
		if signal[i] <= threshold {
			continue
		}
		isMax := true
		for j := i - minDistance; j < i+minDistance; j++ {
			if signal[j] > signal[i] {
				isMax = false
				break
			}
		}
		if isMax {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// HeartRate estimates beats per minute from R-peak spacing. Recordings
// shorter than one second, or with fewer than two beats, yield 0.
func HeartRate(signal []float64, samplingRate int) int {
	if len(signal) < samplingRate {
		return 0
	}
	peaks := DetectRPeaks(signal, samplingRate)
	if len(peaks) < 2 {
		return 0
	}
	avgRR := averageRRSeconds(peaks, samplingRate)
	if avgRR <= 0 {
		return 0
	}
	return int(60 / avgRR)
}

// RRIntervalMS returns the mean R-to-R spacing in milliseconds.
func RRIntervalMS(signal []float64, samplingRate int) int {
	peaks := DetectRPeaks(signal, samplingRate)
	if len(peaks) < 2 {
		return 0
	}
	return int(averageRRSeconds(peaks, samplingRate) * 1000)
}

func averageRRSeconds(peaks []int, samplingRate int) float64 {
	var sum float64
	for i := 1; i < len(peaks); i++ {
		sum += float64(peaks[i]-peaks[i-1]) / float64(samplingRate)
	}
	return sum / float64(len(peaks)-1)
}

// SignalQuality scores the recording 0..100 from per-lead amplitude
// range. Flat leads drag the score down hard.
func SignalQuality(leads [][]float64) int {
	if len(leads) == 0 {
		return 0
	}
	var qualities []float64
	for _, lead := range leads {
		if len(lead) <= 10 {
			continue
		}
		lo, hi := lead[0], lead[0]
		for _, v := range lead {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		signalRange := hi - lo
		if signalRange > 0.1 {
			qualities = append(qualities, math.Min(100, 80+signalRange*50))
		} else {
			qualities = append(qualities, 30)
		}
	}
	if len(qualities) == 0 {
		return 50
	}
	var sum float64
	for _, q := range qualities {
		sum += q
	}
	return int(sum / float64(len(qualities)))
}

// Analysis is the basic rhythm summary computed from lead II.
type Analysis struct {
	HeartRate     int     `json:"heart_rate"`
	RRInterval    int     `json:"rr_interval"`
	SignalQuality int     `json:"signal_quality"`
	TotalBeats    int     `json:"total_beats"`
	Duration      float64 `json:"duration"`
	SamplingRate  int     `json:"sampling_rate"`
}

// Analyze computes the rhythm summary for a parsed dataset.
func Analyze(d *Dataset) *Analysis {
	leadII := d.LeadII()
	return &Analysis{
		HeartRate:     HeartRate(leadII, d.SamplingRate),
		RRInterval:    RRIntervalMS(leadII, d.SamplingRate),
		SignalQuality: SignalQuality(d.Leads),
		TotalBeats:    len(DetectRPeaks(leadII, d.SamplingRate)),
		Duration:      d.Duration,
		SamplingRate:  d.SamplingRate,
	}
}

func meanStd(data []float64) (mean, std float64) {
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return mean, math.Sqrt(sum / float64(len(data)))
}
