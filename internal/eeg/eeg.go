// Package eeg parses multichannel EEG recordings and computes frequency
// band powers, signal quality and cross-channel recurrence metrics.
package eeg

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/siglab/siglab-go/internal/errors"
)

// DefaultSamplingRate is assumed when the upload does not specify one.
const DefaultSamplingRate = 250

// Band is a named EEG frequency range in Hz.
type Band struct {
	Name string
	Low  float64
	High float64
}

// Bands lists the standard EEG frequency bands in ascending order.
var Bands = []Band{
	{"Delta", 0.5, 4},
	{"Theta", 4, 8},
	{"Alpha", 8, 13},
	{"Beta", 13, 30},
	{"Gamma", 30, 100},
}

// Dataset is a parsed EEG recording. The first CSV column is time; the
// remaining columns are channels, padded to a common length.
type Dataset struct {
	Channels     [][]float64 `json:"channels"`
	ChannelNames []string    `json:"channel_names"`
	TimeData     []float64   `json:"time_data"`
	SamplingRate int         `json:"sampling_rate"`
	MaxLength    int         `json:"samples_per_channel"`
	Duration     float64     `json:"duration"`
}

// ParseCSV reads an EEG CSV whose header row names a time column
// followed by one or more channel columns.
func ParseCSV(content []byte, samplingRate int) (*Dataset, error) {
	if samplingRate <= 0 {
		return nil, errors.Newf("invalid sampling rate %d", samplingRate).
			Component("eeg").
			Category(errors.CategoryValidation).
			Build()
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New(err).
			Component("eeg").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if len(records) < 2 {
		return nil, errors.Newf("CSV has no data rows").
			Component("eeg").
			Category(errors.CategoryFileParsing).
			Build()
	}

	header := records[0]
	if len(header) < 2 {
		return nil, errors.Newf("CSV must have a time column and at least one channel").
			Component("eeg").
			Category(errors.CategoryFileParsing).
			Build()
	}

	channelNames := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		channelNames = append(channelNames, strings.TrimSpace(name))
	}

	timeData := make([]float64, 0, len(records)-1)
	channels := make([][]float64, len(channelNames))
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		if ts := strings.TrimSpace(row[0]); ts != "" {
			t, err := strconv.ParseFloat(ts, 64)
			if err != nil {
				return nil, errors.Newf("invalid time value %q", ts).
					Component("eeg").
					Category(errors.CategoryFileParsing).
					Build()
			}
			timeData = append(timeData, t)
		}
		for c := range channelNames {
			col := c + 1
			if col >= len(row) {
				continue
			}
			field := strings.TrimSpace(row[col])
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Newf("channel %s: invalid value %q", channelNames[c], field).
					Component("eeg").
					Category(errors.CategoryFileParsing).
					Build()
			}
			channels[c] = append(channels[c], v)
		}
	}

	maxLength := 0
	for _, ch := range channels {
		if len(ch) > maxLength {
			maxLength = len(ch)
		}
	}
	if maxLength == 0 {
		return nil, errors.Newf("no channel samples in CSV").
			Component("eeg").
			Category(errors.CategoryFileParsing).
			Build()
	}
	for c := range channels {
		for len(channels[c]) < maxLength {
			channels[c] = append(channels[c], 0)
		}
	}

	return &Dataset{
		Channels:     channels,
		ChannelNames: channelNames,
		TimeData:     timeData,
		SamplingRate: samplingRate,
		MaxLength:    maxLength,
		Duration:     float64(maxLength) / float64(samplingRate),
	}, nil
}

// ChannelIndex returns the index of a named channel, or -1.
func (d *Dataset) ChannelIndex(name string) int {
	for i, n := range d.ChannelNames {
		if n == name {
			return i
		}
	}
	return -1
}

// BandPower sums the power spectral density of signal over [low, high]
// Hz inclusive.
func BandPower(signal []float64, low, high float64, samplingRate int) float64 {
	if len(signal) == 0 || samplingRate <= 0 {
		return 0
	}
	fft := fourier.NewFFT(len(signal))
	spectrum := fft.Coefficients(nil, signal)

	var power float64
	for k, c := range spectrum {
		freq := float64(k) * float64(samplingRate) / float64(len(signal))
		if freq >= low && freq <= high {
			re, im := real(c), imag(c)
			power += re*re + im*im
		}
	}
	return power
}

// BandPowers computes per-band, per-channel power for the dataset.
func BandPowers(d *Dataset) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(Bands))
	for _, band := range Bands {
		channelPowers := make(map[string]float64, len(d.ChannelNames))
		for i, name := range d.ChannelNames {
			channelPowers[name] = BandPower(d.Channels[i], band.Low, band.High, d.SamplingRate)
		}
		out[band.Name] = channelPowers
	}
	return out
}

// DominantFrequency returns the frequency of the strongest PSD bin.
func DominantFrequency(signal []float64, samplingRate int) float64 {
	if len(signal) == 0 || samplingRate <= 0 {
		return 0
	}
	fft := fourier.NewFFT(len(signal))
	spectrum := fft.Coefficients(nil, signal)

	best := 0
	bestPower := math.Inf(-1)
	for k, c := range spectrum {
		re, im := real(c), imag(c)
		if p := re*re + im*im; p > bestPower {
			bestPower = p
			best = k
		}
	}
	return float64(best) * float64(samplingRate) / float64(len(signal))
}

// SignalQuality scores the recording 0..100 from a per-channel
// range-to-noise ratio, where noise is the stddev of the first
// difference.
func SignalQuality(channels [][]float64) int {
	if len(channels) == 0 {
		return 0
	}
	var qualities []float64
	for _, ch := range channels {
		if len(ch) <= 10 {
			continue
		}
		lo, hi := ch[0], ch[0]
		for _, v := range ch {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		diffs := make([]float64, len(ch)-1)
		for i := 1; i < len(ch); i++ {
			diffs[i-1] = ch[i] - ch[i-1]
		}
		_, noise := meanStd(diffs)
		if noise > 0 {
			snr := (hi - lo) / noise
			qualities = append(qualities, math.Min(100, 50+snr*5))
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

func meanStd(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
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
