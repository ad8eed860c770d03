// internal/api/voice.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/audiofile"
	"github.com/siglab/siglab-go/internal/dsp"
)

// supportedUploadFormats lists the audio file extensions accepted at
// the upload boundary. Decoding itself only handles WAV; other formats
// fail with a decode error rather than an extension error, matching
// the upload/decode split of the original endpoints.
var supportedUploadFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".aac":  true,
	".ogg":  true,
}

// maxDisplayPoints caps waveform arrays returned for visualization.
const maxDisplayPoints = 1000

func (c *Controller) initVoiceRoutes() {
	c.Group.POST("/voice/analyze", c.AnalyzeVoice)
	c.Group.POST("/voice/resample", c.ResampleVoice)
}

// WaveformVisualization is the decimated waveform with its aliasing
// verdict, shaped for the frontend plot.
type WaveformVisualization struct {
	Time               []float64 `json:"time"`
	Amplitude          []float64 `json:"amplitude"`
	IsAliasing         bool      `json:"is_aliasing"`
	NyquistFrequency   float64   `json:"nyquist_frequency"`
	AnalysisSampleRate int       `json:"analysis_sample_rate,omitempty"`
}

// SamplingInfo reports what the pipeline did to the rates.
type SamplingInfo struct {
	OriginalSampleRate int     `json:"original_sample_rate"`
	AnalysisSampleRate int     `json:"analysis_sample_rate"`
	WasResampled       bool    `json:"was_resampled"`
	NyquistFrequency   float64 `json:"nyquist_frequency"`
}

// VoiceAnalysis is the analysis section of the voice analyze response.
type VoiceAnalysis struct {
	WaveformData   WaveformVisualization `json:"waveform_data"`
	SamplingInfo   SamplingInfo          `json:"sampling_info"`
	Duration       float64               `json:"duration"`
	AnalysisMethod string                `json:"analysis_method"`
	Message        string                `json:"message"`
}

// AnalyzeVoice resamples an uploaded recording to a caller-chosen rate
// and reports the aliasing consequences alongside a plottable waveform.
func (c *Controller) AnalyzeVoice(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "audio_file")
	if err != nil {
		return c.HandleError(ctx, err, "No audio file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}
	if !supportedUploadFormats[strings.ToLower(filepath.Ext(filename))] {
		return c.HandleError(ctx, nil,
			fmt.Sprintf("Unsupported file type: %s", filepath.Ext(filename)),
			http.StatusBadRequest)
	}

	targetRate, err := c.parseTargetRate(ctx.FormValue("target_sampling_rate"), false)
	if err != nil {
		return c.HandleError(ctx, nil, err.Error(), http.StatusBadRequest)
	}

	decoded, err := audiofile.DecodeWAV(data)
	if err != nil {
		c.recordUpload("audio", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Analysis failed: could not decode audio", http.StatusBadRequest)
	}
	c.recordUpload("audio", "success", int64(len(data)))

	start := time.Now()
	result, err := c.pipeline.ResampleForAnalysis(decoded.Samples, decoded.SampleRate, targetRate)
	if err != nil {
		c.recordResampleError("analysis")
		return c.HandleError(ctx, err, "Analysis failed", http.StatusBadRequest)
	}
	c.recordResample("analysis", time.Since(start), decoded.SampleRate, result.Rate)
	c.recordAliasing(result.IsAliasing)
	c.recordSamplesProcessed("voice", len(result.Samples))

	waveform := buildWaveformVisualization(result.Samples, result.Rate)
	waveform.IsAliasing = result.IsAliasing
	if targetRate > 0 && targetRate < c.pipeline.AliasingThreshold {
		waveform.IsAliasing = true
	}

	duration := float64(len(result.Samples)) / float64(result.Rate)
	analysis := VoiceAnalysis{
		WaveformData: waveform,
		SamplingInfo: SamplingInfo{
			OriginalSampleRate: decoded.SampleRate,
			AnalysisSampleRate: result.Rate,
			WasResampled:       result.WasResampled,
			NyquistFrequency:   result.NyquistFrequency,
		},
		Duration:       duration,
		AnalysisMethod: "aliasing_demonstration",
		Message:        "Voice analysis completed successfully",
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
		"message":  fmt.Sprintf("Voice analysis completed (SR: %dHz)", result.Rate),
	})
}

// ResampleVoice returns the repackaged audio payload at the requested
// rate, as a data URI ready for an <audio> element or a download link.
func (c *Controller) ResampleVoice(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "audio_file")
	if err != nil {
		return c.HandleError(ctx, err, "No audio file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}

	targetRate, err := c.parseTargetRate(ctx.FormValue("target_sampling_rate"), true)
	if err != nil {
		return c.HandleError(ctx, nil, err.Error(), http.StatusBadRequest)
	}

	mode, err := dsp.ParseMode(ctx.FormValue("mode"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid mode", http.StatusBadRequest)
	}

	decoded, err := audiofile.DecodeWAV(data)
	if err != nil {
		c.recordUpload("audio", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Could not decode audio", http.StatusBadRequest)
	}
	c.recordUpload("audio", "success", int64(len(data)))

	start := time.Now()
	result, err := c.pipeline.ResampleForAnalysis(decoded.Samples, decoded.SampleRate, targetRate)
	if err != nil {
		c.recordResampleError(string(mode))
		return c.HandleError(ctx, err, "Resampling failed", http.StatusBadRequest)
	}

	payload, err := c.pipeline.PreparePlayback(result.Samples, result.Rate, mode)
	if err != nil {
		c.recordResampleError(string(mode))
		return c.HandleError(ctx, err, "Resampling failed", http.StatusInternalServerError)
	}
	c.recordResample(string(mode), time.Since(start), decoded.SampleRate, result.Rate)
	c.recordAliasing(result.IsAliasing)
	c.recordSamplesProcessed("voice", len(result.Samples))

	wavData, err := audiofile.EncodePCM16WAV(payload.Samples, payload.Rate)
	if err != nil {
		return c.HandleError(ctx, err, "Encoding failed", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":                true,
		"audio_data":             audiofile.DataURI(wavData),
		"original_sampling_rate": decoded.SampleRate,
		"target_sampling_rate":   targetRate,
		"playback_sampling_rate": payload.Rate,
		"was_upsampled":          payload.WasUpsampled,
		"was_resampled":          result.WasResampled,
		"mode":                   string(mode),
	})
}

// parseTargetRate validates the target_sampling_rate form value against
// the configured bounds. An empty value is an error when required,
// otherwise it means keep the original rate.
func (c *Controller) parseTargetRate(raw string, required bool) (int, error) {
	if raw == "" {
		if required {
			return 0, fmt.Errorf("No target sampling rate provided")
		}
		return 0, nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("Invalid target sampling rate: %q", raw)
	}
	minRate := c.Settings.Audio.MinTargetRate
	maxRate := c.Settings.Audio.MaxTargetRate
	if rate < minRate || rate > maxRate {
		return 0, fmt.Errorf("Target sampling rate must be between %d and %d Hz", minRate, maxRate)
	}
	return rate, nil
}

// buildWaveformVisualization decimates samples for display. Empty input
// yields a flat two-point placeholder so the plot never breaks.
func buildWaveformVisualization(samples []float64, rate int) WaveformVisualization {
	nyquist := float64(rate) / 2.0
	if len(samples) == 0 {
		return WaveformVisualization{
			Time:             []float64{0, 1},
			Amplitude:        []float64{0, 0},
			NyquistFrequency: nyquist,
		}
	}

	duration := float64(len(samples)) / float64(rate)
	step := max(1, len(samples)/maxDisplayPoints)

	// Endpoint-inclusive time axis: the last sample sits at duration.
	denom := float64(len(samples) - 1)
	if denom == 0 {
		denom = 1
	}
	var times, amplitudes []float64
	for i := 0; i < len(samples); i += step {
		times = append(times, duration*float64(i)/denom)
		amplitudes = append(amplitudes, samples[i])
	}

	return WaveformVisualization{
		Time:               times,
		Amplitude:          amplitudes,
		NyquistFrequency:   nyquist,
		AnalysisSampleRate: rate,
	}
}

// Metric helpers tolerate a nil metrics instance so handlers stay clean.

func (c *Controller) recordUpload(kind, status string, size int64) {
	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.RecordUpload(kind, status, size)
	}
}

func (c *Controller) recordResample(mode string, elapsed time.Duration, fromRate, toRate int) {
	if c.metrics != nil && c.metrics.DSP != nil {
		ratio := 1.0
		if fromRate > 0 {
			ratio = float64(toRate) / float64(fromRate)
		}
		c.metrics.DSP.RecordResample(mode, "success", elapsed.Seconds(), ratio)
	}
}

func (c *Controller) recordResampleError(mode string) {
	if c.metrics != nil && c.metrics.DSP != nil {
		c.metrics.DSP.RecordResampleError(mode, "pipeline")
	}
}

func (c *Controller) recordAliasing(aliasing bool) {
	if c.metrics != nil && c.metrics.DSP != nil {
		c.metrics.DSP.RecordAliasingDetection(aliasing)
	}
}

func (c *Controller) recordAnalysis(analyzer string, elapsed time.Duration) {
	if c.metrics != nil && c.metrics.DSP != nil {
		c.metrics.DSP.RecordAnalysis(analyzer, "success", elapsed.Seconds())
	}
}

func (c *Controller) recordAnalysisError(analyzer, errorType string) {
	if c.metrics != nil && c.metrics.DSP != nil {
		c.metrics.DSP.RecordAnalysisError(analyzer, errorType)
	}
}

func (c *Controller) recordSamplesProcessed(analyzer string, n int) {
	if c.metrics != nil && c.metrics.DSP != nil {
		c.metrics.DSP.RecordSamplesProcessed(analyzer, n)
	}
}
