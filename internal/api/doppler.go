// internal/api/doppler.go
package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/audiofile"
	"github.com/siglab/siglab-go/internal/doppler"
	"github.com/siglab/siglab-go/internal/dsp"
)

const (
	dopplerSampleRate       = 48000
	dopplerDownsampleFactor = 8

	spectrogramMaxTimeSteps = 150
	spectrogramMaxFreqBins  = 80
)

func (c *Controller) initDopplerRoutes() {
	c.Group.POST("/doppler/generate", c.GenerateDopplerSound)
	c.Group.POST("/doppler/analyze", c.AnalyzeVehicleSound)
	c.Group.POST("/doppler/spectrogram", c.GetSpectrogram)
	c.Group.POST("/doppler/resample", c.ResampleDopplerSound)
	c.Group.GET("/doppler/health", c.DopplerHealth)
}

// GenerateRequest carries the synthesis parameters. Velocity is in
// km/h at the API boundary and converted to m/s for the generator.
type GenerateRequest struct {
	BaseFreq float64 `json:"base_freq"`
	Velocity float64 `json:"velocity"`
	Duration float64 `json:"duration"`
}

// GenerateDopplerSound synthesizes a vehicle pass-by clip and returns
// it as a playable data URI plus a decimated waveform for plotting.
func (c *Controller) GenerateDopplerSound(ctx echo.Context) error {
	req := GenerateRequest{BaseFreq: 120, Velocity: 60, Duration: 6}
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Request must contain JSON data", http.StatusBadRequest)
	}

	if req.BaseFreq < doppler.MinBaseFrequency || req.BaseFreq > doppler.MaxBaseFrequency {
		return c.HandleError(ctx, nil,
			fmt.Sprintf("Base frequency must be between %d and %d Hz",
				doppler.MinBaseFrequency, doppler.MaxBaseFrequency),
			http.StatusBadRequest)
	}
	if req.Velocity < 0 || req.Velocity > doppler.MaxVelocityKMH {
		return c.HandleError(ctx, nil,
			fmt.Sprintf("Vehicle velocity must be between 0 and %d km/h", doppler.MaxVelocityKMH),
			http.StatusBadRequest)
	}

	start := time.Now()
	gen := doppler.NewGenerator(dopplerSampleRate, req.Duration, dopplerDownsampleFactor)
	times, samples, err := gen.Generate(req.BaseFreq, req.Velocity/3.6)
	if err != nil {
		return c.HandleError(ctx, err, "Doppler sound generation failed", http.StatusInternalServerError)
	}

	payload, err := c.pipeline.PreparePlayback(samples, dopplerSampleRate, dsp.ModePlayback)
	if err != nil {
		return c.HandleError(ctx, err, "Doppler sound generation failed", http.StatusInternalServerError)
	}
	wavData, err := audiofile.EncodePCM16WAV(payload.Samples, payload.Rate)
	if err != nil {
		return c.HandleError(ctx, err, "Doppler sound generation failed", http.StatusInternalServerError)
	}
	c.recordAnalysis("doppler", time.Since(start))

	step := max(1, len(times)/maxDisplayPoints)
	displayTime := make([]float64, 0, maxDisplayPoints+1)
	displayAmplitude := make([]float64, 0, maxDisplayPoints+1)
	for i := 0; i < len(times) && i < len(samples); i += step {
		displayTime = append(displayTime, times[i])
		displayAmplitude = append(displayAmplitude, samples[i])
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"audio_data": audiofile.DataURI(wavData),
		"waveform_visualization": map[string]any{
			"time":      displayTime,
			"amplitude": displayAmplitude,
		},
		"generation_parameters": map[string]any{
			"base_frequency": req.BaseFreq,
			"velocity":       req.Velocity,
			"duration":       req.Duration,
			"sample_rate":    dopplerSampleRate,
		},
	})
}

// AnalyzeVehicleSound estimates vehicle speed from the Doppler shift in
// an uploaded recording.
func (c *Controller) AnalyzeVehicleSound(ctx echo.Context) error {
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

	decoded, err := audiofile.DecodeWAV(data)
	if err != nil {
		c.recordUpload("audio", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Could not decode audio", http.StatusBadRequest)
	}
	c.recordUpload("audio", "success", int64(len(data)))

	start := time.Now()
	analysis := c.dopplerAnalyzer.Analyze(decoded.Samples, decoded.SampleRate)
	c.recordSamplesProcessed("doppler", len(decoded.Samples))

	if analysis.AnalysisMethod == "error" {
		c.recordAnalysisError("doppler", "empty_audio")
		return c.HandleError(ctx, nil, analysis.Message, http.StatusBadRequest)
	}
	c.recordAnalysis("doppler", time.Since(start))

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"analysis": analysis,
		"message":  "Vehicle sound analysis completed successfully",
	})
}

// GetSpectrogram computes a decimated STFT magnitude spectrogram for
// visualization. Geometry adapts to short clips the same way the
// interactive frontend expects: FFT size shrinks with the clip, hop
// stays at least 256 samples.
func (c *Controller) GetSpectrogram(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "audio_file")
	if err != nil {
		return c.HandleError(ctx, err, "No audio file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}

	decoded, err := audiofile.DecodeWAV(data)
	if err != nil {
		c.recordUpload("audio", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Could not decode audio", http.StatusBadRequest)
	}
	c.recordUpload("audio", "success", int64(len(data)))

	fftSize := min(dsp.DefaultFFTSize, len(decoded.Samples)/4)
	if fftSize < 2 {
		return c.HandleError(ctx, nil, "Audio clip too short for spectrogram", http.StatusBadRequest)
	}
	hopSize := max(dsp.DefaultHopSize, fftSize/8)

	spec, err := dsp.ComputeSpectrogram(decoded.Samples, decoded.SampleRate, fftSize, hopSize)
	if err != nil {
		return c.HandleError(ctx, err, "Spectrogram generation failed", http.StatusInternalServerError)
	}
	spec = spec.Decimate(spectrogramMaxTimeSteps, spectrogramMaxFreqBins)

	// Magnitudes are stored frame-major; the plot wants frequency-major.
	bins := len(spec.Frequencies)
	intensity := make([][]float64, bins)
	for b := 0; b < bins; b++ {
		row := make([]float64, len(spec.Magnitudes))
		for f := range spec.Magnitudes {
			row[f] = spec.Magnitudes[f][b]
		}
		intensity[b] = row
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"spectrogram": map[string]any{
			"intensity":   intensity,
			"time":        spec.Times,
			"frequency":   spec.Frequencies,
			"sample_rate": decoded.SampleRate,
		},
	})
}

// ResampleDopplerSound repackages an uploaded recording at a new rate,
// sharing the voice pipeline. Kept as a separate route so the Doppler
// view can demonstrate aliasing on its own clips.
func (c *Controller) ResampleDopplerSound(ctx echo.Context) error {
	return c.ResampleVoice(ctx)
}

// DopplerHealth reports Doppler service status.
func (c *Controller) DopplerHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":            "healthy",
		"message":           "Doppler Analyzer API is running!",
		"doppler_available": true,
	})
}
