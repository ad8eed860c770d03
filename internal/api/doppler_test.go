package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(c *Controller, t *testing.T, path, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return doRequest(c, req)
}

func TestGenerateDopplerSoundDefaults(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postJSON(c, t, "/api/v1/doppler/generate", `{"duration": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	audioData, _ := body["audio_data"].(string)
	assert.True(t, strings.HasPrefix(audioData, "data:audio/wav;base64,"))

	params, ok := body["generation_parameters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(120), params["base_frequency"])
	assert.Equal(t, float64(60), params["velocity"])
	assert.Equal(t, float64(48000), params["sample_rate"])

	waveform, ok := body["waveform_visualization"].(map[string]any)
	require.True(t, ok)
	times, ok := waveform["time"].([]any)
	require.True(t, ok)
	assert.LessOrEqual(t, len(times), maxDisplayPoints+1)
}

func TestGenerateDopplerSoundValidation(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"base frequency too low", `{"base_freq": 50}`},
		{"base frequency too high", `{"base_freq": 2000}`},
		{"negative velocity", `{"velocity": -10}`},
		{"velocity too high", `{"velocity": 900}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(c, t, "/api/v1/doppler/generate", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyzeVehicleSound(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	wav := sineWAV(t, 300, 8000, 2)
	rec := postMultipart(c, t, "/api/v1/doppler/analyze", "audio_file", "pass.wav", wav, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, analysis, "is_vehicle")
	assert.Contains(t, analysis, "confidence")
	assert.Contains(t, analysis, "waveform_data")
	assert.NotEqual(t, "error", analysis["analysis_method"])
}

func TestAnalyzeVehicleSoundRejectsExtension(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/doppler/analyze", "audio_file", "pass.webm",
		sineWAV(t, 300, 8000, 1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSpectrogram(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	wav := sineWAV(t, 1000, 8000, 2)
	rec := postMultipart(c, t, "/api/v1/doppler/spectrogram", "audio_file", "tone.wav", wav, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	spec, ok := body["spectrogram"].(map[string]any)
	require.True(t, ok)

	intensity, ok := spec["intensity"].([]any)
	require.True(t, ok)
	frequency, ok := spec["frequency"].([]any)
	require.True(t, ok)
	times, ok := spec["time"].([]any)
	require.True(t, ok)

	// Frequency-major grid, decimated for display.
	assert.Len(t, intensity, len(frequency))
	assert.LessOrEqual(t, len(frequency), spectrogramMaxFreqBins)
	assert.LessOrEqual(t, len(times), spectrogramMaxTimeSteps)
	firstRow, ok := intensity[0].([]any)
	require.True(t, ok)
	assert.Len(t, firstRow, len(times))

	assert.Equal(t, float64(8000), spec["sample_rate"])
}

func TestGetSpectrogramTooShort(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	wav := sineWAV(t, 1000, 8000, 0.0005) // 4 samples
	rec := postMultipart(c, t, "/api/v1/doppler/spectrogram", "audio_file", "tone.wav", wav, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDopplerResampleSharesPipeline(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	wav := sineWAV(t, 300, 8000, 1)
	rec := postMultipart(c, t, "/api/v1/doppler/resample", "audio_file", "pass.wav", wav,
		map[string]string{"target_sampling_rate": "4000", "mode": "download"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, float64(4000), body["playback_sampling_rate"])
}

func TestDopplerHealth(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/doppler/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["doppler_available"])
}
