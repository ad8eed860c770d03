package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siglab/siglab-go/internal/session"
)

// ecgCSV builds a lead II recording with one beat per second at 360 Hz.
func ecgCSV(t *testing.T, seconds int) []byte {
	t.Helper()
	var b strings.Builder
	b.WriteString("II\n")
	for i := 0; i < seconds*360; i++ {
		v := 0.0
		if i%360 == 180 {
			v = 1.0
		}
		fmt.Fprintf(&b, "%.3f\n", v)
	}
	return []byte(b.String())
}

func TestECGUploadAndSessionFlow(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/ecg/upload", "ecg_file", "beats.csv",
		ecgCSV(t, 3), map[string]string{"sampling_rate": "360"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sessionID := rec.Header().Get(session.HeaderName)
	require.NotEmpty(t, sessionID)

	body := decodeBody(t, rec)
	assert.Equal(t, "ECG file processed successfully!", body["message"])

	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(60), analysis["heart_rate"])
	assert.Equal(t, float64(3), analysis["total_beats"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	leadNames, ok := data["lead_names"].([]any)
	require.True(t, ok)
	assert.Len(t, leadNames, 12)

	// Statistics read the stored dataset back.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ecg/statistics", http.NoBody)
	req.Header.Set(session.HeaderName, sessionID)
	rec = doRequest(c, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody(t, rec)
	assert.Equal(t, float64(60), stats["heart_rate"])
	assert.Equal(t, float64(360), stats["sampling_rate"])

	// Polar data slices every lead.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/ecg/polar-data/cumulative", http.NoBody)
	req.Header.Set(session.HeaderName, sessionID)
	rec = doRequest(c, req)
	require.Equal(t, http.StatusOK, rec.Code)

	polar := decodeBody(t, rec)
	leadII, ok := polar["II"].(map[string]any)
	require.True(t, ok)
	r, ok := leadII["r"].([]any)
	require.True(t, ok)
	assert.Len(t, r, 3*360)
}

func TestECGPolarDataFixedWindow(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/ecg/upload", "ecg_file", "beats.csv",
		ecgCSV(t, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(session.HeaderName)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ecg/polar-data/fixed?current_time=2.0", http.NoBody)
	req.Header.Set(session.HeaderName, sessionID)
	rec = doRequest(c, req)
	require.Equal(t, http.StatusOK, rec.Code)

	polar := decodeBody(t, rec)
	leadII, ok := polar["II"].(map[string]any)
	require.True(t, ok)
	r, ok := leadII["r"].([]any)
	require.True(t, ok)
	assert.Len(t, r, 2*360)
}

func TestECGSessionRequired(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	for _, path := range []string{
		"/api/v1/ecg/statistics",
		"/api/v1/ecg/polar-data/fixed",
	} {
		rec := doRequest(c, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		body := decodeBody(t, rec)
		assert.Contains(t, body["message"], "upload a file first")
	}
}

func TestECGUploadValidation(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/ecg/upload", "ecg_file", "beats.pdf",
		[]byte("II\n0.1\n"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMultipart(c, t, "/api/v1/ecg/upload", "ecg_file", "beats.csv",
		[]byte("no data rows"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestECGAnalyzeStateless(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/ecg/analyze", "ecg_file", "beats.csv",
		ecgCSV(t, 3), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	analysis, ok := body["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(60), analysis["heart_rate"])
	assert.Equal(t, float64(1000), analysis["rr_interval"])

	summary, ok := body["data_summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(12), summary["leads_count"])

	// Stateless: no dataset stored for follow-up reads.
	sessionID := rec.Header().Get(session.HeaderName)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ecg/statistics", http.NoBody)
	req.Header.Set(session.HeaderName, sessionID)
	rec = doRequest(c, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestECGClassifyUnavailable(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	leads := make([][]float64, 12)
	for i := range leads {
		leads[i] = []float64{0, 0.1, 0}
	}
	payload, err := json.Marshal(map[string]any{"ecg_data": leads, "sampling_rate": 360})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ecg/classify", strings.NewReader(string(payload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(c, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "Model not loaded")
}

func TestECGClassifyLeadCount(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	payload := `{"ecg_data": [[0.1, 0.2]], "sampling_rate": 360}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ecg/classify", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := doRequest(c, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "12 leads")
}

func TestECGHealthReportsModel(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/ecg/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["model_loaded"])
}
