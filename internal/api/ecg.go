// internal/api/ecg.go
package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/ecg"
)

func (c *Controller) initECGRoutes() {
	c.Group.POST("/ecg/upload", c.UploadECG)
	c.Group.POST("/ecg/classify", c.ClassifyECG)
	c.Group.POST("/ecg/analyze", c.AnalyzeECG)
	c.Group.GET("/ecg/polar-data/:mode", c.GetECGPolarData)
	c.Group.GET("/ecg/statistics", c.GetECGStatistics)
	c.Group.GET("/ecg/health", c.ECGHealth)
}

// csvUpload reports whether the filename looks like a CSV-family upload.
func csvUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return true
	}
	return false
}

// polarSlice is one lead's polar view of the requested window.
type polarSlice struct {
	R     []float64 `json:"r"`
	Theta []float64 `json:"theta"`
}

// UploadECG parses an uploaded 12-lead CSV, stores it in the caller's
// session and returns the dataset with a basic rhythm summary.
func (c *Controller) UploadECG(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "ecg_file")
	if err != nil {
		return c.HandleError(ctx, err, "No file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}
	if !csvUpload(filename) {
		return c.HandleError(ctx, nil, "Invalid file type", http.StatusBadRequest)
	}

	samplingRate := c.formSamplingRate(ctx, c.Settings.ECG.DefaultSamplingRate)

	dataset, err := ecg.ParseCSV(data, samplingRate)
	if err != nil {
		c.recordUpload("ecg", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Failed to parse ECG file", http.StatusBadRequest)
	}
	c.recordUpload("ecg", "success", int64(len(data)))

	sessionID := c.requestSession(ctx)
	c.ecgSessions.Put(sessionID, dataset)

	start := time.Now()
	leadII := dataset.LeadII()
	basicAnalysis := map[string]any{
		"heart_rate":     ecg.HeartRate(leadII, dataset.SamplingRate),
		"rr_interval":    ecg.RRIntervalMS(leadII, dataset.SamplingRate),
		"signal_quality": ecg.SignalQuality(dataset.Leads),
		"total_beats":    len(ecg.DetectRPeaks(leadII, dataset.SamplingRate)),
	}
	c.recordAnalysis("ecg", time.Since(start))
	for _, lead := range dataset.Leads {
		c.recordSamplesProcessed("ecg", len(lead))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message":  "ECG file processed successfully!",
		"data":     dataset,
		"analysis": basicAnalysis,
	})
}

// ClassifyRequest is the classify endpoint's JSON body.
type ClassifyRequest struct {
	ECGData      [][]float64 `json:"ecg_data"`
	SamplingRate int         `json:"sampling_rate"`
}

// ClassifyECG validates the submitted leads and reports the rhythm
// classifier verdict. The native inference runtime is an external
// collaborator that cannot be bundled, so with no loaded model the
// capability is reported as unavailable.
func (c *Controller) ClassifyECG(ctx echo.Context) error {
	var req ClassifyRequest
	if err := ctx.Bind(&req); err != nil || len(req.ECGData) == 0 {
		return c.HandleError(ctx, err, "No ECG data provided", http.StatusBadRequest)
	}
	if len(req.ECGData) != len(ecg.LeadNames) {
		return c.HandleError(ctx, nil, "Expected 12 leads of ECG data", http.StatusBadRequest)
	}

	if c.ecgClassifier == nil {
		c.recordAnalysisError("ecg", "model_unavailable")
		return c.HandleError(ctx, nil,
			"ECG Model not loaded. Please check server logs.",
			http.StatusInternalServerError)
	}

	// Weights exist but the inference runtime is not part of this
	// service, so the verdict cannot be produced here.
	return c.HandleError(ctx, nil,
		"ECG model inference is not available on this server",
		http.StatusNotImplemented)
}

// AnalyzeECG parses an uploaded CSV and returns the rhythm summary
// without touching session state.
func (c *Controller) AnalyzeECG(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "ecg_file")
	if err != nil {
		return c.HandleError(ctx, err, "No file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}
	if !csvUpload(filename) {
		return c.HandleError(ctx, nil, "Invalid file type", http.StatusBadRequest)
	}

	samplingRate := c.formSamplingRate(ctx, c.Settings.ECG.DefaultSamplingRate)

	dataset, err := ecg.ParseCSV(data, samplingRate)
	if err != nil {
		c.recordUpload("ecg", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Failed to parse ECG file", http.StatusBadRequest)
	}
	c.recordUpload("ecg", "success", int64(len(data)))

	start := time.Now()
	analysis := ecg.Analyze(dataset)
	c.recordAnalysis("ecg", time.Since(start))

	return ctx.JSON(http.StatusOK, map[string]any{
		"message":  "ECG analysis completed successfully!",
		"analysis": analysis,
		"data_summary": map[string]any{
			"leads_count":      len(dataset.Leads),
			"samples_per_lead": dataset.MaxLength,
			"lead_names":       dataset.LeadNames,
		},
	})
}

// GetECGPolarData returns per-lead polar slices of the loaded dataset.
// Fixed mode animates a 2-second window at current_time; any other mode
// returns the cumulative recording from the start.
func (c *Controller) GetECGPolarData(ctx echo.Context) error {
	dataset, errResp := c.loadECGSession(ctx)
	if errResp != nil {
		return errResp
	}

	currentTime, _ := strconv.ParseFloat(ctx.QueryParam("current_time"), 64)
	mode := ctx.Param("mode")

	windowSamples := dataset.SamplingRate * 2

	var start, end int
	if mode == "fixed" {
		start = max(0, int(currentTime*float64(dataset.SamplingRate)))
		if start+windowSamples > dataset.MaxLength {
			start = max(0, dataset.MaxLength-windowSamples)
		}
		end = start + windowSamples
	} else {
		start = 0
		end = dataset.MaxLength
	}

	data := make(map[string]polarSlice, len(dataset.LeadNames))
	for i, leadName := range dataset.LeadNames {
		lead := dataset.Leads[i]
		endIdx := min(end, len(lead))
		if start >= endIdx {
			data[leadName] = polarSlice{R: []float64{}, Theta: []float64{}}
			continue
		}
		data[leadName] = polarSlice{
			R:     lead[start:endIdx],
			Theta: dataset.Theta[start:endIdx],
		}
	}

	return ctx.JSON(http.StatusOK, data)
}

// GetECGStatistics recomputes the rhythm summary for the loaded dataset.
func (c *Controller) GetECGStatistics(ctx echo.Context) error {
	dataset, errResp := c.loadECGSession(ctx)
	if errResp != nil {
		return errResp
	}

	leadII := dataset.LeadII()
	return ctx.JSON(http.StatusOK, map[string]any{
		"heart_rate":      ecg.HeartRate(leadII, dataset.SamplingRate),
		"rr_interval":     ecg.RRIntervalMS(leadII, dataset.SamplingRate),
		"signal_quality":  ecg.SignalQuality(dataset.Leads),
		"total_beats":     len(ecg.DetectRPeaks(leadII, dataset.SamplingRate)),
		"duration":        dataset.Duration,
		"sampling_rate":   dataset.SamplingRate,
		"leads_available": dataset.LeadNames,
	})
}

// ECGHealth reports ECG service status.
func (c *Controller) ECGHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":       "healthy",
		"message":      "ECG Analyzer API is running!",
		"model_loaded": c.ecgClassifier != nil,
	})
}

// loadECGSession fetches the caller's uploaded dataset, replying with
// the upload-first error when there is none.
func (c *Controller) loadECGSession(ctx echo.Context) (*ecg.Dataset, error) {
	sessionID := c.requestSession(ctx)
	value, ok := c.ecgSessions.Get(sessionID)
	if !ok {
		c.recordAnalysisError("ecg", "no_data")
		return nil, c.HandleError(ctx, nil,
			"No ECG data loaded. Please upload a file first.",
			http.StatusBadRequest)
	}
	dataset, ok := value.(*ecg.Dataset)
	if !ok {
		return nil, c.HandleError(ctx, nil, "Corrupt session state", http.StatusInternalServerError)
	}
	return dataset, nil
}

// formSamplingRate reads the sampling_rate form value, falling back to
// the configured default on absence or garbage.
func (c *Controller) formSamplingRate(ctx echo.Context, fallback int) int {
	raw := ctx.FormValue("sampling_rate")
	if raw == "" {
		return fallback
	}
	rate, err := strconv.Atoi(raw)
	if err != nil || rate <= 0 {
		return fallback
	}
	return rate
}
