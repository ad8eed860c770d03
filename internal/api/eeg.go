// internal/api/eeg.go
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/eeg"
)

func (c *Controller) initEEGRoutes() {
	c.Group.POST("/eeg/upload", c.UploadEEG)
	c.Group.POST("/eeg/classify", c.ClassifyEEG)
	c.Group.GET("/eeg/polar-data/:mode", c.GetEEGPolarData)
	c.Group.POST("/eeg/recurrence", c.GetRecurrenceData)
	c.Group.GET("/eeg/channels", c.GetEEGChannels)
	c.Group.POST("/eeg/reset", c.ResetEEG)
	c.Group.GET("/eeg/health", c.EEGHealth)
}

// UploadEEG parses an uploaded multichannel CSV, stores it in the
// caller's session and returns the dataset with a first-pass analysis.
func (c *Controller) UploadEEG(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "eeg_file")
	if err != nil {
		return c.HandleError(ctx, err, "No file provided", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}
	if !csvUpload(filename) {
		return c.HandleError(ctx, nil, "Invalid file type", http.StatusBadRequest)
	}

	samplingRate := c.formSamplingRate(ctx, c.Settings.EEG.DefaultSamplingRate)

	dataset, err := eeg.ParseCSV(data, samplingRate)
	if err != nil {
		c.recordUpload("eeg", "error", int64(len(data)))
		return c.HandleError(ctx, err, "Failed to parse EEG file", http.StatusBadRequest)
	}
	c.recordUpload("eeg", "success", int64(len(data)))

	sessionID := c.requestSession(ctx)
	c.eegSessions.Put(sessionID, dataset)

	start := time.Now()
	basicAnalysis := map[string]any{
		"signal_quality": eeg.SignalQuality(dataset.Channels),
		"band_powers":    eeg.BandPowers(dataset),
		"channels_count": len(dataset.Channels),
		"duration":       dataset.Duration,
		"sampling_rate":  dataset.SamplingRate,
	}
	c.recordAnalysis("eeg", time.Since(start))
	for _, ch := range dataset.Channels {
		c.recordSamplesProcessed("eeg", len(ch))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message":  "EEG file processed successfully!",
		"data":     dataset,
		"analysis": basicAnalysis,
	})
}

// EEGClassifyRequest selects the analysis flavor for a loaded dataset.
type EEGClassifyRequest struct {
	AnalysisType string `json:"analysis_type"`
}

// ClassifyEEG runs the full band-power analysis over the dataset in
// the caller's session.
func (c *Controller) ClassifyEEG(ctx echo.Context) error {
	dataset, errResp := c.loadEEGSession(ctx)
	if errResp != nil {
		return errResp
	}

	var req EEGClassifyRequest
	_ = ctx.Bind(&req) // empty body means the default analysis

	start := time.Now()
	classification := eeg.Classify(dataset, req.AnalysisType)
	c.recordAnalysis("eeg", time.Since(start))

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":        true,
		"classification": classification,
		"message":        "EEG analysis completed successfully",
	})
}

// GetEEGPolarData returns polar-plot slices for the selected channels.
// Dynamic mode follows current_time with a 2-second window; fixed mode
// shows the first 10 seconds.
func (c *Controller) GetEEGPolarData(ctx echo.Context) error {
	dataset, errResp := c.loadEEGSession(ctx)
	if errResp != nil {
		return errResp
	}

	currentTime, _ := strconv.ParseFloat(ctx.QueryParam("current_time"), 64)

	var channels []string
	if raw := ctx.QueryParam("channels"); raw != "" {
		channels = strings.Split(raw, ",")
	}

	data := eeg.PolarData(dataset, ctx.Param("mode"), currentTime, channels)
	return ctx.JSON(http.StatusOK, data)
}

// RecurrenceRequest selects two channel regions to compare.
type RecurrenceRequest struct {
	Region1   eeg.Region `json:"region1"`
	Region2   eeg.Region `json:"region2"`
	Threshold float64    `json:"threshold"`
}

// GetRecurrenceData computes recurrence metrics between two selected
// regions of the loaded recording.
func (c *Controller) GetRecurrenceData(ctx echo.Context) error {
	dataset, errResp := c.loadEEGSession(ctx)
	if errResp != nil {
		return errResp
	}

	var req RecurrenceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "No selection data provided", http.StatusBadRequest)
	}
	if req.Region1.ChannelName == "" || req.Region2.ChannelName == "" {
		return c.HandleError(ctx, nil, "Two regions must be selected", http.StatusBadRequest)
	}

	start := time.Now()
	result, err := eeg.Recurrence(dataset, req.Region1, req.Region2)
	if err != nil {
		c.recordAnalysisError("eeg", "invalid_region")
		return c.HandleError(ctx, err, "Invalid channel name selected", http.StatusBadRequest)
	}
	c.recordAnalysis("eeg", time.Since(start))

	return ctx.JSON(http.StatusOK, result)
}

// GetEEGChannels lists channel names of the loaded recording.
func (c *Controller) GetEEGChannels(ctx echo.Context) error {
	dataset, errResp := c.loadEEGSession(ctx)
	if errResp != nil {
		return errResp
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"channels": dataset.ChannelNames,
		"count":    len(dataset.ChannelNames),
	})
}

// ResetEEG drops the caller's uploaded dataset.
func (c *Controller) ResetEEG(ctx echo.Context) error {
	sessionID := c.requestSession(ctx)
	c.eegSessions.Delete(sessionID)

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "EEG data reset successfully",
	})
}

// EEGHealth reports EEG service status.
func (c *Controller) EEGHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "EEG Analyzer API is running!",
	})
}

// loadEEGSession fetches the caller's uploaded dataset, replying with
// the upload-first error when there is none.
func (c *Controller) loadEEGSession(ctx echo.Context) (*eeg.Dataset, error) {
	sessionID := c.requestSession(ctx)
	value, ok := c.eegSessions.Get(sessionID)
	if !ok {
		c.recordAnalysisError("eeg", "no_data")
		return nil, c.HandleError(ctx, nil,
			"No EEG data loaded. Please upload a file first.",
			http.StatusBadRequest)
	}
	dataset, ok := value.(*eeg.Dataset)
	if !ok {
		return nil, c.HandleError(ctx, nil, "Corrupt session state", http.StatusInternalServerError)
	}
	return dataset, nil
}
