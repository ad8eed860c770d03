// internal/api/drone.go
package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/drone"
)

func (c *Controller) initDroneRoutes() {
	c.Group.POST("/drone/detect", c.DetectDrone)
	c.Group.POST("/drone/analyze", c.DetectDrone)
	c.Group.GET("/drone/classes", c.GetDetectionClasses)
	c.Group.GET("/drone/health", c.DroneHealth)
}

// DetectDrone classifies an uploaded audio clip as drone, bird or
// noise. The simulation is deterministic per filename.
func (c *Controller) DetectDrone(ctx echo.Context) error {
	filename, data, err := readFormFile(ctx, "file")
	if err != nil {
		return c.HandleError(ctx, err, "No file uploaded", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}
	if !drone.SupportedFile(filename) {
		return c.HandleError(ctx, nil, "Unsupported file format. Use MP3, WAV, or OGG", http.StatusBadRequest)
	}
	c.recordUpload("audio", "success", int64(len(data)))

	start := time.Now()
	detection, err := drone.Detect(filename, int64(len(data)))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to process audio", http.StatusInternalServerError)
	}
	c.recordAnalysis("drone", time.Since(start))

	fileType := strings.ToUpper(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ctx.JSON(http.StatusOK, map[string]any{
		"success":           true,
		"prediction":        detection.Prediction,
		"confidence_scores": detection.ConfidenceScores,
		"confidences":       detection.Confidences,
		"top_classes":       detection.TopClasses,
		"audio_info": map[string]any{
			"file_type":     fileType,
			"file_size":     strconv.Itoa(len(data)) + " bytes",
			"analysis_time": time.Now().Format("15:04:05"),
		},
	})
}

// GetDetectionClasses lists the class vocabulary used by the detector.
func (c *Controller) GetDetectionClasses(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"drone_classes": drone.DroneClasses,
		"bird_classes":  drone.BirdClasses,
		"noise_classes": drone.NoiseClasses,
		"other_classes": drone.OtherClasses,
	})
}

// DroneHealth reports drone service status.
func (c *Controller) DroneHealth(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "Drone Detection API is running!",
	})
}
