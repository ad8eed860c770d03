// internal/api/sar.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siglab/siglab-go/internal/errors"
	"github.com/siglab/siglab-go/internal/sar"
)

func (c *Controller) initSARRoutes() {
	c.Group.POST("/sar/analyze", c.AnalyzeSAR)
	c.Group.GET("/sar/health", c.SARHealth)
}

// AnalyzeSAR validates an uploaded interferogram and reports the
// processing capability as unavailable. The InSAR toolchain is an
// external collaborator that is not bundled with this service.
func (c *Controller) AnalyzeSAR(ctx echo.Context) error {
	filename, _, err := readFormFile(ctx, "file")
	if err != nil {
		return c.HandleError(ctx, err, "No file uploaded", http.StatusBadRequest)
	}
	if filename == "" {
		return c.HandleError(ctx, nil, "No file selected", http.StatusBadRequest)
	}

	analyzeErr := sar.Analyze(filename)
	var enhanced *errors.EnhancedError
	if errors.As(analyzeErr, &enhanced) && enhanced.GetCategory() == string(errors.CategoryValidation) {
		return c.HandleError(ctx, analyzeErr, "Unsupported file format. Use TIFF or NetCDF", http.StatusBadRequest)
	}
	return c.HandleError(ctx, analyzeErr, "SAR analysis is not available on this server", http.StatusNotImplemented)
}

// SARHealth reports SAR service status.
func (c *Controller) SARHealth(ctx echo.Context) error {
	status := "healthy"
	if !sar.Available() {
		status = "degraded"
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":        status,
		"message":       "SAR Analysis API is running!",
		"sar_available": sar.Available(),
	})
}
