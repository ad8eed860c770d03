// Package sar reserves the interferometric SAR analysis surface. The
// processing backend is not bundled, so the package only validates
// uploads and reports the capability as unavailable.
package sar

import (
	"path/filepath"
	"strings"

	"github.com/siglab/siglab-go/internal/errors"
)

var allowedExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".nc": true,
}

// SupportedFile reports whether the filename looks like SAR raster data.
func SupportedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Available reports whether the InSAR processing backend is present.
func Available() bool {
	return false
}

// Analyze rejects every request until a processing backend ships.
func Analyze(filename string) error {
	if !SupportedFile(filename) {
		return errors.Newf("unsupported file format: %s", filepath.Ext(filename)).
			Component("sar").
			Category(errors.CategoryValidation).
			Build()
	}
	return errors.Newf("SAR analysis backend is not available").
		Component("sar").
		Category(errors.CategoryCapability).
		Build()
}
