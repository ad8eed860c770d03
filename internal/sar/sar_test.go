package sar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siglab/siglab-go/internal/errors"
)

func TestSupportedFile(t *testing.T) {
	t.Parallel()

	assert.True(t, SupportedFile("scene.tif"))
	assert.True(t, SupportedFile("scene.TIFF"))
	assert.True(t, SupportedFile("stack.nc"))
	assert.False(t, SupportedFile("scene.png"))
	assert.False(t, SupportedFile("scene"))
}

func TestAnalyzeAlwaysUnavailable(t *testing.T) {
	t.Parallel()

	assert.False(t, Available())

	err := Analyze("scene.tif")
	assert.Error(t, err)
	var enhanced *errors.EnhancedError
	if assert.ErrorAs(t, err, &enhanced) {
		assert.Equal(t, string(errors.CategoryCapability), enhanced.GetCategory())
	}

	err = Analyze("scene.png")
	if assert.ErrorAs(t, err, &enhanced) {
		assert.Equal(t, string(errors.CategoryValidation), enhanced.GetCategory())
	}
}
