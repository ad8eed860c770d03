package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSARUnavailable(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/sar/analyze", "file", "scene.tif",
		[]byte("tiff bytes"), nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestAnalyzeSARBadExtension(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := postMultipart(c, t, "/api/v1/sar/analyze", "file", "scene.png",
		[]byte("png bytes"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSARHealthDegraded(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/v1/sar/health", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["sar_available"])
}
