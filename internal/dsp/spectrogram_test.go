package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSpectrogramTonePeak(t *testing.T) {
	t.Parallel()

	const rate = 8000
	buf := sine(1000, rate, rate)
	spec, err := ComputeSpectrogram(buf, rate, DefaultFFTSize, DefaultHopSize)
	require.NoError(t, err)

	require.NotEmpty(t, spec.Magnitudes)
	assert.Len(t, spec.Frequencies, DefaultFFTSize/2+1)
	assert.Len(t, spec.Times, len(spec.Magnitudes))

	binWidth := float64(rate) / DefaultFFTSize
	for _, f := range spec.DominantFrequencies() {
		assert.InDelta(t, 1000, f, binWidth)
	}
}

func TestComputeSpectrogramAxes(t *testing.T) {
	t.Parallel()

	const rate = 4000
	buf := make([]float64, rate)
	spec, err := ComputeSpectrogram(buf, rate, 1024, 256)
	require.NoError(t, err)

	assert.Zero(t, spec.Frequencies[0])
	assert.InDelta(t, float64(rate)/2, spec.Frequencies[len(spec.Frequencies)-1], 1e-9)
	assert.Zero(t, spec.Times[0])
	for i := 1; i < len(spec.Times); i++ {
		assert.InDelta(t, float64(i*256)/rate, spec.Times[i], 1e-12)
	}
}

func TestComputeSpectrogramShortInput(t *testing.T) {
	t.Parallel()

	spec, err := ComputeSpectrogram(sine(100, 1000, 300), 1000, 1024, 256)
	require.NoError(t, err)
	assert.Len(t, spec.Magnitudes, 1)
}

func TestComputeSpectrogramEmptyInput(t *testing.T) {
	t.Parallel()

	spec, err := ComputeSpectrogram(nil, 1000, 1024, 256)
	require.NoError(t, err)
	assert.Empty(t, spec.Magnitudes)
}

func TestComputeSpectrogramRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	_, err := ComputeSpectrogram(nil, 0, 1024, 256)
	assert.Error(t, err)
	_, err = ComputeSpectrogram(nil, 1000, 0, 256)
	assert.Error(t, err)
	_, err = ComputeSpectrogram(nil, 1000, 1024, 0)
	assert.Error(t, err)
}

func TestDecimate(t *testing.T) {
	t.Parallel()

	buf := sine(500, 8000, 8000*4)
	spec, err := ComputeSpectrogram(buf, 8000, 2048, 256)
	require.NoError(t, err)
	require.Greater(t, len(spec.Magnitudes), 50)

	small := spec.Decimate(50, 64)
	assert.LessOrEqual(t, len(small.Magnitudes), 50)
	assert.LessOrEqual(t, len(small.Frequencies), 64)
	assert.Len(t, small.Times, len(small.Magnitudes))
	for _, row := range small.Magnitudes {
		assert.Len(t, row, len(small.Frequencies))
	}

	// Already small spectrograms are returned unchanged.
	same := small.Decimate(1000, 1000)
	assert.Equal(t, small, same)
}
