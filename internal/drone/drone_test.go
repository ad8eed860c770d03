package drone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Detect("recording.wav", 1024)
	require.NoError(t, err)
	second, err := Detect("recording.wav", 1024)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDetectFilenameHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"my_drone_flight.wav", "DRONE"},
		{"helicopter_pass.mp3", "DRONE"},
		{"bird_song_morning.flac", "BIRD"},
		{"chirp_sample.ogg", "BIRD"},
		{"wind_noise.wav", "NOISE"},
		{"static_hiss.m4a", "NOISE"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			result, err := Detect(tt.filename, 2048)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Prediction, "top classes: %v", result.TopClasses)
		})
	}
}

func TestDetectResultShape(t *testing.T) {
	t.Parallel()

	result, err := Detect("aircraft_hover.wav", 4096)
	require.NoError(t, err)

	assert.Len(t, result.TopClasses, 5)
	for i := 1; i < len(result.TopClasses); i++ {
		assert.GreaterOrEqual(t, result.TopClasses[i-1].Score, result.TopClasses[i].Score)
	}
	for _, sc := range result.TopClasses {
		assert.GreaterOrEqual(t, sc.Score, 0.01)
		assert.LessOrEqual(t, sc.Score, 0.5)
	}

	// Confidences cover the full drone/bird/noise vocabulary.
	assert.Len(t, result.Confidences, len(DroneClasses)+len(BirdClasses)+len(NoiseClasses))

	total := result.ConfidenceScores.Drone + result.ConfidenceScores.Bird + result.ConfidenceScores.Noise
	assert.GreaterOrEqual(t, total, 0.0)
	assert.Contains(t, []string{"DRONE", "BIRD", "NOISE"}, result.Prediction)
}

func TestDetectUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Detect("document.pdf", 100)
	assert.Error(t, err)
	_, err = Detect("noextension", 100)
	assert.Error(t, err)
}

func TestSupportedFile(t *testing.T) {
	t.Parallel()

	assert.True(t, SupportedFile("a.wav"))
	assert.True(t, SupportedFile("A.WAV"))
	assert.True(t, SupportedFile("x.flac"))
	assert.False(t, SupportedFile("x.txt"))
	assert.False(t, SupportedFile("x"))
}
