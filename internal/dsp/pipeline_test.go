package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAliasingMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		rate        int
		wantNyquist float64
		wantAlias   bool
	}{
		{"cd quality", 44100, 22050, false},
		{"voice floor", 8000, 4000, false},
		{"just below floor", 7999, 3999.5, true},
		{"telephone band", 4000, 2000, true},
		{"extreme decimation", 500, 250, true},
		{"studio rate", 48000, 24000, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			md := ComputeAliasingMetadata(tt.rate)
			assert.InDelta(t, tt.wantNyquist, md.NyquistFrequency, 0)
			assert.Equal(t, tt.wantAlias, md.IsAliasing)
		})
	}
}

func TestResampleForAnalysis(t *testing.T) {
	t.Parallel()

	t.Run("identity when no target", func(t *testing.T) {
		t.Parallel()
		buf := sine(440, 8000, 8000)
		res, err := ResampleForAnalysis(buf, 8000, 0)
		require.NoError(t, err)
		assert.False(t, res.WasResampled)
		assert.Equal(t, 8000, res.Rate)
		assert.Equal(t, buf, res.Samples)
	})

	t.Run("identity when target equals original", func(t *testing.T) {
		t.Parallel()
		buf := sine(440, 8000, 800)
		res, err := ResampleForAnalysis(buf, 8000, 8000)
		require.NoError(t, err)
		assert.False(t, res.WasResampled)
		assert.Len(t, res.Samples, 800)
	})

	t.Run("downsample length is rounded ratio", func(t *testing.T) {
		t.Parallel()
		buf := sine(440, 48000, 48000)
		res, err := ResampleForAnalysis(buf, 48000, 4000)
		require.NoError(t, err)
		assert.True(t, res.WasResampled)
		assert.Equal(t, 4000, res.Rate)
		assert.Len(t, res.Samples, 4000)
		assert.True(t, res.IsAliasing)
		assert.InDelta(t, 2000.0, res.NyquistFrequency, 0)
	})

	t.Run("odd length rounds", func(t *testing.T) {
		t.Parallel()
		buf := make([]float64, 1001)
		res, err := ResampleForAnalysis(buf, 3000, 2000)
		require.NoError(t, err)
		// round(1001 * 2000/3000) = round(667.33) = 667
		assert.Len(t, res.Samples, 667)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		t.Parallel()
		res, err := ResampleForAnalysis([]float64{}, 48000, 4000)
		require.NoError(t, err)
		assert.Empty(t, res.Samples)
	})

	t.Run("invalid original rate fails fast", func(t *testing.T) {
		t.Parallel()
		_, err := ResampleForAnalysis([]float64{0.1}, 0, 4000)
		assert.Error(t, err)
		_, err = ResampleForAnalysis([]float64{0.1}, -8000, 4000)
		assert.Error(t, err)
	})
}

func TestResamplePreservesDC(t *testing.T) {
	t.Parallel()

	buf := make([]float64, 1000)
	for i := range buf {
		buf[i] = 0.5
	}
	out, err := Resample(buf, 1000, 500)
	require.NoError(t, err)
	require.Len(t, out, 500)
	for _, s := range out {
		assert.InDelta(t, 0.5, s, 1e-9)
	}

	up, err := Resample(buf, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, up, 2000)
	for _, s := range up {
		assert.InDelta(t, 0.5, s, 1e-9)
	}
}

func TestResamplePreservesInBandTone(t *testing.T) {
	t.Parallel()

	// A 200 Hz tone is well inside the band of both rates, so the
	// downsampled signal must still be a 200 Hz tone.
	buf := sine(200, 8000, 8000)
	out, err := Resample(buf, 8000, 2000)
	require.NoError(t, err)
	require.Len(t, out, 2000)

	want := sine(200, 2000, 2000)
	for i := 10; i < len(out)-10; i++ {
		assert.InDelta(t, want[i], out[i], 1e-6, "sample %d", i)
	}
}

func TestPreparePlaybackModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		rate          int
		mode          Mode
		wantRate      int
		wantUpsampled bool
	}{
		{"playback below floor upsamples", 4000, ModePlayback, 8000, true},
		{"playback at floor", 8000, ModePlayback, 8000, false},
		{"playback above floor", 44100, ModePlayback, 44100, false},
		{"download keeps low rate", 4000, ModeDownload, 4000, false},
		{"download keeps high rate", 44100, ModeDownload, 44100, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := sine(300, tt.rate, tt.rate/2)
			payload, err := PreparePlayback(buf, tt.rate, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRate, payload.Rate)
			assert.Equal(t, tt.wantUpsampled, payload.WasUpsampled)
		})
	}
}

func TestPreparePlaybackEndToEndScenario(t *testing.T) {
	t.Parallel()

	// 48000 samples at 48000 Hz downsampled to 4000 Hz, then prepared
	// for playback.
	buf := sine(440, 48000, 48000)
	res, err := ResampleForAnalysis(buf, 48000, 4000)
	require.NoError(t, err)
	require.Len(t, res.Samples, 4000)
	assert.True(t, res.IsAliasing)

	playback, err := PreparePlayback(res.Samples, res.Rate, ModePlayback)
	require.NoError(t, err)
	assert.Equal(t, 8000, playback.Rate)
	assert.True(t, playback.WasUpsampled)
	assert.Len(t, playback.Samples, 8000)

	download, err := PreparePlayback(res.Samples, res.Rate, ModeDownload)
	require.NoError(t, err)
	assert.Equal(t, 4000, download.Rate)
	assert.False(t, download.WasUpsampled)
	assert.Len(t, download.Samples, 4000)
}

func TestPreparePlaybackSanitizesHostileInput(t *testing.T) {
	t.Parallel()

	buf := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 50, -50, 0.1}
	payload, err := PreparePlayback(buf, 8000, ModePlayback)
	require.NoError(t, err)
	require.Len(t, payload.Samples, len(buf))
	for _, s := range payload.Samples {
		assert.GreaterOrEqual(t, s, int16(-32768))
		assert.LessOrEqual(t, s, int16(32767))
	}
}

func TestPreparePlaybackEmptyBuffer(t *testing.T) {
	t.Parallel()

	payload, err := PreparePlayback([]float64{}, 4000, ModePlayback)
	require.NoError(t, err)
	assert.Empty(t, payload.Samples)
}

func TestPreparePlaybackRMSTarget(t *testing.T) {
	t.Parallel()

	// A quiet sine should come out normalized near the loudness target.
	buf := sine(440, 16000, 16000)
	for i := range buf {
		buf[i] *= 0.01
	}
	payload, err := PreparePlayback(buf, 16000, ModePlayback)
	require.NoError(t, err)

	floats := make([]float64, len(payload.Samples))
	for i, s := range payload.Samples {
		floats[i] = float64(s) / 32767
	}
	assert.InDelta(t, TargetRMS, RMS(floats), 0.02)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("playback")
	require.NoError(t, err)
	assert.Equal(t, ModePlayback, m)

	m, err = ParseMode("download")
	require.NoError(t, err)
	assert.Equal(t, ModeDownload, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModePlayback, m)

	_, err = ParseMode("stream")
	assert.Error(t, err)
}

func sine(freq float64, rate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

func TestResampleForAnalysisRejectsNegativeTarget(t *testing.T) {
	t.Parallel()

	buf := make([]float64, 100)
	_, err := ResampleForAnalysis(buf, 8000, -4000)
	assert.Error(t, err)
}

func TestPipelineTunables(t *testing.T) {
	t.Parallel()

	p := Pipeline{
		AliasingThreshold: 16000,
		MinPlaybackRate:   4000,
		TargetRMS:         0.1,
		SoftClipKnee:      0.6,
	}

	meta := p.ComputeAliasingMetadata(12000)
	assert.True(t, meta.IsAliasing)
	assert.Equal(t, 6000.0, meta.NyquistFrequency)

	result, err := p.ResampleForAnalysis(make([]float64, 100), 12000, 0)
	require.NoError(t, err)
	assert.True(t, result.IsAliasing)

	// One second of a clean tone: loudness lands on the configured RMS
	// and the playback floor replaces the default one.
	buf := make([]float64, 2000)
	for i := range buf {
		buf[i] = 0.5 * math.Sin(2*math.Pi*100*float64(i)/2000)
	}
	payload, err := p.PreparePlayback(buf, 2000, ModePlayback)
	require.NoError(t, err)
	assert.Equal(t, 4000, payload.Rate)
	assert.True(t, payload.WasUpsampled)

	var sum float64
	for _, s := range payload.Samples {
		v := float64(s) / 32767
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(payload.Samples)))
	assert.InDelta(t, 0.1, rms, 0.01)
}
