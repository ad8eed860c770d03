package audiofile

import (
	"math"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	const rate = 8000
	samples := make([]int16, rate)
	for i := range samples {
		samples[i] = int16(math.Round(10000 * math.Sin(2*math.Pi*440*float64(i)/rate)))
	}

	data, err := EncodePCM16WAV(samples, rate)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))

	decoded, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, rate, decoded.SampleRate)
	assert.Equal(t, 1, decoded.Channels)
	assert.Equal(t, 16, decoded.BitDepth)
	require.Len(t, decoded.Samples, len(samples))
	assert.InDelta(t, 1.0, decoded.Duration, 1e-9)

	for i, want := range samples {
		got := int16(math.Round(decoded.Samples[i] * 32768))
		assert.Equal(t, want, got, "sample %d", i)
	}
}

func TestDecodeWAVAveragesStereo(t *testing.T) {
	t.Parallel()

	// Left channel at +8192, right at -4096: the mono mix lands at the
	// midpoint.
	w := &memWriteSeeker{}
	enc := wav.NewEncoder(w, 8000, 16, 2, 1)
	frames := 100
	data := make([]int, 0, frames*2)
	for i := 0; i < frames; i++ {
		data = append(data, 8192, -4096)
	}
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:   data,
		Format: &audio.Format{SampleRate: 8000, NumChannels: 2},
	}))
	require.NoError(t, enc.Close())

	decoded, err := DecodeWAV(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Channels)
	require.Len(t, decoded.Samples, frames)
	want := (8192.0 - 4096.0) / 2 / 32768.0
	for _, s := range decoded.Samples {
		assert.InDelta(t, want, s, 1e-9)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeWAV([]byte("definitely not a wav file"))
	assert.Error(t, err)

	_, err = DecodeWAV(nil)
	assert.Error(t, err)
}

func TestEncodePCM16WAVRejectsBadRate(t *testing.T) {
	t.Parallel()

	_, err := EncodePCM16WAV([]int16{0, 1, 2}, 0)
	assert.Error(t, err)
	_, err = EncodePCM16WAV([]int16{0, 1, 2}, -8000)
	assert.Error(t, err)
}

func TestEncodeEmptyPayload(t *testing.T) {
	t.Parallel()

	data, err := EncodePCM16WAV(nil, 8000)
	require.NoError(t, err)
	// Header-only WAV still decodes to zero samples at the right rate.
	decoded, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.Samples)
	assert.Equal(t, 8000, decoded.SampleRate)
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	data, err := EncodePCM16WAV([]int16{0, 100, -100}, 8000)
	require.NoError(t, err)

	uri := DataURI(data)
	assert.True(t, strings.HasPrefix(uri, "data:audio/wav;base64,"))
	assert.Greater(t, len(uri), len("data:audio/wav;base64,"))
}
