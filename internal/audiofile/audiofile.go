// Package audiofile decodes uploaded WAV files into mono float buffers
// and encodes processed PCM back into browser-ready WAV payloads.
package audiofile

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/siglab/siglab-go/internal/errors"
)

// DecodedAudio is a mono float64 buffer with its source format details.
type DecodedAudio struct {
	Samples    []float64
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   float64
}

// DecodeWAV decodes WAV data into a mono float64 buffer normalized to
// [-1, 1]. Stereo input is averaged down to mono. 16, 24 and 32-bit
// integer PCM are supported.
func DecodeWAV(data []byte) (*DecodedAudio, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("invalid WAV file format").
			Component("audiofile").
			Category(errors.CategoryAudioDecode).
			Build()
	}

	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return nil, errors.Newf("unsupported bit depth: %d", decoder.BitDepth).
			Component("audiofile").
			Category(errors.CategoryAudioDecode).
			Build()
	}
	if decoder.NumChans != 1 && decoder.NumChans != 2 {
		return nil, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("audiofile").
			Category(errors.CategoryAudioDecode).
			Build()
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryAudioDecode).
			Context("bit_depth", int(decoder.BitDepth)).
			Build()
	}

	divisor, err := sampleDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	channels := int(decoder.NumChans)
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) / divisor
		}
		samples[i] = sum / float64(channels)
	}

	rate := int(decoder.SampleRate)
	out := &DecodedAudio{
		Samples:    samples,
		SampleRate: rate,
		Channels:   channels,
		BitDepth:   int(decoder.BitDepth),
	}
	if rate > 0 {
		out.Duration = float64(frames) / float64(rate)
	}
	return out, nil
}

func sampleDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component("audiofile").
			Category(errors.CategoryAudioDecode).
			Build()
	}
}

// EncodePCM16WAV encodes 16-bit PCM samples into an in-memory mono WAV
// file at the given rate.
func EncodePCM16WAV(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", sampleRate).
			Component("audiofile").
			Category(errors.CategoryValidation).
			Build()
	}

	intSamples := make([]int, len(samples))
	for i, s := range samples {
		intSamples[i] = int(s)
	}

	w := &memWriteSeeker{}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Data:   intSamples,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: 1},
	}); err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryAudioEncode).
			Build()
	}
	if err := enc.Close(); err != nil {
		return nil, errors.New(err).
			Component("audiofile").
			Category(errors.CategoryAudioEncode).
			Build()
	}
	return w.Bytes(), nil
}

// DataURI wraps WAV bytes in a data:audio/wav;base64 URI for direct
// embedding in JSON responses.
func DataURI(wavData []byte) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wavData)
}

// memWriteSeeker is an in-memory io.WriteSeeker. The WAV encoder seeks
// back to patch chunk sizes on Close, so a plain bytes.Buffer is not
// enough.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		if need > cap(m.buf) {
			grown := make([]byte, need, need*2)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:need]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative seek position %d", abs)
	}
	m.pos = int(abs)
	return abs, nil
}

func (m *memWriteSeeker) Bytes() []byte {
	return m.buf
}
