// Package doppler synthesizes vehicle pass-by sounds with a Doppler
// frequency shift and analyzes recordings for the same effect.
package doppler

import (
	"math"
	"math/rand"
	"time"

	"github.com/siglab/siglab-go/internal/dsp"
	"github.com/siglab/siglab-go/internal/errors"
	"github.com/siglab/siglab-go/internal/logging"
)

// Physical model constants.
const (
	SoundSpeed      = 343.0 // m/s
	InitialDistance = 80.0  // starting distance in meters
	MinDistance     = 3.0   // closest approach distance in meters
)

// Generator parameter bounds enforced at the API boundary.
const (
	MinBaseFrequency = 80
	MaxBaseFrequency = 1000
	MaxVelocityKMH   = 500
)

// Generator synthesizes vehicle sounds with a Doppler shift. Synthesis
// runs at a reduced rate and is FFT-upsampled at the end, which keeps
// the cumulative-phase integration cheap.
type Generator struct {
	SampleRate       int
	Duration         float64
	DownsampleFactor int

	rng *rand.Rand
}

// NewGenerator returns a Generator for the given output rate and clip
// duration.
func NewGenerator(sampleRate int, duration float64, downsampleFactor int) *Generator {
	return &Generator{
		SampleRate:       sampleRate,
		Duration:         duration,
		DownsampleFactor: downsampleFactor,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed makes subsequent synthesis deterministic.
func (g *Generator) Seed(seed int64) {
	g.rng = rand.New(rand.NewSource(seed))
}

// Generate synthesizes a vehicle pass-by at the given engine fundamental
// (Hz) and speed (m/s). It returns the time axis and the normalized
// waveform at the generator's output rate. Degenerate parameters fall
// back to a plain engine tone rather than failing the request.
func (g *Generator) Generate(baseFrequency, velocity float64) (times, samples []float64, err error) {
	if g.SampleRate <= 0 || g.Duration <= 0 || g.DownsampleFactor <= 0 {
		return nil, nil, errors.Newf("invalid generator parameters: rate=%d duration=%g factor=%d",
			g.SampleRate, g.Duration, g.DownsampleFactor).
			Component("doppler").
			Category(errors.CategoryValidation).
			Build()
	}

	out, genErr := g.synthesize(baseFrequency, velocity)
	if genErr != nil {
		logging.ForService("doppler").Warn("synthesis failed, falling back to plain tone", "error", genErr)
		return g.fallbackTone(baseFrequency)
	}
	return linspace(0, g.Duration, len(out)), out, nil
}

func (g *Generator) synthesize(baseFrequency, velocity float64) ([]float64, error) {
	downsampledRate := g.SampleRate / g.DownsampleFactor
	n := int(g.Duration * float64(downsampledRate))
	if n < 2 || downsampledRate < 2 {
		return nil, errors.Newf("synthesis window too short: %d samples at %d Hz", n, downsampledRate).
			Component("doppler").
			Category(errors.CategoryDSP).
			Build()
	}

	t := linspace(0, g.Duration, n)

	// Vehicle kinematics relative to a stationary observer offset by
	// the closest-approach distance.
	position := make([]float64, n)
	distance := make([]float64, n)
	radialVelocity := make([]float64, n)
	for i := range t {
		position[i] = -InitialDistance + velocity*t[i]
		distance[i] = math.Sqrt(position[i]*position[i] + MinDistance*MinDistance)
		radialVelocity[i] = velocity * position[i] / distance[i]
	}

	// Doppler-shifted engine fundamental with a light 8 Hz wobble.
	frequency := make([]float64, n)
	for i := range t {
		frequency[i] = baseFrequency * (SoundSpeed / (SoundSpeed + radialVelocity[i]))
		frequency[i] *= 1 + 0.02*math.Sin(2*math.Pi*8*t[i])
	}

	// Integrate instantaneous frequency into phase, then stack engine
	// harmonics plus a noise floor.
	samples := make([]float64, n)
	var phaseAccum float64
	for i := range samples {
		phaseAccum += frequency[i]
		phase := 2 * math.Pi * phaseAccum / float64(downsampledRate)
		samples[i] = 0.5*math.Sin(phase) +
			0.25*math.Sin(2.1*phase+0.3) +
			0.15*math.Sin(3.2*phase+1.2) +
			0.1*g.rng.NormFloat64()
	}

	noise := make([]float64, n)
	for i := range noise {
		noise[i] = 0.2 * g.rng.NormFloat64()
	}
	shapeNoise(noise, 100, math.Min(2500, float64(downsampledRate/2-1)), downsampledRate)

	for i := range samples {
		envelope := 2.0 / (distance[i] + 1e-3)
		samples[i] = (samples[i] + noise[i]) * envelope
	}

	applyBandLimit(samples, 30, math.Min(4000, float64(downsampledRate/2-1)), downsampledRate)

	normalizePeak(samples)

	upsampled, err := dsp.Resample(samples, downsampledRate, downsampledRate*g.DownsampleFactor)
	if err != nil {
		return nil, err
	}
	return upsampled, nil
}

func (g *Generator) fallbackTone(baseFrequency float64) (times, samples []float64, err error) {
	n := int(float64(g.SampleRate) * g.Duration)
	if n < 2 {
		n = 2
	}
	t := linspace(0, g.Duration, n)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*baseFrequency*t[i])
	}
	return t, out, nil
}

// applyBandLimit band-limits the buffer in place with a chain holding a
// steep biquad high-pass/low-pass pair. Degenerate band edges leave the
// buffer untouched, matching the tolerant behavior of the synthesis
// chain.
func applyBandLimit(samples []float64, low, high float64, rate int) {
	nyquist := float64(rate) / 2
	if low <= 0 || high >= nyquist || low >= high {
		return
	}
	hp, err := dsp.NewHighPass(float64(rate), low, 0.707, 2)
	if err != nil {
		return
	}
	lp, err := dsp.NewLowPass(float64(rate), high, 0.707, 2)
	if err != nil {
		return
	}
	chain := dsp.NewFilterChain()
	if chain.AddFilter(hp) != nil || chain.AddFilter(lp) != nil {
		return
	}
	chain.ApplyBatch(samples)
}

// shapeNoise colors the noise floor with a single wide band-pass
// centered geometrically between the band edges, leaving degenerate
// bands untouched.
func shapeNoise(samples []float64, low, high float64, rate int) {
	nyquist := float64(rate) / 2
	if low <= 0 || high >= nyquist || low >= high {
		return
	}
	center := math.Sqrt(low * high)
	widthOctaves := math.Log2(high / low)
	bp, err := dsp.NewBandPass(float64(rate), center, widthOctaves, 1)
	if err != nil {
		return
	}
	chain := dsp.NewFilterChain()
	if chain.AddFilter(bp) != nil {
		return
	}
	chain.ApplyBatch(samples)
}

func normalizePeak(samples []float64) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range samples {
			samples[i] /= peak
		}
	}
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
