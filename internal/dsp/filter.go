package dsp

import (
	"math"
	"sync"

	"github.com/siglab/siglab-go/internal/errors"
)

// Biquad filters based on Robert Bristow-Johnson's audio EQ cookbook.
// The doppler synthesizer uses a high-pass/low-pass pair as a band-limit
// stage; higher pass counts steepen the rolloff.

// FilterName identifies a digital filter type.
type FilterName int

const (
	Undefined FilterName = iota
	LowPass
	HighPass
	BandPass
)

// Filter holds the digital filter parameters and per-pass state.
type Filter struct {
	name FilterName

	// state variables
	in1  []float64
	in2  []float64
	out1 []float64
	out2 []float64

	a0 float64
	a1 float64
	a2 float64
	b0 float64
	b1 float64
	b2 float64

	passes int

	// Pre-computed coefficients for optimization
	b0a0, b1a0, b2a0, a1a0, a2a0 float64
}

// IsZero returns true when f is not initialized.
func (f *Filter) IsZero() bool {
	return f.name == Undefined
}

// NewFilter creates a new Filter with the specified number of passes
func NewFilter(name FilterName, a0, a1, a2, b0, b1, b2 float64, passes int) *Filter {
	f := &Filter{
		name:   name,
		a0:     a0,
		a1:     a1,
		a2:     a2,
		b0:     b0,
		b1:     b1,
		b2:     b2,
		passes: passes,
		in1:    make([]float64, passes),
		in2:    make([]float64, passes),
		out1:   make([]float64, passes),
		out2:   make([]float64, passes),
	}

	f.b0a0 = b0 / a0
	f.b1a0 = b1 / a0
	f.b2a0 = b2 / a0
	f.a1a0 = a1 / a0
	f.a2a0 = a2 / a0

	return f
}

// ApplyBatch applies the filter to a batch of samples in place.
func (f *Filter) ApplyBatch(input []float64) {
	for p := 0; p < f.passes; p++ {
		for i := range input {
			output := f.b0a0*input[i] + f.b1a0*f.in1[p] + f.b2a0*f.in2[p] -
				f.a1a0*f.out1[p] - f.a2a0*f.out2[p]

			f.in2[p] = f.in1[p]
			f.in1[p] = input[i]
			f.out2[p] = f.out1[p]
			f.out1[p] = output

			input[i] = output
		}
	}
}

// NewLowPass returns a low-pass filter.
//
// passes controls the slope (1 = 12dB/oct, 2 = 24dB/oct, 4 = 48dB/oct).
// q must be greater than 0.
func NewLowPass(sampleRate, frequency, q float64, passes int) (*Filter, error) {
	if passes < 1 {
		return nil, errors.Newf("filter passes must be 1 or greater").Component("dsp").Category(errors.CategoryValidation).Build()
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)

	return NewFilter(
		LowPass,
		1.0+alpha,
		-2.0*math.Cos(w0),
		1.0-alpha,
		(1.0-math.Cos(w0))/2.0,
		1.0-math.Cos(w0),
		(1.0-math.Cos(w0))/2.0,
		passes,
	), nil
}

// NewHighPass returns a high-pass filter with the same parameter
// conventions as NewLowPass.
func NewHighPass(sampleRate, frequency, q float64, passes int) (*Filter, error) {
	if passes < 1 {
		return nil, errors.Newf("filter passes must be 1 or greater").Component("dsp").Category(errors.CategoryValidation).Build()
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)

	return NewFilter(
		HighPass,
		1.0+alpha,
		-2.0*math.Cos(w0),
		1.0-alpha,
		(1.0+math.Cos(w0))/2.0,
		-1.0*(1.0+math.Cos(w0)),
		(1.0+math.Cos(w0))/2.0,
		passes,
	), nil
}

// NewBandPass returns a band-pass filter. width is the bandwidth in
// octaves and must be greater than 0.
func NewBandPass(sampleRate, frequency, width float64, passes int) (*Filter, error) {
	if passes < 1 {
		return nil, errors.Newf("filter passes must be 1 or greater").Component("dsp").Category(errors.CategoryValidation).Build()
	}

	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) * math.Sinh(math.Log(2.0)/2.0*width*w0/math.Sin(w0))

	return NewFilter(
		BandPass,
		1.0+alpha,
		-2.0*math.Cos(w0),
		1.0-alpha,
		alpha,
		0.0,
		-1.0*alpha,
		passes,
	), nil
}

// FilterChain applies a sequence of filters in order.
type FilterChain struct {
	filters []*Filter
	mu      sync.RWMutex
}

// NewFilterChain creates and returns a new FilterChain.
func NewFilterChain() *FilterChain {
	return &FilterChain{
		filters: make([]*Filter, 0),
	}
}

// AddFilter adds a new filter to the chain.
func (fc *FilterChain) AddFilter(f *Filter) error {
	if f == nil || f.IsZero() {
		return errors.Newf("cannot add nil or uninitialized filter").
			Component("dsp").
			Category(errors.CategoryValidation).
			Build()
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.filters = append(fc.filters, f)

	return nil
}

// Length returns the number of filters in the chain.
func (fc *FilterChain) Length() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.filters)
}

// ApplyBatch applies all filters in the chain to a batch of samples.
func (fc *FilterChain) ApplyBatch(input []float64) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, filter := range fc.filters {
		if filter != nil {
			filter.ApplyBatch(input)
		}
	}
}
