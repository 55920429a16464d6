// Package ofdm converts between time domain sample streams and per symbol
// frequency domain carrier arrays.
package ofdm

import (
	"fmt"

	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Framer holds one FFT plan per transform length. It is not safe for concurrent use.
type Framer struct {
	logger zerolog.Logger
	ffts   map[int]*fourier.CmplxFFT

	dropped int
}

type FramerOption func(f *Framer)

func WithLogger(logger zerolog.Logger) FramerOption {
	return func(f *Framer) {
		f.logger = logger
	}
}

func NewFramer(opts ...FramerOption) *Framer {
	f := &Framer{
		logger: log.Logger,
		ffts:   make(map[int]*fourier.CmplxFFT),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Framer) plan(n int) *fourier.CmplxFFT {
	p, ok := f.ffts[n]
	if !ok {
		p = fourier.NewCmplxFFT(n)
		f.ffts[n] = p
	}
	return p
}

// Dropped reports how many trailing samples the last TimeToFrequencySymbols
// call discarded.
func (f *Framer) Dropped() int {
	return f.dropped
}

// Spectrum is the forward transform of x with the zero frequency bin moved to
// index len(x)/2.
func (f *Framer) Spectrum(x []complex128) []complex128 {
	n := len(x)
	coeff := f.plan(n).Coefficients(nil, x)
	ret := make([]complex128, n)
	half := n / 2
	for i := range ret {
		ret[i] = coeff[(i+n-half)%n]
	}
	return ret
}

// Waveform inverts Spectrum, including the 1/n scaling.
func (f *Framer) Waveform(centered []complex128) []complex128 {
	n := len(centered)
	coeff := make([]complex128, n)
	half := n / 2
	for i, v := range centered {
		coeff[(i+n-half)%n] = v
	}
	ret := f.plan(n).Sequence(nil, coeff)
	scale := complex(1/float64(n), 0)
	for i := range ret {
		ret[i] *= scale
	}
	return ret
}

// TimeToFrequencySymbols cuts samples into symbol periods, strips each cyclic
// prefix and returns the concatenated active carriers. A trailing partial
// symbol is dropped.
func (f *Framer) TimeToFrequencySymbols(params dvbt.ModeParameters, samples []complex128) ([]complex128, error) {
	symLen := params.SymbolLength()
	count := len(samples) / symLen
	f.dropped = len(samples) - count*symLen
	if f.dropped > 0 {
		f.logger.Debug().Str("params", params.String()).Int("dropped", f.dropped).Msg("dropping partial trailing symbol")
	}

	ret := make([]complex128, 0, count*params.ActiveCarriers)
	for i := 0; i < count; i++ {
		block := samples[i*symLen : (i+1)*symLen]
		body, err := ToggleCyclicPrefix(block, params.CyclicPrefixLength, Remove)
		if err != nil {
			return nil, err
		}
		active, err := ToggleGuardBand(f.Spectrum(body), params.FFTLength, params.ActiveCarriers, Remove)
		if err != nil {
			return nil, err
		}
		ret = append(ret, active...)
	}
	return ret, nil
}

// FrequencyToTimeSymbols is the inverse of TimeToFrequencySymbols.
func (f *Framer) FrequencyToTimeSymbols(params dvbt.ModeParameters, symbols []complex128) ([]complex128, error) {
	return f.Synthesize(params.FFTLength, params.ActiveCarriers, params.CyclicPrefixLength, symbols)
}

// Synthesize pads every k carrier symbol to fftLength bins, transforms it to
// the time domain and prepends cpLength samples of cyclic prefix. A cpLength of
// zero yields bare fftLength symbols.
func (f *Framer) Synthesize(fftLength, k, cpLength int, symbols []complex128) ([]complex128, error) {
	if k <= 0 || len(symbols)%k != 0 {
		return nil, fmt.Errorf("%w: %d carriers is not a whole number of %d carrier symbols", dvbt.ErrInvalidLength, len(symbols), k)
	}
	count := len(symbols) / k
	ret := make([]complex128, 0, count*(fftLength+cpLength))
	for i := 0; i < count; i++ {
		padded, err := ToggleGuardBand(symbols[i*k:(i+1)*k], fftLength, k, Add)
		if err != nil {
			return nil, err
		}
		sym, err := ToggleCyclicPrefix(f.Waveform(padded), cpLength, Add)
		if err != nil {
			return nil, err
		}
		ret = append(ret, sym...)
	}
	return ret, nil
}

// TimeToFrequencySymbols runs a throwaway Framer.
func TimeToFrequencySymbols(params dvbt.ModeParameters, samples []complex128) ([]complex128, error) {
	return NewFramer().TimeToFrequencySymbols(params, samples)
}

// FrequencyToTimeSymbols runs a throwaway Framer.
func FrequencyToTimeSymbols(params dvbt.ModeParameters, symbols []complex128) ([]complex128, error) {
	return NewFramer().FrequencyToTimeSymbols(params, symbols)
}
