// Package equalizer estimates the channel response of each OFDM symbol from its
// continual pilots and divides it out.
package equalizer

import (
	"fmt"
	"math/cmplx"

	"github.com/norasector/dvbtsync/pkg/dvbt"
	"github.com/norasector/dvbtsync/pkg/dvbt/pilot"
	"gonum.org/v1/gonum/interp"
)

// Interpolation selects how pilot estimates are spread over the other carriers.
type Interpolation string

const (
	Linear         Interpolation = "linear"
	Nearest        Interpolation = "nearest"
	Akima          Interpolation = "akima"
	FritschButland Interpolation = "fritsch-butland"
	NaturalCubic   Interpolation = "natural-cubic"
)

// ParseInterpolation maps a config string to an Interpolation. The empty
// string means Linear.
func ParseInterpolation(s string) (Interpolation, error) {
	if s == "" {
		return Linear, nil
	}
	kind := Interpolation(s)
	if _, err := kind.predictor(); err != nil {
		return "", err
	}
	return kind, nil
}

func (i Interpolation) predictor() (interp.FittablePredictor, error) {
	switch i {
	case Linear, "":
		return &interp.PiecewiseLinear{}, nil
	case Nearest:
		return &interp.PiecewiseConstant{}, nil
	case Akima:
		return &interp.AkimaSpline{}, nil
	case FritschButland:
		return &interp.FritschButland{}, nil
	case NaturalCubic:
		return &interp.NaturalCubic{}, nil
	}
	return nil, fmt.Errorf("%w: got %q", dvbt.ErrInvalidInterpolation, string(i))
}

// EstimateChannel returns the K carrier channel response of one frequency
// domain symbol. Magnitude and phase are interpolated separately between the
// continual pilot positions.
func EstimateChannel(params dvbt.ModeParameters, symbol []complex128, kind Interpolation) ([]complex128, error) {
	k := params.ActiveCarriers
	if len(symbol) != k {
		return nil, fmt.Errorf("%w: symbol has %d carriers, want %d", dvbt.ErrInvalidLength, len(symbol), k)
	}

	reference, err := pilot.ContinuousWaveform(k)
	if err != nil {
		return nil, err
	}
	positions, err := pilot.ContinuousPositions(k)
	if err != nil {
		return nil, err
	}

	xs := make([]float64, len(positions))
	mags := make([]float64, len(positions))
	phases := make([]float64, len(positions))
	for i, p := range positions {
		h := symbol[p] / reference[p]
		xs[i] = float64(p)
		mags[i] = cmplx.Abs(h)
		phases[i] = cmplx.Phase(h)
	}

	magFit, err := kind.predictor()
	if err != nil {
		return nil, err
	}
	phaseFit, _ := kind.predictor()
	if err := magFit.Fit(xs, mags); err != nil {
		return nil, fmt.Errorf("fitting channel magnitude: %w", err)
	}
	if err := phaseFit.Fit(xs, phases); err != nil {
		return nil, fmt.Errorf("fitting channel phase: %w", err)
	}

	ret := make([]complex128, k)
	for c := range ret {
		x := float64(c)
		ret[c] = cmplx.Rect(magFit.Predict(x), phaseFit.Predict(x))
	}
	return ret, nil
}

// Equalize splits symbols into K carrier symbols, estimates each one's channel
// from its own pilots and divides it out. It returns the equalized symbols and
// the estimates, both concatenated in symbol order.
func Equalize(params dvbt.ModeParameters, symbols []complex128, kind Interpolation) (equalized, estimates []complex128, err error) {
	k := params.ActiveCarriers
	if len(symbols)%k != 0 {
		return nil, nil, fmt.Errorf("%w: %d carriers is not a whole number of %d carrier symbols", dvbt.ErrInvalidLength, len(symbols), k)
	}

	equalized = make([]complex128, len(symbols))
	estimates = make([]complex128, 0, len(symbols))
	for start := 0; start < len(symbols); start += k {
		sym := symbols[start : start+k]
		h, err := EstimateChannel(params, sym, kind)
		if err != nil {
			return nil, nil, fmt.Errorf("symbol %d: %w", start/k, err)
		}
		for c := range sym {
			equalized[start+c] = sym[c] / h[c]
		}
		estimates = append(estimates, h...)
	}
	return equalized, estimates, nil
}
