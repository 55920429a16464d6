package fir

import (
	"fmt"
	"math"
)

type WindowType int

const (
	Hamming        WindowType = 0
	Hann           WindowType = 1
	BlackmanHarris WindowType = 2
	Blackman       WindowType = 3
)

type window struct {
	name string
	// stopband attenuation in dB
	attenuation float64
	coeffs      []float64
}

var windows = map[WindowType]window{
	Hamming:        {"hamming", 53, []float64{0.54, 0.46}},
	Hann:           {"hann", 44, []float64{0.5, 0.5}},
	Blackman:       {"blackman", 74, []float64{0.42, 0.5, 0.08}},
	BlackmanHarris: {"blackman-harris", 92, []float64{0.35875, 0.48829, 0.14128, 0.01168}},
}

// ParseWindow maps a config name to a WindowType.
func ParseWindow(name string) (WindowType, error) {
	for t, w := range windows {
		if w.name == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown window %q", ErrInvalidDesign, name)
}

func (t WindowType) String() string {
	if w, ok := windows[t]; ok {
		return w.name
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// Attenuation is the stopband attenuation the window reaches, in dB.
func (t WindowType) Attenuation() float64 {
	return windows[t].attenuation
}

// Window returns ntaps samples of a symmetric generalised cosine window:
// w[i] = c0 - c1 cos(2 pi i/M) + c2 cos(4 pi i/M) - ...
func Window(t WindowType, ntaps int) ([]float32, error) {
	w, ok := windows[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown window type %d", ErrInvalidDesign, int(t))
	}
	ret := make([]float32, ntaps)
	if ntaps == 1 {
		ret[0] = 1
		return ret, nil
	}
	m := float64(ntaps - 1)
	for i := range ret {
		var v float64
		sign := 1.0
		for k, c := range w.coeffs {
			v += sign * c * math.Cos(2*math.Pi*float64(k)*float64(i)/m)
			sign = -sign
		}
		ret[i] = float32(v)
	}
	return ret, nil
}

// BlackmanWindow is used for spectrum estimates.
func BlackmanWindow(ntaps int) []float32 {
	ret, _ := Window(Blackman, ntaps)
	return ret
}
