package fir

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

const (
	// MaxTaps bounds designs that would be too slow to run over a whole capture.
	MaxTaps = 4095

	// DVBTChannelWidth is the occupied bandwidth of an 8 MHz DVB-T channel.
	DVBTChannelWidth = 7.61e6
)

var ErrInvalidDesign = errors.New("invalid filter design")

// LowPass is a windowed-sinc low pass design. The tap count follows from the
// window's attenuation and the transition width.
type LowPass struct {
	Gain            float64
	SampleRate      float64
	Cutoff          float64
	TransitionWidth float64
	Window          WindowType
}

func (l LowPass) NumTaps() int {
	n := int(l.Window.Attenuation() * l.SampleRate / (22.0 * l.TransitionWidth))
	return n | 1
}

func (l LowPass) validate() error {
	switch {
	case l.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %g", ErrInvalidDesign, l.SampleRate)
	case l.TransitionWidth <= 0:
		return fmt.Errorf("%w: transition width %g", ErrInvalidDesign, l.TransitionWidth)
	case l.Cutoff <= 0 || l.Cutoff >= l.SampleRate/2:
		return fmt.Errorf("%w: cutoff %g outside (0, %g)", ErrInvalidDesign, l.Cutoff, l.SampleRate/2)
	}
	if n := l.NumTaps(); n > MaxTaps {
		return fmt.Errorf("%w: %d taps exceeds %d, widen the transition", ErrInvalidDesign, n, MaxTaps)
	}
	return nil
}

// Taps returns the filter normalised to Gain at DC.
func (l LowPass) Taps() ([]float32, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	n := l.NumTaps()
	w, err := Window(l.Window, n)
	if err != nil {
		return nil, err
	}

	m := (n - 1) / 2
	wc := 2 * math.Pi * l.Cutoff / l.SampleRate
	h := make([]float64, n)
	var sum float64
	for i := -m; i <= m; i++ {
		v := wc / math.Pi
		if i != 0 {
			v = math.Sin(float64(i)*wc) / (float64(i) * math.Pi)
		}
		h[i+m] = v * float64(w[i+m])
		sum += h[i+m]
	}

	ret := make([]float32, n)
	for i, v := range h {
		ret[i] = float32(v * l.Gain / sum)
	}
	return ret, nil
}

// ChannelFilter passes the DVB-T occupied bandwidth at sampleRate. The
// passband edge sits at half the channel width.
func ChannelFilter(sampleRate, transitionWidth float64) ([]float32, error) {
	return LowPass{
		Gain:            1,
		SampleRate:      sampleRate,
		Cutoff:          DVBTChannelWidth/2 + transitionWidth/2,
		TransitionWidth: transitionWidth,
		Window:          Hamming,
	}.Taps()
}

// Response is the magnitude of the frequency response of taps at f Hz.
func Response(taps []float32, sampleRate, f float64) float64 {
	var sum complex128
	w := -2 * math.Pi * f / sampleRate
	for i, t := range taps {
		sum += complex(float64(t), 0) * cmplx.Rect(1, w*float64(i))
	}
	return cmplx.Abs(sum)
}
