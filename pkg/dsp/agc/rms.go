// Package agc levels complex sample streams.
package agc

import "math"

// RMS is a root mean squared automatic gain controller. It tracks the mean
// power with a single pole average and scales every sample by gain over its
// square root. The average starts at the power of the first non-silent
// sample.
type RMS struct {
	alpha   float64
	beta    float64
	gain    float64
	average float64
	primed  bool
}

func NewRMS(alpha, gain float64) *RMS {
	return &RMS{
		alpha:   alpha,
		beta:    1 - alpha,
		average: 1.0,
		gain:    gain,
	}
}

func (r *RMS) PredictOutputSize(inputSize int) int {
	return inputSize
}

func (r *RMS) WorkBuffer(input, output []complex64) int {
	for i, v := range input {
		re, im := float64(real(v)), float64(imag(v))
		power := re*re + im*im
		if !r.primed && power > 0 {
			r.average = power
			r.primed = true
		}
		r.average = r.beta*r.average + r.alpha*power
		scale := r.gain
		if r.average > 0 {
			scale /= math.Sqrt(r.average)
		}
		output[i] = complex(float32(re*scale), float32(im*scale))
	}

	return len(input)
}

func (r *RMS) Work(data []complex64) []complex64 {
	ret := make([]complex64, len(data))
	r.WorkBuffer(data, ret)
	return ret
}
